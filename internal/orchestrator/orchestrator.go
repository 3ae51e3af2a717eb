// Package orchestrator fans a routed question out to evidence adapters and
// merges their results by source priority.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"FinSight/internal/classifier"
	"FinSight/internal/fault"
	"FinSight/internal/logger"
	"FinSight/internal/model"
)

// Adapter is one evidence source. Fetch must honour ctx cancellation and
// report ok=false instead of returning partial evidence.
type Adapter interface {
	Category() model.Category
	Fetch(ctx context.Context, question string) (model.EvidenceItem, bool)
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	classifier *classifier.Classifier
	adapters   map[model.Category]Adapter
	timeout    time.Duration
	log        *logrus.Entry
}

// New registers adapters by category. A document adapter is required since it
// serves as the fallback.
func New(c *classifier.Classifier, timeout time.Duration, adapters ...Adapter) (*Orchestrator, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("adapter timeout must be positive")
	}
	o := &Orchestrator{
		classifier: c,
		adapters:   make(map[model.Category]Adapter, len(adapters)),
		timeout:    timeout,
		log:        logger.WithComponent("orchestrator"),
	}
	for _, a := range adapters {
		cat := a.Category()
		if _, dup := o.adapters[cat]; dup {
			return nil, fmt.Errorf("duplicate adapter for %s", cat)
		}
		o.adapters[cat] = a
	}
	if _, ok := o.adapters[model.CategoryDocument]; !ok {
		return nil, fmt.Errorf("a document adapter is required")
	}
	return o, nil
}

type outcome struct {
	item    model.EvidenceItem
	ok      bool
	latency time.Duration
}

type fetchResult struct {
	item model.EvidenceItem
	ok   bool
}

// invoke calls one adapter under its own timeout. A call that does not return
// in time is abandoned and never retried.
func (o *Orchestrator) invoke(ctx context.Context, cat model.Category, question string) outcome {
	entry := o.log.WithField("source", cat)
	a, registered := o.adapters[cat]
	if !registered {
		entry.Warn("no adapter registered")
		return outcome{}
	}

	cctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	ch := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				entry.WithField("panic", r).Error("adapter panicked")
				ch <- fetchResult{}
			}
		}()
		item, ok := a.Fetch(cctx, question)
		ch <- fetchResult{item: item, ok: ok}
	}()

	var res fetchResult
	reason := "unavailable"
	select {
	case res = <-ch:
	case <-cctx.Done():
		reason = "timeout"
		if ctx.Err() != nil {
			reason = "cancelled"
		}
	}
	latency := time.Since(start)

	if !res.ok {
		entry.WithFields(logrus.Fields{
			"latency_ms": latency.Milliseconds(),
			"reason":     reason,
		}).Warn("adapter failed")
		return outcome{latency: latency}
	}

	item := res.item
	item.Source = cat
	item.Priority = cat.Priority()
	item.Latency = latency
	return outcome{item: item, ok: true, latency: latency}
}

// Resolve gathers evidence for a routed question. Results are ordered by
// source priority, then invocation order. If every selected adapter fails the
// document adapter is tried exactly once more; if that also fails the result
// is empty with fault.ErrNoEvidence.
func (o *Orchestrator) Resolve(ctx context.Context, question string, decision model.RouteDecision) ([]model.EvidenceItem, error) {
	cats := decision.Categories
	slots := make([]outcome, len(cats))

	if len(cats) == 1 {
		slots[0] = o.invoke(ctx, cats[0], question)
	} else {
		var g errgroup.Group
		for i, cat := range cats {
			g.Go(func() error {
				slots[i] = o.invoke(ctx, cat, question)
				return nil
			})
		}
		g.Wait()
	}

	items := make([]model.EvidenceItem, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			items = append(items, s.item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Priority > items[j].Priority })
	if len(items) > 0 {
		return items, nil
	}

	if err := ctx.Err(); err != nil {
		return []model.EvidenceItem{}, fault.Wrap(fault.ErrNoEvidence, err, "request ended before any adapter answered")
	}

	o.log.WithField("question_len", len(question)).Info("all adapters failed, falling back to document")
	fb := o.invoke(ctx, model.CategoryDocument, question)
	if fb.ok {
		return []model.EvidenceItem{fb.item}, nil
	}
	return []model.EvidenceItem{}, fault.Wrap(fault.ErrNoEvidence, nil, "%d adapters and the document fallback failed", len(cats))
}

// Ask classifies question and resolves its evidence.
func (o *Orchestrator) Ask(ctx context.Context, question string) (model.Answer, error) {
	decision := o.classifier.Classify(question)
	o.log.WithFields(logrus.Fields{
		"categories": decision.Categories,
		"hybrid":     decision.IsHybrid,
		"confidence": decision.Confidence,
	}).Debug("question routed")

	items, err := o.Resolve(ctx, question, decision)
	return model.Answer{Route: decision, Evidence: items}, err
}
