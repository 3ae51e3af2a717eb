// Package document retrieves top-K passages from a full-text index.
package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/sirupsen/logrus"

	"FinSight/internal/logger"
	"FinSight/internal/model"
)

const (
	defaultTopK  = 5
	snippetRunes = 320
)

// Retriever is the document evidence adapter.
type Retriever struct {
	index bleve.Index
	topK  int
	log   *logrus.Entry
}

// NewRetriever wraps index. A non-positive topK means 5.
func NewRetriever(index bleve.Index, topK int) *Retriever {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Retriever{index: index, topK: topK, log: logger.WithComponent("document")}
}

func (r *Retriever) Category() model.Category { return model.CategoryDocument }

// Search returns up to k matches ordered by score, then id.
func (r *Retriever) Search(ctx context.Context, text string, k int) ([]model.DocumentMatch, error) {
	if k <= 0 {
		k = r.topK
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	title := bleve.NewMatchQuery(text)
	title.SetField("title")
	title.SetBoost(2.0)
	content := bleve.NewMatchQuery(text)
	content.SetField("content")

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(title, content))
	req.Size = k
	req.Fields = []string{"title", "content", "source"}
	req.SortBy([]string{"-_score", "_id"})

	res, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	matches := make([]model.DocumentMatch, 0, len(res.Hits))
	for _, hit := range res.Hits {
		matches = append(matches, model.DocumentMatch{
			ID:      hit.ID,
			Title:   field(hit.Fields, "title"),
			Source:  field(hit.Fields, "source"),
			Snippet: snippet(field(hit.Fields, "content")),
			Score:   hit.Score,
		})
	}
	return matches, nil
}

// Fetch returns the top-K passages for question. No matches is not ok.
func (r *Retriever) Fetch(ctx context.Context, question string) (model.EvidenceItem, bool) {
	matches, err := r.Search(ctx, question, r.topK)
	if err != nil {
		r.log.WithError(err).Warn("document search failed")
		return model.EvidenceItem{}, false
	}
	if len(matches) == 0 {
		return model.EvidenceItem{}, false
	}
	return model.EvidenceItem{Source: model.CategoryDocument, Payload: matches}, true
}

// Count returns the number of indexed documents.
func (r *Retriever) Count() (uint64, error) {
	return r.index.DocCount()
}

func (r *Retriever) Close() error {
	return r.index.Close()
}

func field(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func snippet(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= snippetRunes {
		return string(runes)
	}
	return strings.TrimSpace(string(runes[:snippetRunes])) + "…"
}
