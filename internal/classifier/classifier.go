// Package classifier routes a question to evidence source categories using
// an ordered keyword rule table.
package classifier

import (
	"fmt"
	"regexp"

	"FinSight/internal/model"
)

// Default routes applied when no rule matches.
const (
	RouteDocument = "document"
	RouteHybrid   = "hybrid"
)

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Classifier is immutable after New and safe for concurrent use.
type Classifier struct {
	rules    []compiledRule
	fallback []model.Category
}

// New compiles rules. defaultRoute is RouteDocument or RouteHybrid.
func New(rules []Rule, defaultRoute string) (*Classifier, error) {
	c := &Classifier{}
	switch defaultRoute {
	case RouteDocument, "":
		c.fallback = []model.Category{model.CategoryDocument}
	case RouteHybrid:
		c.fallback = []model.Category{model.CategoryAnalytics, model.CategoryDocument}
	default:
		return nil, fmt.Errorf("unknown default route %q", defaultRoute)
	}

	for _, r := range rules {
		if !r.Category.Valid() {
			return nil, fmt.Errorf("rule %s: unknown category %q", r.Name, r.Category)
		}
		if r.Weight <= 0 {
			return nil, fmt.Errorf("rule %s: weight must be positive", r.Name)
		}
		re, err := regexp.Compile(`(?i)\b(?:` + r.Pattern + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name, err)
		}
		c.rules = append(c.rules, compiledRule{Rule: r, re: re})
	}
	return c, nil
}

// Default returns a classifier over DefaultRules with the document fallback.
func Default() *Classifier {
	c, err := New(DefaultRules, RouteDocument)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify maps a question to a route. It never fails.
func (c *Classifier) Classify(question string) model.RouteDecision {
	scores := make(map[model.Category]float64, len(model.AllCategories))
	var matched []string
	for _, r := range c.rules {
		if r.re.MatchString(question) {
			scores[r.Category] += r.Weight
			matched = append(matched, r.Name)
		}
	}

	if len(matched) == 0 {
		cats := append([]model.Category(nil), c.fallback...)
		return model.RouteDecision{
			Categories: cats,
			IsHybrid:   len(cats) > 1,
			Confidence: 0,
		}
	}

	var cats []model.Category
	var total, top float64
	for _, cat := range model.AllCategories {
		s := scores[cat]
		if s == 0 {
			continue
		}
		cats = append(cats, cat)
		total += s
		if s > top {
			top = s
		}
	}
	return model.RouteDecision{
		Categories: cats,
		IsHybrid:   len(cats) > 1,
		Confidence: top / total,
		Matched:    matched,
	}
}
