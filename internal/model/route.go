package model

import "time"

// Category identifies an evidence source family.
type Category string

const (
	CategoryMarket    Category = "market"
	CategoryDocument  Category = "document"
	CategoryAnalytics Category = "analytics"
)

// AllCategories lists categories in invocation order.
var AllCategories = []Category{CategoryMarket, CategoryAnalytics, CategoryDocument}

// Priority returns the merge priority of a category. Higher sorts first.
func (c Category) Priority() int {
	switch c {
	case CategoryMarket:
		return 3
	case CategoryAnalytics:
		return 2
	case CategoryDocument:
		return 1
	default:
		return 0
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c.Priority() > 0
}

// RouteDecision is the classifier output for one question.
type RouteDecision struct {
	Categories []Category `json:"categories"`
	IsHybrid   bool       `json:"is_hybrid"`
	Confidence float64    `json:"confidence"`
	Matched    []string   `json:"matched,omitempty"`
}

// Has reports whether the decision selects c.
func (d RouteDecision) Has(c Category) bool {
	for _, got := range d.Categories {
		if got == c {
			return true
		}
	}
	return false
}

// EvidenceItem is one adapter's contribution to an answer.
type EvidenceItem struct {
	Source   Category      `json:"source"`
	Payload  any           `json:"payload"`
	Priority int           `json:"priority"`
	Latency  time.Duration `json:"latency_ns"`
}
