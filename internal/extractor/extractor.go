// Package extractor turns free text into chart parameters using fixed
// vocabulary tables. It performs no I/O.
package extractor

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"FinSight/internal/fault"
	"FinSight/internal/model"
)

type phrase struct {
	value string
	order int
	re    *regexp.Regexp
}

type match struct {
	start, end int
	value      string
	order      int
}

// Extractor is safe for concurrent use. Its tables never change after New.
type Extractor struct {
	tickers []phrase
	metrics []phrase
	trend   []phrase
}

// New compiles the vocabulary into matchers.
func New(v *Vocabulary) (*Extractor, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	e := &Extractor{}
	for _, c := range v.Companies {
		ticker := strings.ToUpper(strings.TrimSpace(c.Ticker))
		for _, alias := range c.Aliases {
			e.tickers = appendPhrase(e.tickers, alias, ticker)
		}
	}
	for _, m := range v.Metrics {
		metric := strings.ToLower(strings.TrimSpace(m.Metric))
		// Canonical name also matches with underscores as spaces.
		e.metrics = appendPhrase(e.metrics, metric, metric)
		for _, syn := range m.Synonyms {
			e.metrics = appendPhrase(e.metrics, syn, metric)
		}
	}
	for _, kw := range v.Trend {
		e.trend = appendPhrase(e.trend, kw, kw)
	}
	return e, nil
}

// Default builds an extractor over DefaultVocabulary.
func Default() *Extractor {
	e, err := New(DefaultVocabulary())
	if err != nil {
		panic(err)
	}
	return e
}

func appendPhrase(list []phrase, text, value string) []phrase {
	text = strings.TrimSpace(strings.ToLower(text))
	words := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == '_'
	})
	if len(words) == 0 {
		return list
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	pattern := strings.Join(words, `[\s_\-]+`)
	if isWord(rune(text[0])) {
		pattern = `\b` + pattern
	}
	if isWord(rune(text[len(text)-1])) {
		pattern += `\b`
	}
	return append(list, phrase{value: value, order: len(list), re: regexp.MustCompile(pattern)})
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// scan returns non-overlapping matches left to right. At equal start the
// longest phrase wins, then table order.
func scan(list []phrase, lower string) []match {
	var all []match
	for _, p := range list {
		for _, loc := range p.re.FindAllStringIndex(lower, -1) {
			all = append(all, match{start: loc[0], end: loc[1], value: p.value, order: p.order})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.start != b.start {
			return a.start < b.start
		}
		if a.end-a.start != b.end-b.start {
			return a.end-a.start > b.end-b.start
		}
		return a.order < b.order
	})

	var out []match
	pos := -1
	for _, m := range all {
		if m.start < pos {
			continue
		}
		out = append(out, m)
		pos = m.end
	}
	return out
}

func first(list []phrase, lower string) (string, bool) {
	found := scan(list, lower)
	if len(found) == 0 {
		return "", false
	}
	return found[0].value, true
}

func distinct(list []phrase, lower string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range scan(list, lower) {
		if !seen[m.value] {
			seen[m.value] = true
			out = append(out, m.value)
		}
	}
	return out
}

// Extract parses text into (ticker, metric, is_trend). Both ticker and
// metric are required; a missing ticker is reported first.
func (e *Extractor) Extract(text string) (model.ExtractedPlotParams, error) {
	lower := strings.ToLower(text)

	ticker, ok := first(e.tickers, lower)
	if !ok {
		return model.ExtractedPlotParams{}, fault.Wrap(fault.ErrMissingTicker, nil, "no company named in %q", text)
	}
	metric, ok := first(e.metrics, lower)
	if !ok {
		return model.ExtractedPlotParams{}, fault.Wrap(fault.ErrMissingMetric, nil, "no metric named in %q", text)
	}
	return model.ExtractedPlotParams{
		Ticker:  ticker,
		Metric:  metric,
		IsTrend: e.IsTrend(text),
	}, nil
}

// Ticker returns the first ticker named in text.
func (e *Extractor) Ticker(text string) (string, bool) {
	return first(e.tickers, strings.ToLower(text))
}

// Tickers returns every distinct ticker named in text, in order of appearance.
func (e *Extractor) Tickers(text string) []string {
	return distinct(e.tickers, strings.ToLower(text))
}

// Metrics returns every distinct metric named in text, in order of appearance.
func (e *Extractor) Metrics(text string) []string {
	return distinct(e.metrics, strings.ToLower(text))
}

// MetricNames returns the canonical metrics the vocabulary can produce.
func (e *Extractor) MetricNames() []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range e.metrics {
		if !seen[p.value] {
			seen[p.value] = true
			out = append(out, p.value)
		}
	}
	return out
}

// IsTrend reports whether any trend keyword appears in text.
func (e *Extractor) IsTrend(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range e.trend {
		if p.re.MatchString(lower) {
			return true
		}
	}
	return false
}
