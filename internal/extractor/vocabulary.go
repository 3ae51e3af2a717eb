package extractor

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CompanyAliases maps a ticker to the phrases that name it.
type CompanyAliases struct {
	Ticker  string   `yaml:"ticker"`
	Aliases []string `yaml:"aliases"`
}

// MetricSynonyms maps a canonical metric to the phrases that name it.
type MetricSynonyms struct {
	Metric   string   `yaml:"metric"`
	Synonyms []string `yaml:"synonyms"`
}

// Vocabulary is the immutable lookup data used by the extractor.
type Vocabulary struct {
	Companies []CompanyAliases `yaml:"companies"`
	Metrics   []MetricSynonyms `yaml:"metrics"`
	Trend     []string         `yaml:"trend"`
}

// DefaultVocabulary returns the built-in tables.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Companies: []CompanyAliases{
			{Ticker: "AAPL", Aliases: []string{"apple", "aapl"}},
			{Ticker: "MSFT", Aliases: []string{"microsoft", "msft"}},
			{Ticker: "GOOGL", Aliases: []string{"google", "alphabet", "googl", "goog"}},
			{Ticker: "TSLA", Aliases: []string{"tesla", "tsla"}},
			{Ticker: "AMZN", Aliases: []string{"amazon", "amzn"}},
			{Ticker: "META", Aliases: []string{"meta platforms", "meta", "facebook"}},
			{Ticker: "NVDA", Aliases: []string{"nvidia", "nvda"}},
		},
		Metrics: []MetricSynonyms{
			{Metric: "revenue", Synonyms: []string{"revenue", "revenues", "total revenue", "net sales", "sales", "top line", "turnover"}},
			{Metric: "net_income", Synonyms: []string{"net income", "net profit", "net earnings", "earnings", "profit", "bottom line"}},
			{Metric: "operating_income", Synonyms: []string{"operating income", "operating profit", "ebit"}},
			{Metric: "eps", Synonyms: []string{"eps", "earnings per share"}},
			{Metric: "total_assets", Synonyms: []string{"total assets", "assets"}},
			{Metric: "total_liabilities", Synonyms: []string{"total liabilities", "liabilities"}},
			{Metric: "equity", Synonyms: []string{"shareholders' equity", "shareholders equity", "stockholders equity", "book value", "equity"}},
		},
		Trend: []string{
			"trend", "trends", "trending",
			"growth", "grow", "growing", "grew",
			"over time", "over the past", "over the last",
			"historical", "history",
			"quarterly", "year over year", "yoy",
			"compare", "compared", "comparison",
			"change", "changes", "changed",
		},
	}
}

// LoadVocabulary reads a YAML vocabulary file. An empty path returns the defaults.
func LoadVocabulary(path string) (*Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	v := &Vocabulary{}
	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks that every entry carries a key and at least one phrase.
func (v *Vocabulary) Validate() error {
	if len(v.Companies) == 0 {
		return fmt.Errorf("vocabulary: no companies")
	}
	if len(v.Metrics) == 0 {
		return fmt.Errorf("vocabulary: no metrics")
	}
	for _, c := range v.Companies {
		if strings.TrimSpace(c.Ticker) == "" || len(c.Aliases) == 0 {
			return fmt.Errorf("vocabulary: company entry %q needs a ticker and aliases", c.Ticker)
		}
	}
	for _, m := range v.Metrics {
		if strings.TrimSpace(m.Metric) == "" {
			return fmt.Errorf("vocabulary: metric entry without a name")
		}
	}
	return nil
}
