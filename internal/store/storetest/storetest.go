// Package storetest provides a seeded SQLite store for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"FinSight/internal/config"
	"FinSight/internal/store"
)

// Row is one financial_metrics fixture row. Nil values are stored as NULL.
type Row struct {
	Ticker string
	Period string
	Values map[string]*float64
}

// F returns a pointer to v.
func F(v float64) *float64 { return &v }

// Companies are the fixture companies, in insertion order.
var Companies = [][2]string{
	{"AAPL", "Apple Inc."},
	{"TSLA", "Tesla, Inc."},
	{"MSFT", "Microsoft Corporation"},
}

// Rows are inserted in chronological order. Period labels do
// not sort lexically.
var Rows = []Row{
	{"AAPL", "Q3 2023", map[string]*float64{"revenue": F(89.5), "net_income": F(22.96), "eps": F(1.46)}},
	{"AAPL", "Q4 2023", map[string]*float64{"revenue": F(119.58), "net_income": nil, "eps": F(2.18)}},
	{"AAPL", "Q1 2024", map[string]*float64{"revenue": F(90.75), "net_income": F(23.64), "eps": F(1.53)}},
	{"AAPL", "Q2 2024", map[string]*float64{"revenue": F(85.78), "net_income": F(21.45), "eps": F(1.4)}},
	{"TSLA", "Q1 2024", map[string]*float64{"revenue": F(21.3), "operating_income": F(1.17)}},
	{"TSLA", "Q2 2024", map[string]*float64{"revenue": F(25.5), "operating_income": F(1.6)}},
	{"TSLA", "Q3 2024", map[string]*float64{"revenue": F(25.18), "operating_income": F(2.72)}},
	{"TSLA", "Q4 2024", map[string]*float64{"revenue": F(25.71), "operating_income": F(1.58)}},
}

// Open creates an empty schema in a temporary SQLite file.
func Open(t testing.TB) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, store.Options{
		Driver:  "sqlite",
		DSN:     filepath.Join(t.TempDir(), "finsight.db"),
		Metrics: config.KnownMetrics,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return s
}

// Seeded returns a store loaded with Companies and Rows.
func Seeded(t testing.TB) *store.Store {
	t.Helper()
	s := Open(t)
	db := s.DB()

	ids := make(map[string]int64)
	for _, c := range Companies {
		res, err := db.Exec("INSERT INTO companies (ticker, name) VALUES (?, ?)", c[0], c[1])
		if err != nil {
			t.Fatalf("insert company %s: %v", c[0], err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			t.Fatalf("company id: %v", err)
		}
		ids[c[0]] = id
	}

	for _, r := range Rows {
		args := []any{ids[r.Ticker], r.Period}
		for _, m := range config.KnownMetrics {
			if v := r.Values[m]; v != nil {
				args = append(args, *v)
			} else {
				args = append(args, nil)
			}
		}
		q := "INSERT INTO financial_metrics (company_id, period, revenue, net_income, operating_income, eps, total_assets, total_liabilities, equity) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
		if _, err := db.Exec(q, args...); err != nil {
			t.Fatalf("insert %s %s: %v", r.Ticker, r.Period, err)
		}
	}
	return s
}
