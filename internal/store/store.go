// Package store reads companies and financial metric series from the
// structured store. SQLite (modernc) and PostgreSQL (lib/pq) are supported.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"FinSight/internal/fault"
	"FinSight/internal/logger"
	"FinSight/internal/model"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options configures Open.
type Options struct {
	Driver      string   // "sqlite" or "postgres"
	DSN         string   // file path for sqlite, connection string for postgres
	OrderColumn string   // column carrying insertion order in financial_metrics
	Metrics     []string // metric columns of financial_metrics
}

// Store is safe for concurrent use.
type Store struct {
	db      *sql.DB
	driver  string
	orderBy string
	metrics []string
	columns map[string]bool
	log     *logrus.Entry
}

// Open connects to the database and verifies it is reachable.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.OrderColumn == "" {
		opts.OrderColumn = "id"
	}
	if len(opts.Metrics) == 0 {
		return nil, fmt.Errorf("open store: no metric columns configured")
	}
	for _, col := range append([]string{opts.OrderColumn}, opts.Metrics...) {
		if !identifier.MatchString(col) {
			return nil, fmt.Errorf("open store: %q is not a column name", col)
		}
	}

	var db *sql.DB
	var err error
	switch opts.Driver {
	case "sqlite", "":
		opts.Driver = "sqlite"
		if dir := filepath.Dir(opts.DSN); !strings.HasPrefix(opts.DSN, "file:") && opts.DSN != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("open store: %w", err)
			}
		}
		db, err = sql.Open("sqlite", opts.DSN)
	case "postgres":
		db, err = sql.Open("postgres", opts.DSN)
	default:
		return nil, fmt.Errorf("open store: unsupported driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Driver, err)
	}

	if opts.Driver == "sqlite" {
		// The external loader writes to the same file.
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("%s: %w", pragma, err)
			}
		}
	}

	s := &Store{
		db:      db,
		driver:  opts.Driver,
		orderBy: opts.OrderColumn,
		columns: make(map[string]bool, len(opts.Metrics)),
		log:     logger.WithComponent("store"),
	}
	for _, m := range opts.Metrics {
		m = strings.ToLower(m)
		s.metrics = append(s.metrics, m)
		s.columns[m] = true
	}

	s.log.WithField("driver", opts.Driver).Info("store opened")
	return s, nil
}

// DB exposes the underlying handle for loaders and tests.
func (s *Store) DB() *sql.DB { return s.db }

// Metrics returns the configured metric columns.
func (s *Store) Metrics() []string {
	return append([]string(nil), s.metrics...)
}

// HasMetric reports whether m is a metric column.
func (s *Store) HasMetric(m string) bool {
	return s.columns[strings.ToLower(m)]
}

// bind returns the n-th (1-based) placeholder for the driver.
func (s *Store) bind(n int) string {
	if s.driver == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// EnsureSchema creates the tables if they do not exist, then checks that
// the configured order and metric columns are present in financial_metrics.
// A table created elsewhere without one of them is a configuration error.
func (s *Store) EnsureSchema(ctx context.Context) error {
	idCol := "INTEGER PRIMARY KEY AUTOINCREMENT"
	realType := "REAL"
	if s.driver == "postgres" {
		idCol = "BIGSERIAL PRIMARY KEY"
		realType = "DOUBLE PRECISION"
	}

	cols := make([]string, 0, len(s.metrics))
	for _, m := range s.metrics {
		cols = append(cols, fmt.Sprintf("%s %s", m, realType))
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS companies (
			id     %s,
			ticker TEXT NOT NULL UNIQUE,
			name   TEXT NOT NULL
		)`, idCol),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS financial_metrics (
			id         %s,
			company_id INTEGER NOT NULL REFERENCES companies(id),
			period     TEXT NOT NULL,
			%s
		)`, idCol, strings.Join(cols, ",\n\t\t\t")),
		`CREATE INDEX IF NOT EXISTS idx_metrics_company ON financial_metrics(company_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return s.verifyColumns(ctx)
}

func (s *Store) verifyColumns(ctx context.Context) error {
	q := "SELECT name FROM pragma_table_info('financial_metrics')"
	if s.driver == "postgres" {
		q = "SELECT column_name FROM information_schema.columns WHERE table_name = 'financial_metrics' AND table_schema = current_schema()"
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return fault.Wrap(fault.ErrStore, err, "list financial_metrics columns")
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fault.Wrap(fault.ErrStore, err, "scan column name")
		}
		present[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return fault.Wrap(fault.ErrStore, err, "list financial_metrics columns")
	}

	if !present[strings.ToLower(s.orderBy)] {
		return fault.Wrap(fault.ErrOrderColumn, nil, "column %q", s.orderBy)
	}
	var missing []string
	for _, m := range s.metrics {
		if !present[m] {
			missing = append(missing, m)
			delete(s.columns, m)
		}
	}
	if len(missing) > 0 {
		return fault.Wrap(fault.ErrUnknownMetric, nil, "financial_metrics lacks %s", strings.Join(missing, ", "))
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// ResolveTicker returns the company id for ticker. Matching is exact and
// case-insensitive.
func (s *Store) ResolveTicker(ctx context.Context, ticker string) (int64, error) {
	c, err := s.Company(ctx, ticker)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

// Company returns the full company row for ticker.
func (s *Store) Company(ctx context.Context, ticker string) (model.Company, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	q := fmt.Sprintf("SELECT id, ticker, name FROM companies WHERE UPPER(ticker) = %s", s.bind(1))

	var c model.Company
	err := s.db.QueryRowContext(ctx, q, t).Scan(&c.ID, &c.Ticker, &c.Name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return model.Company{}, fault.Wrap(fault.ErrTickerNotFound, nil, "ticker %s", t)
	case err != nil:
		return model.Company{}, fault.Wrap(fault.ErrStore, err, "resolve ticker %s", t)
	}
	return c, nil
}

// FetchSeries reads non-null values of metric for a company in storage
// order. With latestOnly only the most recent point is returned.
func (s *Store) FetchSeries(ctx context.Context, companyID int64, metric string, latestOnly bool) (model.MetricSeries, error) {
	metric = strings.ToLower(strings.TrimSpace(metric))
	if !s.columns[metric] {
		return model.MetricSeries{}, fault.Wrap(fault.ErrUnknownMetric, nil, "metric %q", metric)
	}

	// metric and orderBy are whitelisted identifiers.
	q := fmt.Sprintf(
		"SELECT period, %s FROM financial_metrics WHERE company_id = %s AND %s IS NOT NULL ORDER BY %s",
		metric, s.bind(1), metric, s.orderBy)
	if latestOnly {
		q += " DESC LIMIT 1"
	} else {
		q += " ASC"
	}

	rows, err := s.db.QueryContext(ctx, q, companyID)
	if err != nil {
		return model.MetricSeries{}, fault.Wrap(fault.ErrStore, err, "query %s", metric)
	}
	defer rows.Close()

	series := model.MetricSeries{CompanyID: companyID, Metric: metric}
	for rows.Next() {
		var p model.MetricPoint
		if err := rows.Scan(&p.Period, &p.Value); err != nil {
			return model.MetricSeries{}, fault.Wrap(fault.ErrStore, err, "scan %s", metric)
		}
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return model.MetricSeries{}, fault.Wrap(fault.ErrStore, err, "iterate %s", metric)
	}
	if len(series.Points) == 0 {
		return model.MetricSeries{}, fault.Wrap(fault.ErrNoSeries, nil, "company %d metric %s", companyID, metric)
	}
	return series, nil
}

// Health counts stored rows and per-metric coverage.
func (s *Store) Health(ctx context.Context) (model.DataHealth, error) {
	var h model.DataHealth
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM companies").Scan(&h.Companies); err != nil {
		return h, fault.Wrap(fault.ErrStore, err, "count companies")
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM financial_metrics").Scan(&h.MetricRows); err != nil {
		return h, fault.Wrap(fault.ErrStore, err, "count metric rows")
	}
	for _, m := range s.metrics {
		var n int64
		q := fmt.Sprintf("SELECT COUNT(%s) FROM financial_metrics", m)
		if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
			return h, fault.Wrap(fault.ErrStore, err, "count %s", m)
		}
		h.Coverage = append(h.Coverage, model.MetricCoverage{Metric: m, NonNull: n})
	}
	return h, nil
}

// Summary counts companies and metric rows, reports the first and last
// stored periods, and lists up to limit companies by row count.
func (s *Store) Summary(ctx context.Context, limit int) (model.StoreSummary, error) {
	var sum model.StoreSummary
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM companies").Scan(&sum.Companies); err != nil {
		return sum, fault.Wrap(fault.ErrStore, err, "count companies")
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM financial_metrics").Scan(&sum.MetricRows); err != nil {
		return sum, fault.Wrap(fault.ErrStore, err, "count metric rows")
	}
	if sum.MetricRows > 0 {
		bounds := []struct {
			dir string
			dst *string
		}{{"ASC", &sum.EarliestPeriod}, {"DESC", &sum.LatestPeriod}}
		for _, b := range bounds {
			q := fmt.Sprintf("SELECT period FROM financial_metrics ORDER BY %s %s LIMIT 1", s.orderBy, b.dir)
			if err := s.db.QueryRowContext(ctx, q).Scan(b.dst); err != nil {
				return sum, fault.Wrap(fault.ErrStore, err, "period bounds")
			}
		}
	}

	q := fmt.Sprintf(`SELECT c.ticker, c.name, COUNT(fm.id)
		FROM companies c
		LEFT JOIN financial_metrics fm ON fm.company_id = c.id
		GROUP BY c.id, c.ticker, c.name
		ORDER BY COUNT(fm.id) DESC, c.ticker ASC
		LIMIT %s`, s.bind(1))
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return sum, fault.Wrap(fault.ErrStore, err, "top companies")
	}
	defer rows.Close()
	sum.TopCompanies = []model.CompanyRecords{}
	for rows.Next() {
		var c model.CompanyRecords
		if err := rows.Scan(&c.Ticker, &c.Name, &c.Records); err != nil {
			return sum, fault.Wrap(fault.ErrStore, err, "scan top company")
		}
		sum.TopCompanies = append(sum.TopCompanies, c)
	}
	if err := rows.Err(); err != nil {
		return sum, fault.Wrap(fault.ErrStore, err, "top companies")
	}
	return sum, nil
}

// LatestFigures returns, per company, the most recent row in which every
// metric is non-null. Companies without such a row are omitted.
func (s *Store) LatestFigures(ctx context.Context, metrics ...string) ([]model.CompanyFigures, error) {
	if len(metrics) == 0 {
		return nil, fmt.Errorf("latest figures: no metrics")
	}
	cols := make([]string, len(metrics))
	for i, m := range metrics {
		m = strings.ToLower(strings.TrimSpace(m))
		if !s.columns[m] {
			return nil, fault.Wrap(fault.ErrUnknownMetric, nil, "metric %q", m)
		}
		cols[i] = m
	}
	notNull := func(alias string) string {
		conds := make([]string, len(cols))
		for i, m := range cols {
			conds[i] = alias + "." + m + " IS NOT NULL"
		}
		return strings.Join(conds, " AND ")
	}

	// cols and orderBy are whitelisted identifiers.
	q := fmt.Sprintf(`SELECT c.ticker, c.name, fm.period, fm.%s
		FROM companies c
		JOIN financial_metrics fm ON fm.company_id = c.id
		WHERE %s AND fm.%s = (
			SELECT MAX(f2.%s) FROM financial_metrics f2
			WHERE f2.company_id = c.id AND %s
		)
		ORDER BY c.ticker`,
		strings.Join(cols, ", fm."), notNull("fm"), s.orderBy, s.orderBy, notNull("f2"))

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fault.Wrap(fault.ErrStore, err, "latest %s", strings.Join(cols, ","))
	}
	defer rows.Close()

	var out []model.CompanyFigures
	for rows.Next() {
		f := model.CompanyFigures{Values: make(map[string]float64, len(cols))}
		vals := make([]float64, len(cols))
		dst := []any{&f.Ticker, &f.Name, &f.Period}
		for i := range vals {
			dst = append(dst, &vals[i])
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, fault.Wrap(fault.ErrStore, err, "scan latest figures")
		}
		for i, m := range cols {
			f.Values[m] = vals[i]
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.ErrStore, err, "latest figures")
	}
	return out, nil
}

// CompanyAverages returns mean revenue, net income and net margin per
// company that has at least one metric row. Rows with non-positive revenue
// count as a zero margin.
func (s *Store) CompanyAverages(ctx context.Context) ([]model.CompanyAverages, error) {
	for _, m := range []string{"revenue", "net_income"} {
		if !s.columns[m] {
			return nil, fault.Wrap(fault.ErrUnknownMetric, nil, "metric %q", m)
		}
	}
	const q = `SELECT c.ticker, c.name,
			AVG(fm.revenue),
			AVG(fm.net_income),
			AVG(CASE WHEN fm.revenue > 0 THEN fm.net_income / fm.revenue * 100 ELSE 0 END),
			COUNT(fm.id)
		FROM companies c
		JOIN financial_metrics fm ON fm.company_id = c.id
		GROUP BY c.id, c.ticker, c.name
		ORDER BY c.ticker`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fault.Wrap(fault.ErrStore, err, "company averages")
	}
	defer rows.Close()

	var out []model.CompanyAverages
	for rows.Next() {
		var a model.CompanyAverages
		var rev, ni, margin sql.NullFloat64
		if err := rows.Scan(&a.Ticker, &a.Name, &rev, &ni, &margin, &a.DataPoints); err != nil {
			return nil, fault.Wrap(fault.ErrStore, err, "scan company averages")
		}
		a.AvgRevenue = nullable(rev)
		a.AvgNetIncome = nullable(ni)
		a.AvgMargin = nullable(margin)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.ErrStore, err, "company averages")
	}
	return out, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.log.Info("closing store")
	return s.db.Close()
}
