package model

// Company is one listed company in the structured store.
type Company struct {
	ID     int64  `json:"id"`
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// MetricPoint is one reported value. Period is an opaque label.
type MetricPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// MetricSeries holds points in store order.
type MetricSeries struct {
	CompanyID int64         `json:"company_id"`
	Metric    string        `json:"metric"`
	Points    []MetricPoint `json:"points"`
}

// Values returns the series values in order.
func (s MetricSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// SeriesStats summarizes a metric series.
type SeriesStats struct {
	Count      int       `json:"count"`
	First      float64   `json:"first"`
	Last       float64   `json:"last"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
	Mean       float64   `json:"mean"`
	ChangePct  float64   `json:"change_pct"`
	Growth     []float64 `json:"growth,omitempty"` // period-over-period %
	MovingAvg  float64   `json:"moving_avg,omitempty"`
	MovingAvgN int       `json:"moving_avg_n,omitempty"`
}

// MetricReport is one metric's analytics result.
type MetricReport struct {
	Series MetricSeries `json:"series"`
	Stats  SeriesStats  `json:"stats"`
}

// AnalyticsResult is the payload of an analytics evidence item.
type AnalyticsResult struct {
	Company Company        `json:"company"`
	Metrics []MetricReport `json:"metrics"`
}

// DocumentMatch is one retrieved passage.
type DocumentMatch struct {
	ID      string  `json:"id"`
	Title   string  `json:"title,omitempty"`
	Source  string  `json:"source,omitempty"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Document is an indexable passage.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Source  string `json:"source"`
	Content string `json:"content"`
}

// MetricCoverage counts non-null values for one metric column.
type MetricCoverage struct {
	Metric  string `json:"metric"`
	NonNull int64  `json:"non_null"`
}

// DataHealth is a snapshot of the structured store contents.
type DataHealth struct {
	Companies  int64            `json:"companies"`
	MetricRows int64            `json:"metric_rows"`
	Coverage   []MetricCoverage `json:"coverage"`
}
