package model

// CompanyRecords counts the metric rows stored for one company.
type CompanyRecords struct {
	Ticker  string `json:"ticker"`
	Name    string `json:"name"`
	Records int64  `json:"record_count"`
}

// StoreSummary is an overview of the structured store. Earliest and latest
// are the first and last stored periods in insertion order.
type StoreSummary struct {
	Companies      int64            `json:"company_count"`
	MetricRows     int64            `json:"metrics_count"`
	EarliestPeriod string           `json:"earliest_period,omitempty"`
	LatestPeriod   string           `json:"latest_period,omitempty"`
	TopCompanies   []CompanyRecords `json:"top_companies"`
}

// CompanyFigures is the most recent row of a company in which every
// requested metric is present.
type CompanyFigures struct {
	Ticker string             `json:"ticker"`
	Name   string             `json:"name"`
	Period string             `json:"period"`
	Values map[string]float64 `json:"values"`
}

// RevenueLeader is one entry of the revenue ranking.
type RevenueLeader struct {
	Ticker  string  `json:"ticker"`
	Name    string  `json:"name"`
	Period  string  `json:"period"`
	Revenue float64 `json:"revenue"`
}

// Profitability is a company's latest net margin.
type Profitability struct {
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name"`
	Period    string  `json:"period"`
	Revenue   float64 `json:"revenue"`
	NetIncome float64 `json:"net_income"`
	MarginPct float64 `json:"profit_margin"`
}

// GrowthTrend is the revenue and net income history of one company with
// average period-over-period growth in percent.
type GrowthTrend struct {
	Ticker           string       `json:"ticker"`
	Revenue          MetricSeries `json:"revenue"`
	NetIncome        MetricSeries `json:"net_income"`
	AvgRevenueGrowth float64      `json:"avg_revenue_growth"`
	AvgIncomeGrowth  float64      `json:"avg_income_growth"`
}

// CompanyAverages holds per-company means across all stored rows. The
// averages are nil when the company has no value for that metric.
type CompanyAverages struct {
	Ticker       string   `json:"ticker"`
	Name         string   `json:"name"`
	AvgRevenue   *float64 `json:"avg_revenue"`
	AvgNetIncome *float64 `json:"avg_net_income"`
	AvgMargin    *float64 `json:"avg_margin"`
	DataPoints   int64    `json:"data_points"`
}

// QueueStats counts async tasks by status.
type QueueStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
