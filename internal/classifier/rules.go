package classifier

import "FinSight/internal/model"

// Rule maps a keyword pattern to a category. Weight scales its vote in the
// confidence signal.
type Rule struct {
	Name     string
	Pattern  string
	Category model.Category
	Weight   float64
}

// DefaultRules is evaluated top to bottom. Patterns are case-insensitive
// regular expressions matched on word boundaries.
var DefaultRules = []Rule{
	// market: live prices and quotes
	{"price", `(stock|share)?\s*prices?`, model.CategoryMarket, 1.0},
	{"quote", `quotes?`, model.CategoryMarket, 1.0},
	{"trading", `trading (at|today)|traded`, model.CategoryMarket, 1.0},
	{"live", `live|real[- ]time|intraday`, model.CategoryMarket, 1.0},
	{"now", `right now|currently|today|at the moment`, model.CategoryMarket, 0.6},
	{"market_cap", `market cap(italization)?`, model.CategoryMarket, 0.8},
	{"index", `s&p ?500|nasdaq|dow jones|index`, model.CategoryMarket, 0.6},

	// analytics: structured time-series and aggregations
	{"history", `historical|history|over time|over the (past|last)`, model.CategoryAnalytics, 1.0},
	{"trend", `trends?|growth|grew|growing`, model.CategoryAnalytics, 1.0},
	{"compare", `compare[ds]?|comparison|versus|vs\.?`, model.CategoryAnalytics, 0.8},
	{"aggregate", `average|mean|total|sum|highest|lowest|rank(ing)?`, model.CategoryAnalytics, 0.8},
	{"period", `quarterly|annual(ly)?|year over year|yoy|q[1-4]|fy\d{2,4}`, model.CategoryAnalytics, 0.8},
	{"metric", `revenues?|net income|operating income|eps|earnings|profit|margin|assets|liabilities|equity|sales`, model.CategoryAnalytics, 0.6},

	// document: filings, narrative and definitions
	{"filing", `10-?k|10-?q|8-?k|filings?|sec|annual report`, model.CategoryDocument, 1.0},
	{"narrative", `risk factors?|md&a|management discussion|guidance|outlook|strategy`, model.CategoryDocument, 1.0},
	{"regulation", `regulat(ion|ions|ory)|compliance|policy|policies|disclosures?`, model.CategoryDocument, 0.8},
	{"definition", `define|definition|meaning of|explain|what does .+ mean`, model.CategoryDocument, 0.8},
	{"why", `why|reasons?`, model.CategoryDocument, 0.5},
}
