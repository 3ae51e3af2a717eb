package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single closing price.
type PricePoint struct {
	Time  time.Time       `json:"time"`
	Close decimal.Decimal `json:"close"`
}

// Quote is the latest trade summary for a symbol.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name,omitempty"`
	Currency      string          `json:"currency,omitempty"`
	Price         decimal.Decimal `json:"price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	DayHigh       decimal.Decimal `json:"day_high"`
	DayLow        decimal.Decimal `json:"day_low"`
	AsOf          time.Time       `json:"as_of"`
	Source        string          `json:"source"`
}

// MarketSnapshot is the payload of a market evidence item.
type MarketSnapshot struct {
	Quote     Quote        `json:"quote"`
	Range     string       `json:"range"`
	History   []PricePoint `json:"history,omitempty"`
	RangeHigh float64      `json:"range_high"`
	RangeLow  float64      `json:"range_low"`
	Position  float64      `json:"position"` // 0.0 ~ 1.0 within the range
	RSI       float64      `json:"rsi"`
	SMA       float64      `json:"sma,omitempty"`
}
