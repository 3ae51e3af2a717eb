// Package fault defines the structured failure kinds shared by the router
// and the chart pipeline.
package fault

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable failure class.
type Kind string

const (
	KindExtraction         Kind = "extraction_failure"
	KindResolution         Kind = "resolution_failure"
	KindDataNotFound       Kind = "data_not_found"
	KindAdapterTimeout     Kind = "adapter_timeout"
	KindAdapterUnavailable Kind = "adapter_unavailable"
	KindNoEvidence         Kind = "no_evidence"
	KindRender             Kind = "render_failure"
	KindConfig             Kind = "configuration_error"
	KindStore              Kind = "store_failure"
	KindInternal           Kind = "internal_error"
)

// Error is a classified failure. Reason narrows the kind, e.g. missing_ticker.
type Error struct {
	Kind   Kind
	Reason string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error with the same kind and, when set on the target, the same reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

var (
	ErrMissingTicker      = &Error{Kind: KindExtraction, Reason: "missing_ticker"}
	ErrMissingMetric      = &Error{Kind: KindExtraction, Reason: "missing_metric"}
	ErrTickerNotFound     = &Error{Kind: KindResolution, Reason: "ticker_not_found"}
	ErrNoSeries           = &Error{Kind: KindDataNotFound, Reason: "no_series_for_metric"}
	ErrAdapterTimeout     = &Error{Kind: KindAdapterTimeout}
	ErrAdapterUnavailable = &Error{Kind: KindAdapterUnavailable}
	ErrNoEvidence         = &Error{Kind: KindNoEvidence}
	ErrRender             = &Error{Kind: KindRender}
	ErrUnknownMetric      = &Error{Kind: KindConfig, Reason: "metric_not_in_schema"}
	ErrOrderColumn        = &Error{Kind: KindConfig, Reason: "order_column_not_in_schema"}
	ErrStore              = &Error{Kind: KindStore}
)

// Wrap returns a copy of sentinel carrying detail and cause.
func Wrap(sentinel *Error, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:   sentinel.Kind,
		Reason: sentinel.Reason,
		Detail: fmt.Sprintf(format, args...),
		Err:    cause,
	}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// Code returns the most specific code for err: the reason when set, otherwise the kind.
func Code(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Reason != "" {
			return fe.Reason
		}
		return string(fe.Kind)
	}
	return string(KindInternal)
}

// Message returns a human-readable explanation of err.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrMissingTicker):
		return "Could not identify a company in the request. Mention a company name or ticker, e.g. Apple or AAPL."
	case errors.Is(err, ErrMissingMetric):
		return "Could not identify a financial metric in the request. Try revenue, net income, operating income, EPS, total assets, total liabilities or equity."
	case errors.Is(err, ErrTickerNotFound):
		return "The company ticker is not present in the financial database."
	case errors.Is(err, ErrNoSeries):
		return "No data is available for that metric and company."
	case errors.Is(err, ErrUnknownMetric):
		return "The requested metric is not part of the database schema."
	case errors.Is(err, ErrNoEvidence):
		return "No source returned evidence for this question."
	case errors.Is(err, ErrAdapterTimeout):
		return "A data source did not respond in time."
	case errors.Is(err, ErrAdapterUnavailable):
		return "A data source is currently unavailable."
	case errors.Is(err, ErrRender):
		return "The chart could not be rendered."
	case errors.Is(err, ErrStore):
		return "The financial database could not be queried."
	default:
		return "An unexpected error occurred."
	}
}
