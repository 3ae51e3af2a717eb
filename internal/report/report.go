// Package report renders answers and chart results as terminal text.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"FinSight/internal/fault"
	"FinSight/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#2563EB"))

	sectionStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		MarginTop(1)

	mutedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))

	upStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	downStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444"))

	errorStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#EF4444")).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#EF4444")).
		Padding(0, 1)
)

// FormatAnswer formats a routed answer, one section per evidence item.
func FormatAnswer(ans model.Answer) string {
	var b strings.Builder

	route := make([]string, len(ans.Route.Categories))
	for i, c := range ans.Route.Categories {
		route[i] = string(c)
	}
	b.WriteString(titleStyle.Render("FinSight"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("route: %s | hybrid: %v | confidence: %.2f",
		strings.Join(route, "+"), ans.Route.IsHybrid, ans.Route.Confidence)))
	b.WriteString("\n")

	for _, item := range ans.Evidence {
		b.WriteString(sectionStyle.Render(fmt.Sprintf("[%s] %dms", item.Source, item.Latency.Milliseconds())))
		b.WriteString("\n")
		b.WriteString(formatPayload(item.Payload))
	}
	return b.String()
}

func formatPayload(p any) string {
	switch v := p.(type) {
	case model.MarketSnapshot:
		return formatSnapshot(v)
	case model.AnalyticsResult:
		return formatAnalytics(v)
	case []model.DocumentMatch:
		return formatDocuments(v)
	default:
		return fmt.Sprintf("%v\n", v)
	}
}

func signed(s string, neg bool) string {
	if neg {
		return downStyle.Render(s)
	}
	return upStyle.Render(s)
}

func formatSnapshot(s model.MarketSnapshot) string {
	var b strings.Builder
	q := s.Quote
	name := q.Symbol
	if q.Name != "" {
		name = fmt.Sprintf("%s (%s)", q.Name, q.Symbol)
	}
	b.WriteString(fmt.Sprintf("%s: %s %s ", name, q.Price.StringFixed(2), q.Currency))
	b.WriteString(signed(fmt.Sprintf("%s (%s%%)", q.Change.StringFixed(2), q.ChangePercent.StringFixed(2)), q.Change.IsNegative()))
	b.WriteString("\n")
	if len(s.History) > 0 {
		b.WriteString(fmt.Sprintf("%s range: %.2f - %.2f | position %.0f%%\n", s.Range, s.RangeLow, s.RangeHigh, s.Position*100))
		b.WriteString(fmt.Sprintf("RSI(14): %.1f", s.RSI))
		if s.SMA > 0 {
			b.WriteString(fmt.Sprintf(" | SMA(20): %.2f", s.SMA))
		}
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("source: %s, as of %s", q.Source, q.AsOf.Format("2006-01-02 15:04"))))
	b.WriteString("\n")
	return b.String()
}

func formatAnalytics(r model.AnalyticsResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s (%s)\n", r.Company.Name, r.Company.Ticker))
	for _, m := range r.Metrics {
		st := m.Stats
		b.WriteString(fmt.Sprintf("  %s: %d periods, last %.2f, mean %.2f, min %.2f, max %.2f, change ",
			m.Series.Metric, st.Count, st.Last, st.Mean, st.Min, st.Max))
		b.WriteString(signed(fmt.Sprintf("%+.1f%%", st.ChangePct), st.ChangePct < 0))
		b.WriteString("\n")
		if len(m.Series.Points) > 0 {
			periods := make([]string, len(m.Series.Points))
			for i, p := range m.Series.Points {
				periods[i] = fmt.Sprintf("%s=%.2f", p.Period, p.Value)
			}
			b.WriteString(mutedStyle.Render("    " + strings.Join(periods, ", ")))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatDocuments(docs []model.DocumentMatch) string {
	var b strings.Builder
	for i, d := range docs {
		title := d.Title
		if title == "" {
			title = d.ID
		}
		b.WriteString(fmt.Sprintf("%d. %s (score %.2f)\n", i+1, title, d.Score))
		if d.Snippet != "" {
			b.WriteString(mutedStyle.Render("   " + d.Snippet))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// FormatPlot summarizes a generated chart.
func FormatPlot(res model.PlotResult, path string) string {
	var b strings.Builder
	kind := "latest value"
	if res.IsTrend {
		kind = "trend"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s - %s", res.Company, res.Metric)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s, %d data point(s)\n", kind, len(res.DataPoints)))
	for _, p := range res.DataPoints {
		b.WriteString(fmt.Sprintf("  %-10s %.2f\n", p.Period, p.Value))
	}
	if path != "" {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("chart written to %s (%d bytes)", path, len(res.Chart.Image))))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatError renders a classified failure.
func FormatError(err error) string {
	return errorStyle.Render(fmt.Sprintf("%s: %s", fault.Code(err), fault.Message(err))) + "\n"
}

// FormatHealth summarizes store coverage.
func FormatHealth(h model.DataHealth) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Data health"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("companies: %d | metric rows: %d\n", h.Companies, h.MetricRows))
	for _, c := range h.Coverage {
		line := fmt.Sprintf("  %-18s %d", c.Metric, c.NonNull)
		if c.NonNull == 0 {
			line = downStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
