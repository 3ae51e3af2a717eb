package model

import "encoding/base64"

// ExtractedPlotParams is the extractor output for a chart request.
type ExtractedPlotParams struct {
	Ticker  string `json:"ticker"`
	Metric  string `json:"metric"`
	IsTrend bool   `json:"is_trend"`
}

// ChartArtifact is an encoded chart image. PointCount is the number of
// plotted points.
type ChartArtifact struct {
	Image      []byte
	Format     string
	Width      int
	Height     int
	PointCount int
}

// Base64 returns the image as standard base64 text.
func (a ChartArtifact) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Image)
}

// PlotResult is a successful pipeline outcome.
type PlotResult struct {
	Company    string
	Metric     string
	DataPoints []MetricPoint
	IsTrend    bool
	Chart      ChartArtifact
}
