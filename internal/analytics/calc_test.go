package analytics

import (
	"math"
	"reflect"
	"testing"

	"FinSight/internal/model"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSMA(t *testing.T) {
	tests := []struct {
		values  []float64
		period  int
		want    float64
		wantErr bool
	}{
		{[]float64{1, 2, 3, 4}, 2, 3.5, false},
		{[]float64{1, 2, 3, 4}, 4, 2.5, false},
		{[]float64{1, 2}, 3, 0, true},
		{[]float64{1, 2}, 0, 0, true},
	}
	for _, tt := range tests {
		got, err := SMA(tt.values, tt.period)
		if (err != nil) != tt.wantErr {
			t.Errorf("SMA(%v, %d) err = %v", tt.values, tt.period, err)
			continue
		}
		if !approx(got, tt.want) {
			t.Errorf("SMA(%v, %d) = %v, want %v", tt.values, tt.period, got, tt.want)
		}
	}
}

func TestRangeAndPosition(t *testing.T) {
	high, low, err := Range([]float64{5, 9, 2, 7}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if high != 9 || low != 2 {
		t.Errorf("Range = %v/%v, want 9/2", high, low)
	}
	if _, _, err := Range(nil, 3); err == nil {
		t.Error("expected error for empty input")
	}

	pos, _ := Position(7, 9, 2)
	if !approx(pos, 5.0/7.0) {
		t.Errorf("Position = %v", pos)
	}
	if pos, _ := Position(4, 4, 4); pos != 0.5 {
		t.Errorf("flat Position = %v, want 0.5", pos)
	}
	if _, err := Position(1, 1, 2); err == nil {
		t.Error("expected error for high < low")
	}
}

func TestGrowthRates(t *testing.T) {
	got := GrowthRates([]float64{100, 110, 99, 0, 5})
	want := []float64{10, -10, -100, 0}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !approx(got[i], want[i]) {
			t.Errorf("rate %d = %v, want %v", i, got[i], want[i])
		}
	}
	if GrowthRates([]float64{1}) != nil {
		t.Error("single value has no growth")
	}
}

func TestAverageGrowth(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{[]float64{100, 110, 99}, 0}, // +10, -10
		{[]float64{100, 0, 5}, -100},  // step from zero left out
		{[]float64{50, 75}, 50},
		{[]float64{7}, 0},
		{[]float64{0, 0}, 0},
	}
	for _, tt := range tests {
		if got := AverageGrowth(tt.in); !approx(got, tt.want) {
			t.Errorf("AverageGrowth(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMargin(t *testing.T) {
	if m, ok := Margin(25, 100); !ok || !approx(m, 25) {
		t.Errorf("Margin(25, 100) = %v, %v", m, ok)
	}
	if _, ok := Margin(5, 0); ok {
		t.Error("zero revenue has no margin")
	}
	if _, ok := Margin(5, -10); ok {
		t.Error("negative revenue has no margin")
	}
}

func TestSummarize(t *testing.T) {
	series := model.MetricSeries{Metric: "revenue", Points: []model.MetricPoint{
		{Period: "Q1", Value: 10},
		{Period: "Q2", Value: 20},
		{Period: "Q3", Value: 15},
		{Period: "Q4", Value: 25},
		{Period: "Q5", Value: 30},
	}}
	s := Summarize(series, 4)
	if s.Count != 5 || s.First != 10 || s.Last != 30 || s.Min != 10 || s.Max != 30 {
		t.Errorf("stats = %+v", s)
	}
	if !approx(s.Mean, 20) || !approx(s.ChangePct, 200) {
		t.Errorf("mean/change = %v/%v", s.Mean, s.ChangePct)
	}
	if s.MovingAvgN != 4 || !approx(s.MovingAvg, 22.5) {
		t.Errorf("sma = %v over %d", s.MovingAvg, s.MovingAvgN)
	}

	one := Summarize(model.MetricSeries{Points: []model.MetricPoint{{Period: "Q1", Value: 3}}}, 4)
	if one.MovingAvgN != 1 || one.MovingAvg != 3 || one.Growth != nil {
		t.Errorf("single-point stats = %+v", one)
	}
	if empty := Summarize(model.MetricSeries{}, 4); !reflect.DeepEqual(empty, model.SeriesStats{}) {
		t.Errorf("empty stats = %+v", empty)
	}
}

func TestRSI(t *testing.T) {
	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(100 + i)
	}
	if got, _ := RSI(rising, 14); got != 100 {
		t.Errorf("RSI(rising) = %v, want 100", got)
	}
	if got, _ := RSI(rising[:5], 14); got != 50 {
		t.Errorf("RSI(short) = %v, want 50", got)
	}
	if _, err := RSI(rising, 0); err == nil {
		t.Error("expected error for zero period")
	}
}
