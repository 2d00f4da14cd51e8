package provider

import (
	"fmt"

	"github.com/tracelab/tracelab/internal/backend"
)

// XYSeries is one named series of (x, y) points.
type XYSeries struct {
	ID   int64     `json:"id"`
	Name string    `json:"name"`
	X    []int64   `json:"x"`
	Y    []float64 `json:"y"`
}

// XYModel is the result of an XY query.
type XYModel struct {
	Series []XYSeries `json:"series"`
}

// HistogramProvider buckets a scripted analysis's segments into a bar
// histogram: one series counting segments per time bucket.
type HistogramProvider struct {
	name  string
	store *backend.SegmentStore
}

// NewHistogramProvider creates a histogram provider over a segment store.
func NewHistogramProvider(name string, store *backend.SegmentStore) *HistogramProvider {
	return &HistogramProvider{name: name, store: store}
}

// Name returns the provider's analysis name.
func (p *HistogramProvider) Name() string {
	return p.name
}

// Query counts segments per bucket across [from, to]. A segment counts
// toward every bucket it intersects.
func (p *HistogramProvider) Query(from, to int64, buckets int) (*XYModel, error) {
	if buckets <= 0 {
		return nil, fmt.Errorf("buckets must be positive, got %d", buckets)
	}
	if to < from {
		return nil, fmt.Errorf("invalid range [%d, %d]", from, to)
	}

	width := (to - from + 1) / int64(buckets)
	if width < 1 {
		width = 1
	}

	x := make([]int64, buckets)
	y := make([]float64, buckets)
	for i := 0; i < buckets; i++ {
		x[i] = from + int64(i)*width
	}

	for _, seg := range p.store.Range(from, to) {
		first := (max(seg.Start, from) - from) / width
		last := (min(seg.End, to) - from) / width
		if first < 0 {
			first = 0
		}
		if last >= int64(buckets) {
			last = int64(buckets) - 1
		}
		for i := first; i <= last; i++ {
			y[i]++
		}
	}

	return &XYModel{Series: []XYSeries{{
		ID:   0,
		Name: p.name,
		X:    x,
		Y:    y,
	}}}, nil
}

// GetSeriesStyle returns the style for one series. Scripted histogram
// series are always bars with the default width, whatever the ID.
func (p *HistogramProvider) GetSeriesStyle(seriesID int64) OutputStyle {
	return BarStyle()
}
