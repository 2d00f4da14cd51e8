// Package provider exposes query surfaces over scripted analysis
// backends for visualization clients. Providers return data plus a
// declarative style; no rendering happens server side.
package provider

// Series style types understood by clients.
const (
	StyleBar  = "bar"
	StyleLine = "line"
)

// defaultSeriesWidth is the stroke width scripted histogram series get.
const defaultSeriesWidth = 1

// OutputStyle describes how a client should draw one series.
type OutputStyle struct {
	Type  string `json:"type"`
	Width int    `json:"width"`
}

// BarStyle returns the style scripted histogram series always use.
func BarStyle() OutputStyle {
	return OutputStyle{Type: StyleBar, Width: defaultSeriesWidth}
}
