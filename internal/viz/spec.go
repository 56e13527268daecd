// Package viz turns tool payloads into renderer-neutral chart specs.
// Building a spec is pure: no I/O, no clock, no randomness. The same
// payload always produces the same spec.
package viz

// ChartKind selects the visual shape of a chart.
type ChartKind string

const (
	KindLine ChartKind = "line" // single or overlaid time series
	KindBar  ChartKind = "bar"  // labelled aggregate values
)

// Point is one chart sample. V is nil where the source had no data;
// renderers must show a gap, not zero.
type Point struct {
	T int64    `json:"t"` // unix seconds
	V *float64 `json:"v"`
}

// Series is one named line on a chart.
type Series struct {
	Name   string  `json:"name"`
	Unit   string  `json:"unit"`
	Points []Point `json:"points"`
}

// Annotation marks one point of interest on a chart.
type Annotation struct {
	Label string  `json:"label"`
	T     int64   `json:"t,omitempty"`
	Value float64 `json:"value"`
}

// Bar is one labelled value on a bar chart.
type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartSpec is the complete description of one chart. It contains
// everything a renderer needs and nothing about how to draw it.
type ChartSpec struct {
	Kind        ChartKind    `json:"kind"`
	Title       string       `json:"title"`
	XLabel      string       `json:"x_label,omitempty"`
	YLabel      string       `json:"y_label,omitempty"`
	Series      []Series     `json:"series,omitempty"`
	Bars        []Bar        `json:"bars,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}
