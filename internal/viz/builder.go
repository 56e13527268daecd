package viz

import (
	"fmt"

	"shipsense/internal/fleet"
	"shipsense/internal/tools"
)

// UnsupportedShapeError reports a payload that has no chart form.
// Callers fall back to a text-only response.
type UnsupportedShapeError struct {
	Shape string
}

func (e *UnsupportedShapeError) Error() string {
	return fmt.Sprintf("no chart form for %s payloads", e.Shape)
}

// IsUnsupportedShape reports whether err is an UnsupportedShapeError.
func IsUnsupportedShape(err error) bool {
	_, ok := err.(*UnsupportedShapeError)
	return ok
}

// Build derives a chart spec from a tool payload.
//
// One series becomes a line chart with its minimum annotated; several
// series become an overlay. A summary becomes a bar chart. Listings
// and empty payloads have no chart form.
func Build(payload *tools.Payload) (*ChartSpec, error) {
	switch {
	case payload == nil:
		return nil, &UnsupportedShapeError{Shape: "empty"}
	case len(payload.Series) > 0:
		return buildLines(payload.Series)
	case payload.Summary != nil:
		return buildBars(payload.Summary)
	case payload.Listing != nil:
		return nil, &UnsupportedShapeError{Shape: "listing"}
	default:
		return nil, &UnsupportedShapeError{Shape: "empty"}
	}
}

func buildLines(series []fleet.MetricSeries) (*ChartSpec, error) {
	spec := &ChartSpec{
		Kind:   KindLine,
		XLabel: "Time",
	}

	for _, s := range series {
		line := Series{
			Name:   s.Name(),
			Unit:   s.Metric.Unit(),
			Points: make([]Point, 0, s.Len()),
		}
		for _, p := range s.Points {
			line.Points = append(line.Points, Point{T: p.Timestamp.Unix(), V: p.Value})
		}
		spec.Series = append(spec.Series, line)
	}

	if len(series) == 1 {
		s := series[0]
		spec.Title = s.Name()
		spec.YLabel = axisLabel(s.Metric)
		if t, v, ok := seriesMin(spec.Series[0]); ok {
			spec.Annotations = []Annotation{{
				Label: fmt.Sprintf("Min: %.2f %s", v, s.Metric.Unit()),
				T:     t,
				Value: v,
			}}
		}
	} else {
		spec.Title = fmt.Sprintf("%s vs %s", series[0].Name(), series[1].Name())
		spec.YLabel = axisLabel(series[0].Metric)
	}
	return spec, nil
}

func buildBars(summary *tools.Summary) (*ChartSpec, error) {
	if len(summary.Items) == 0 {
		return nil, &UnsupportedShapeError{Shape: "empty summary"}
	}
	spec := &ChartSpec{
		Kind:   KindBar,
		Title:  summary.Title,
		YLabel: summary.Unit,
	}
	for _, item := range summary.Items {
		spec.Bars = append(spec.Bars, Bar{Label: item.Label, Value: item.Value})
	}
	return spec, nil
}

func axisLabel(m fleet.Metric) string {
	if unit := m.Unit(); unit != "" {
		return fmt.Sprintf("%s [%s]", m.Label(), unit)
	}
	return m.Label()
}

// seriesMin finds the lowest non-missing point.
func seriesMin(s Series) (t int64, v float64, ok bool) {
	for _, p := range s.Points {
		if p.V == nil {
			continue
		}
		if !ok || *p.V < v {
			t, v, ok = p.T, *p.V, true
		}
	}
	return t, v, ok
}
