// Package fleet provides the ship performance domain model and the metric
// source adapter. A Source returns time-series metrics for a vessel; the
// concrete transport (mock kernel or REST API) is hidden behind the
// interface.
package fleet

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Vessel is immutable reference data for one ship.
type Vessel struct {
	IMO       int     `yaml:"imo" json:"imo"`
	Name      string  `yaml:"name" json:"name"`
	Type      string  `yaml:"type" json:"type"`
	Country   string  `yaml:"country" json:"country"`
	BuildYear int     `yaml:"build_year" json:"build_year"`
	DWT       float64 `yaml:"dwt" json:"dwt"`
	Beam      float64 `yaml:"beam" json:"beam"`
	LOA       float64 `yaml:"loa" json:"loa"`
	MCR       float64 `yaml:"mcr" json:"mcr"`         // max continuous rating [kW]
	MaxRPM    float64 `yaml:"max_rpm" json:"max_rpm"` // main engine RPM limit
}

// Metric identifies a ship performance metric.
type Metric string

const (
	MetricSpeed         Metric = "speed"            // speed over ground [kn]
	MetricFuel          Metric = "fuel_consumption" // main engine fuel oil consumption [MT/day]
	MetricTrim          Metric = "trim"             // trim [m]
	MetricDraft         Metric = "draft"            // mean draft [m]
	MetricWeatherFactor Metric = "weather_factor"   // combined environmental resistance factor
	MetricRPM           Metric = "rpm"              // main engine RPM
	MetricPower         Metric = "power"            // main engine power [kW]
	MetricEmissions     Metric = "emissions"        // fuel oil emissions [kg/day]
)

// AllMetrics lists every supported metric in a stable order.
var AllMetrics = []Metric{
	MetricSpeed,
	MetricFuel,
	MetricTrim,
	MetricDraft,
	MetricWeatherFactor,
	MetricRPM,
	MetricPower,
	MetricEmissions,
}

// ParseMetric resolves a metric name, case-insensitively.
func ParseMetric(s string) (Metric, error) {
	name := Metric(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range AllMetrics {
		if m == name {
			return m, nil
		}
	}
	return "", &NotFoundError{Kind: "metric", Name: s}
}

// Unit returns the display unit for a metric.
func (m Metric) Unit() string {
	switch m {
	case MetricSpeed:
		return "kn"
	case MetricFuel:
		return "MT/day"
	case MetricTrim, MetricDraft:
		return "m"
	case MetricRPM:
		return "rpm"
	case MetricPower:
		return "kW"
	case MetricEmissions:
		return "kg/day"
	default:
		return ""
	}
}

// Label returns a human-readable metric label.
func (m Metric) Label() string {
	switch m {
	case MetricSpeed:
		return "Speed Over Ground"
	case MetricFuel:
		return "Fuel Consumption"
	case MetricTrim:
		return "Trim"
	case MetricDraft:
		return "Mean Draft"
	case MetricWeatherFactor:
		return "Weather Factor"
	case MetricRPM:
		return "Main Engine RPM"
	case MetricPower:
		return "Main Engine Power"
	case MetricEmissions:
		return "Fuel Emissions"
	default:
		return string(m)
	}
}

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate reports a RangeError for empty or inverted ranges.
func (r TimeRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return &RangeError{Range: r, Reason: "start and end must be set"}
	}
	if !r.End.After(r.Start) {
		return &RangeError{Range: r, Reason: "end must be after start"}
	}
	return nil
}

// Duration returns the span of the range.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

func (r TimeRange) String() string {
	return fmt.Sprintf("%s .. %s", r.Start.UTC().Format(time.RFC3339), r.End.UTC().Format(time.RFC3339))
}

// DataPoint is one sample. A nil Value is an explicit no-data marker.
type DataPoint struct {
	Timestamp time.Time `json:"t"`
	Value     *float64  `json:"v"`
}

// Float is a convenience for building non-nil data point values.
func Float(v float64) *float64 { return &v }

// SeriesWarning flags a per-point condition raised by the source
// (e.g. an engine limit was clamped).
type SeriesWarning struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Index       int    `json:"index"`
}

// MetricSeries is an ordered sequence of samples for one vessel metric.
// It is created by a Source fetch and never mutated afterwards.
type MetricSeries struct {
	VesselID int             `json:"vessel_id"`
	Metric   Metric          `json:"metric"`
	Range    TimeRange       `json:"range"`
	Points   []DataPoint     `json:"points"`
	Warnings []SeriesWarning `json:"warnings,omitempty"`
}

// Len returns the number of points in the series.
func (s MetricSeries) Len() int { return len(s.Points) }

// Name returns the series display name used in chart specs.
func (s MetricSeries) Name() string {
	return fmt.Sprintf("%s (IMO %d)", s.Metric.Label(), s.VesselID)
}

// Stats returns min, max, and mean over the non-missing points.
// ok is false when the series has no data.
func (s MetricSeries) Stats() (min, max, mean float64, ok bool) {
	n := 0
	sum := 0.0
	for _, p := range s.Points {
		if p.Value == nil {
			continue
		}
		v := *p.Value
		if n == 0 || v < min {
			min = v
		}
		if n == 0 || v > max {
			max = v
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0, 0, false
	}
	return min, max, sum / float64(n), true
}

// SortVessels orders vessels by IMO for stable listings.
func SortVessels(vs []Vessel) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].IMO < vs[j].IMO })
}
