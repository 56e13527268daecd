package tools

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"shipsense/internal/fleet"
)

// Tool names exposed to the interpreter.
const (
	ToolFetchMetric     = "fetch_metric"
	ToolCompareMetrics  = "compare_metrics"
	ToolSummarizeMetric = "summarize_metric"
	ToolListVessels     = "list_vessels"
)

// NewShipRegistry builds a registry with the ship performance toolset
// bound to the given metric source.
func NewShipRegistry(src fleet.Source) *Registry {
	r := NewRegistry()
	r.MustRegister(fetchMetricTool(src))
	r.MustRegister(compareMetricsTool())
	r.MustRegister(summarizeMetricTool(src))
	r.MustRegister(listVesselsTool(src))
	return r
}

func metricEnum() []any {
	enum := make([]any, len(fleet.AllMetrics))
	for i, m := range fleet.AllMetrics {
		enum[i] = string(m)
	}
	return enum
}

func fetchSchema() ToolSchema {
	return ToolSchema{
		Required: []string{"vessel", "metric", "start", "end"},
		Properties: map[string]Property{
			"vessel": {
				Type:        "integer",
				Description: "IMO number of the vessel",
				ContextSlot: true,
			},
			"metric": {
				Type:        "string",
				Description: "performance metric name",
				Enum:        metricEnum(),
				ContextSlot: true,
			},
			"start": {
				Type:        "string",
				Description: "range start, RFC 3339",
				ContextSlot: true,
			},
			"end": {
				Type:        "string",
				Description: "range end, RFC 3339",
				ContextSlot: true,
			},
		},
	}
}

func fetchMetricTool(src fleet.Source) *Tool {
	return &Tool{
		Name:        ToolFetchMetric,
		Description: "Fetch the time series for one vessel performance metric over a time range.",
		Schema:      fetchSchema(),
		Execute: func(ctx context.Context, args map[string]any) (*Payload, error) {
			vessel, metric, tr, err := fetchArgs(args)
			if err != nil {
				return nil, err
			}
			series, err := src.Fetch(ctx, vessel, metric, tr)
			if err != nil {
				return nil, err
			}
			return &Payload{Series: []fleet.MetricSeries{series}}, nil
		},
	}
}

func compareMetricsTool() *Tool {
	return &Tool{
		Name:        ToolCompareMetrics,
		Description: "Combine two fetched metric series into one comparable result.",
		Schema: ToolSchema{
			Required: []string{"left_series", "right_series"},
			Properties: map[string]Property{
				"left_series":  {Type: "series", Description: "first series, bound from a fetch step"},
				"right_series": {Type: "series", Description: "second series, bound from a fetch step"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (*Payload, error) {
			left, err := argSeries(args, "left_series")
			if err != nil {
				return nil, err
			}
			right, err := argSeries(args, "right_series")
			if err != nil {
				return nil, err
			}
			return &Payload{Series: []fleet.MetricSeries{left, right}}, nil
		},
	}
}

func summarizeMetricTool(src fleet.Source) *Tool {
	return &Tool{
		Name:        ToolSummarizeMetric,
		Description: "Fetch one vessel metric over a time range and reduce it to min, max, and mean.",
		Schema:      fetchSchema(),
		Execute: func(ctx context.Context, args map[string]any) (*Payload, error) {
			vessel, metric, tr, err := fetchArgs(args)
			if err != nil {
				return nil, err
			}
			series, err := src.Fetch(ctx, vessel, metric, tr)
			if err != nil {
				return nil, err
			}
			min, max, mean, ok := series.Stats()
			summary := &Summary{
				Title: series.Name(),
				Unit:  metric.Unit(),
			}
			if ok {
				summary.Items = []SummaryItem{
					{Label: "min", Value: min},
					{Label: "max", Value: max},
					{Label: "mean", Value: mean},
					{Label: "samples", Value: float64(series.Len())},
				}
			}
			return &Payload{Summary: summary}, nil
		},
	}
}

func listVesselsTool(src fleet.Source) *Tool {
	return &Tool{
		Name:        ToolListVessels,
		Description: "List the vessels available for performance queries.",
		Schema:      ToolSchema{Properties: map[string]Property{}},
		Execute: func(ctx context.Context, args map[string]any) (*Payload, error) {
			vessels, err := src.Vessels(ctx)
			if err != nil {
				return nil, err
			}
			return &Payload{Listing: &Listing{Vessels: vessels}}, nil
		},
	}
}

// fetchArgs coerces the shared vessel/metric/start/end argument set.
func fetchArgs(args map[string]any) (int, fleet.Metric, fleet.TimeRange, error) {
	vessel, err := argInt(args, "vessel")
	if err != nil {
		return 0, "", fleet.TimeRange{}, err
	}
	rawMetric, err := argString(args, "metric")
	if err != nil {
		return 0, "", fleet.TimeRange{}, err
	}
	metric, err := fleet.ParseMetric(rawMetric)
	if err != nil {
		return 0, "", fleet.TimeRange{}, err
	}
	start, err := argTime(args, "start")
	if err != nil {
		return 0, "", fleet.TimeRange{}, err
	}
	end, err := argTime(args, "end")
	if err != nil {
		return 0, "", fleet.TimeRange{}, err
	}
	return vessel, metric, fleet.TimeRange{Start: start, End: end}, nil
}

func argInt(args map[string]any, key string) (int, error) {
	switch v := args[key].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrBadArgument, key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s has type %T", ErrBadArgument, key, args[key])
	}
}

func argString(args map[string]any, key string) (string, error) {
	s, ok := args[key].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s has type %T", ErrBadArgument, key, args[key])
	}
	return s, nil
}

func argTime(args map[string]any, key string) (time.Time, error) {
	switch v := args[key].(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %s=%q is not RFC 3339", ErrBadArgument, key, v)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("%w: %s has type %T", ErrBadArgument, key, args[key])
	}
}

func argSeries(args map[string]any, key string) (fleet.MetricSeries, error) {
	switch v := args[key].(type) {
	case fleet.MetricSeries:
		return v, nil
	case *fleet.MetricSeries:
		return *v, nil
	default:
		return fleet.MetricSeries{}, fmt.Errorf("%w: %s has type %T", ErrBadArgument, key, args[key])
	}
}
