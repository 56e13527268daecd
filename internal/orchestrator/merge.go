package orchestrator

import (
	"errors"
	"sort"
	"time"

	"shipsense/internal/fleet"
	"shipsense/internal/tools"
)

// ErrNoResults is returned when a plan produced nothing mergeable.
var ErrNoResults = errors.New("no successful results to merge")

// MergeResults folds the per-step results of a plan into one payload.
// The final step's payload wins; when it holds several series, they
// are aligned onto the union of their timestamps so renderers see one
// shared axis, with explicit no-data markers where a series had no
// sample.
func MergeResults(results []tools.ToolResult) (*tools.Payload, error) {
	var last *tools.Payload
	for i := range results {
		if results[i].OK() && results[i].Payload != nil {
			last = results[i].Payload
		}
	}
	if last == nil {
		return nil, ErrNoResults
	}

	if len(last.Series) > 1 {
		return &tools.Payload{
			Series:  AlignSeries(last.Series),
			Summary: last.Summary,
			Listing: last.Listing,
		}, nil
	}
	return last, nil
}

// AlignSeries reindexes every series onto the sorted union of all
// their timestamps. Points a series never had come back with a nil
// value. Input series are not mutated.
func AlignSeries(series []fleet.MetricSeries) []fleet.MetricSeries {
	stamps := make(map[int64]time.Time)
	for _, s := range series {
		for _, p := range s.Points {
			stamps[p.Timestamp.Unix()] = p.Timestamp
		}
	}

	axis := make([]time.Time, 0, len(stamps))
	for _, t := range stamps {
		axis = append(axis, t)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })

	aligned := make([]fleet.MetricSeries, len(series))
	for i, s := range series {
		byStamp := make(map[int64]*float64, len(s.Points))
		for _, p := range s.Points {
			byStamp[p.Timestamp.Unix()] = p.Value
		}

		out := s
		out.Points = make([]fleet.DataPoint, len(axis))
		for j, t := range axis {
			out.Points[j] = fleet.DataPoint{Timestamp: t, Value: byStamp[t.Unix()]}
		}
		aligned[i] = out
	}
	return aligned
}
