package fleet

import "context"

// Source is the metric source adapter. Implementations perform no retries;
// retry policy belongs to the orchestrator.
//
// Fetch fails with *NotFoundError for an unknown vessel or metric,
// *RangeError for an empty or inverted range, and *UpstreamError for any
// transport or availability failure.
type Source interface {
	// Fetch returns the time series for one vessel metric over a range.
	Fetch(ctx context.Context, vesselID int, metric Metric, tr TimeRange) (MetricSeries, error)

	// Vessels lists the known fleet.
	Vessels(ctx context.Context) ([]Vessel, error)
}
