package fleet

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"shipsense/internal/logging"
)

// RESTSource fetches metrics from a Toqua-style HTTP API.
//
// Wire shape:
//
//	GET /ships                                          -> []Vessel
//	GET /ships/{imo}/metrics/{metric}?start=..&end=..   -> seriesResponse
//
// Status mapping: 404 -> NotFoundError, 422 -> RangeError, everything
// else non-2xx (and transport failures) -> UpstreamError. The source
// performs no retries.
type RESTSource struct {
	client *resty.Client
}

// seriesResponse is the JSON body of a metric fetch.
type seriesResponse struct {
	IMO      int             `json:"imo"`
	Metric   string          `json:"metric"`
	Points   []DataPoint     `json:"points"`
	Warnings []SeriesWarning `json:"warnings"`
}

type apiError struct {
	Detail string `json:"detail"`
}

// NewRESTSource creates a REST source against the given base URL.
// The API key is sent as the X-API-Key header on every request.
func NewRESTSource(baseURL, apiKey string, timeout time.Duration) *RESTSource {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}
	return &RESTSource{client: client}
}

// Vessels implements Source.
func (r *RESTSource) Vessels(ctx context.Context) ([]Vessel, error) {
	var vessels []Vessel
	resp, err := r.client.R().
		SetContext(ctx).
		SetResult(&vessels).
		Get("/ships")
	if err != nil {
		return nil, &UpstreamError{Op: "vessels", Err: err}
	}
	if resp.IsError() {
		return nil, r.statusError("vessels", resp, "fleet", "")
	}
	SortVessels(vessels)
	return vessels, nil
}

// Fetch implements Source.
func (r *RESTSource) Fetch(ctx context.Context, vesselID int, metric Metric, tr TimeRange) (MetricSeries, error) {
	timer := logging.StartTimer(logging.CategoryAPI, "rest fetch")
	defer timer.Stop()

	if err := tr.Validate(); err != nil {
		return MetricSeries{}, err
	}

	var body seriesResponse
	var apiErr apiError
	resp, err := r.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"imo":    strconv.Itoa(vesselID),
			"metric": string(metric),
		}).
		SetQueryParams(map[string]string{
			"start": tr.Start.UTC().Format(time.RFC3339),
			"end":   tr.End.UTC().Format(time.RFC3339),
		}).
		SetResult(&body).
		SetError(&apiErr).
		Get("/ships/{imo}/metrics/{metric}")
	if err != nil {
		return MetricSeries{}, &UpstreamError{Op: "fetch", Err: err}
	}
	if resp.IsError() {
		if resp.StatusCode() == http.StatusUnprocessableEntity {
			return MetricSeries{}, &RangeError{Range: tr, Reason: apiErr.Detail}
		}
		return MetricSeries{}, r.statusError("fetch", resp, "vessel", strconv.Itoa(vesselID))
	}

	logging.APIDebug("rest fetch: imo=%d metric=%s status=%d points=%d",
		vesselID, metric, resp.StatusCode(), len(body.Points))

	return MetricSeries{
		VesselID: vesselID,
		Metric:   metric,
		Range:    tr,
		Points:   body.Points,
		Warnings: body.Warnings,
	}, nil
}

func (r *RESTSource) statusError(op string, resp *resty.Response, kind, name string) error {
	if resp.StatusCode() == http.StatusNotFound {
		return &NotFoundError{Kind: kind, Name: name}
	}
	return &UpstreamError{
		Op:  op,
		Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), resp.Status()),
	}
}
