package fleet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func testRange(hours int) TimeRange {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return TimeRange{Start: start, End: start.Add(time.Duration(hours) * time.Hour)}
}

func TestMockFetchDeterministic(t *testing.T) {
	src := NewMockSource(nil)
	ctx := context.Background()
	tr := testRange(24)

	first, err := src.Fetch(ctx, 9999999, MetricSpeed, tr)
	if err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	second, err := src.Fetch(ctx, 9999999, MetricSpeed, tr)
	if err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated fetch differs (-first +second):\n%s", diff)
	}
}

func TestMockFetchPointCount(t *testing.T) {
	src := NewMockSource(nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		hours  int
		points int
	}{
		{"day is hourly", 24, 24},
		{"two days is hourly", 48, 48},
		{"week is six-hourly", 7 * 24, 28},
		{"month is daily", 30 * 24, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			series, err := src.Fetch(ctx, 9999999, MetricFuel, testRange(tc.hours))
			if err != nil {
				t.Fatalf("fetch failed: %v", err)
			}
			if series.Len() != tc.points {
				t.Errorf("got %d points, want %d", series.Len(), tc.points)
			}
		})
	}
}

func TestMockFetchUnknownVessel(t *testing.T) {
	src := NewMockSource(nil)
	_, err := src.Fetch(context.Background(), 1234567, MetricSpeed, testRange(24))
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Kind != "vessel" {
		t.Errorf("expected vessel not-found, got kind %q", nf.Kind)
	}
}

func TestMockFetchUnknownMetric(t *testing.T) {
	src := NewMockSource(nil)
	_, err := src.Fetch(context.Background(), 9999999, Metric("cargo_temp"), testRange(24))
	if !IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestMockFetchInvalidRange(t *testing.T) {
	src := NewMockSource(nil)
	tr := testRange(24)
	tr.Start, tr.End = tr.End, tr.Start
	_, err := src.Fetch(context.Background(), 9999999, MetricSpeed, tr)
	if !IsRangeError(err) {
		t.Fatalf("expected RangeError for inverted range, got %v", err)
	}
}

func TestMockFetchCancelled(t *testing.T) {
	src := NewMockSource(nil)
	src.Latency = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Fetch(ctx, 9999999, MetricSpeed, testRange(24))
	if !IsUpstream(err) {
		t.Fatalf("expected UpstreamError on cancelled context, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected wrapped context.Canceled, got %v", err)
	}
}

func TestMockConditioningShiftsValues(t *testing.T) {
	src := NewMockSource(nil)
	ctx := context.Background()
	tr := testRange(24)

	calm, err := src.Fetch(ctx, 9999999, MetricFuel, tr)
	if err != nil {
		t.Fatalf("calm fetch failed: %v", err)
	}

	storm := DefaultConditioning()
	storm.WindSpeed = 20
	storm.WindDirection = 60 // headwind component
	storm.WaveHeight = 6
	src.SetConditioning(storm)

	heavy, err := src.Fetch(ctx, 9999999, MetricFuel, tr)
	if err != nil {
		t.Fatalf("storm fetch failed: %v", err)
	}

	_, _, calmMean, ok := calm.Stats()
	if !ok {
		t.Fatal("calm series has no data")
	}
	_, _, heavyMean, ok := heavy.Stats()
	if !ok {
		t.Fatal("storm series has no data")
	}
	if heavyMean <= calmMean {
		t.Errorf("storm fuel mean %.2f should exceed calm mean %.2f", heavyMean, calmMean)
	}
}

func TestMockPowerClampEmitsWarning(t *testing.T) {
	// Extreme conditions push power past 90% MCR so every point is clamped.
	src := NewMockSource(nil)
	severe := DefaultConditioning()
	severe.WindSpeed = 30
	severe.WindDirection = 89 // strongest headwind component
	severe.WaveHeight = 12
	severe.MeanDraft = 25
	src.SetConditioning(severe)

	series, err := src.Fetch(context.Background(), 9999999, MetricPower, testRange(24))
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(series.Warnings) == 0 {
		t.Fatal("expected clamp warnings under severe conditions")
	}
	for _, w := range series.Warnings {
		if w.Code != "max_mcr_limit_exceeded" {
			t.Errorf("unexpected warning code %q", w.Code)
		}
	}
	limit := 21900.0 * 0.9
	for i, p := range series.Points {
		if p.Value != nil && *p.Value > limit {
			t.Errorf("point %d value %.2f exceeds MCR limit %.2f", i, *p.Value, limit)
		}
	}
}

func TestMockVessels(t *testing.T) {
	src := NewMockSource(nil)
	vessels, err := src.Vessels(context.Background())
	if err != nil {
		t.Fatalf("vessels failed: %v", err)
	}
	if len(vessels) != 1 || vessels[0].Name != "Demo Vessel" {
		t.Errorf("unexpected default fleet: %+v", vessels)
	}
}
