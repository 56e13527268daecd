package orchestrator

import (
	"strings"
	"testing"
	"time"

	"shipsense/internal/fleet"
	"shipsense/internal/session"
	"shipsense/internal/tools"
)

func testResolver() *Resolver {
	return &Resolver{DefaultLookback: 7 * 24 * time.Hour}
}

func twoVesselFleet() []fleet.Vessel {
	return []fleet.Vessel{
		{IMO: 9500002, Name: "Pacific Dawn"},
		{IMO: 9700001, Name: "Northern Star"},
	}
}

func TestResolveExplicitSlots(t *testing.T) {
	interp := Interpretation{
		Intent:  IntentFetch,
		Vessels: []VesselRef{{IMO: 9700001}},
		Metrics: []fleet.Metric{fleet.MetricSpeed},
		Start:   testNow.Add(-24 * time.Hour),
		End:     testNow,
	}
	res := testResolver().Resolve(interp, session.Context{}, twoVesselFleet(), testNow)
	if res.NeedsClarification() {
		t.Fatalf("unexpected clarification: %s", res.Clarification)
	}
	step := res.Plan.Steps[0]
	if step.Tool != tools.ToolFetchMetric {
		t.Errorf("tool = %s, want fetch_metric", step.Tool)
	}
	if step.Args["vessel"] != 9700001 || step.Args["metric"] != "speed" {
		t.Errorf("args = %v", step.Args)
	}
}

func TestResolveExplicitBeatsContext(t *testing.T) {
	interp := Interpretation{
		Intent:  IntentFetch,
		Metrics: []fleet.Metric{fleet.MetricFuel},
	}
	sctx := session.Context{VesselIMO: 9500002, Metric: fleet.MetricSpeed}
	res := testResolver().Resolve(interp, sctx, twoVesselFleet(), testNow)
	if res.Plan.Steps[0].Args["metric"] != "fuel_consumption" {
		t.Error("explicit metric should override context")
	}
	if res.Plan.Steps[0].Args["vessel"] != 9500002 {
		t.Error("vessel should come from context when not mentioned")
	}
}

func TestResolveDefaultRange(t *testing.T) {
	interp := Interpretation{
		Intent:  IntentFetch,
		Vessels: []VesselRef{{IMO: 9700001}},
		Metrics: []fleet.Metric{fleet.MetricSpeed},
	}
	res := testResolver().Resolve(interp, session.Context{}, twoVesselFleet(), testNow)
	start := res.Plan.Steps[0].Args["start"].(time.Time)
	end := res.Plan.Steps[0].Args["end"].(time.Time)
	if !end.Equal(testNow) || !start.Equal(testNow.Add(-7*24*time.Hour)) {
		t.Errorf("default range = %s..%s, want 7-day lookback", start, end)
	}
}

func TestResolveContextRangeBeatsDefault(t *testing.T) {
	interp := Interpretation{
		Intent:  IntentFetch,
		Vessels: []VesselRef{{IMO: 9700001}},
		Metrics: []fleet.Metric{fleet.MetricSpeed},
	}
	sctx := session.Context{
		Start: testNow.Add(-48 * time.Hour),
		End:   testNow.Add(-24 * time.Hour),
	}
	res := testResolver().Resolve(interp, sctx, twoVesselFleet(), testNow)
	start := res.Plan.Steps[0].Args["start"].(time.Time)
	if !start.Equal(sctx.Start) {
		t.Error("context range should beat the default lookback")
	}
}

func TestResolveSingleVesselFleetDefaults(t *testing.T) {
	interp := Interpretation{Intent: IntentFetch, Metrics: []fleet.Metric{fleet.MetricSpeed}}
	vessels := fleet.DefaultCatalog().Vessels
	res := testResolver().Resolve(interp, session.Context{}, vessels, testNow)
	if res.NeedsClarification() {
		t.Fatalf("single-vessel fleet should default, got: %s", res.Clarification)
	}
	if res.Plan.Steps[0].Args["vessel"] != 9999999 {
		t.Errorf("vessel = %v, want 9999999", res.Plan.Steps[0].Args["vessel"])
	}
}

func TestResolveClarifiesVessel(t *testing.T) {
	interp := Interpretation{Intent: IntentFetch, Metrics: []fleet.Metric{fleet.MetricSpeed}}
	res := testResolver().Resolve(interp, session.Context{}, twoVesselFleet(), testNow)
	if !res.NeedsClarification() {
		t.Fatal("two-vessel fleet with no mention should clarify")
	}
	if !strings.Contains(res.Clarification, "Pacific Dawn") {
		t.Errorf("clarification should name the options: %s", res.Clarification)
	}
}

func TestResolveClarifiesMetric(t *testing.T) {
	interp := Interpretation{Intent: IntentFetch, Vessels: []VesselRef{{IMO: 9700001}}}
	res := testResolver().Resolve(interp, session.Context{}, twoVesselFleet(), testNow)
	if !res.NeedsClarification() {
		t.Fatal("missing metric with empty context should clarify")
	}
	if !strings.Contains(res.Clarification, "fuel_consumption") {
		t.Errorf("clarification should list metrics: %s", res.Clarification)
	}
}

func TestResolveCompareTwoVessels(t *testing.T) {
	interp := Interpretation{
		Intent:  IntentCompare,
		Vessels: []VesselRef{{IMO: 9500002}, {IMO: 9700001}},
		Metrics: []fleet.Metric{fleet.MetricSpeed},
	}
	res := testResolver().Resolve(interp, session.Context{}, twoVesselFleet(), testNow)
	if res.NeedsClarification() {
		t.Fatalf("unexpected clarification: %s", res.Clarification)
	}
	if len(res.Plan.Steps) != 3 {
		t.Fatalf("compare plan should have 3 steps, got %d", len(res.Plan.Steps))
	}
	if res.Plan.Steps[0].Args["vessel"] != 9500002 || res.Plan.Steps[1].Args["vessel"] != 9700001 {
		t.Error("fetch steps should target the two vessels")
	}
	final := res.Plan.Steps[2]
	if final.Tool != tools.ToolCompareMetrics || len(final.Bindings) != 2 {
		t.Errorf("final step should join both fetches: %+v", final)
	}
}

func TestResolveCompareTwoMetrics(t *testing.T) {
	interp := Interpretation{
		Intent:  IntentCompare,
		Metrics: []fleet.Metric{fleet.MetricSpeed, fleet.MetricFuel},
	}
	sctx := session.Context{VesselIMO: 9700001}
	res := testResolver().Resolve(interp, sctx, twoVesselFleet(), testNow)
	if res.NeedsClarification() {
		t.Fatalf("unexpected clarification: %s", res.Clarification)
	}
	if res.Plan.Steps[0].Args["metric"] != "speed" || res.Plan.Steps[1].Args["metric"] != "fuel_consumption" {
		t.Error("fetch steps should target the two metrics")
	}
}

func TestResolveCompareUnderspecified(t *testing.T) {
	interp := Interpretation{Intent: IntentCompare, Metrics: []fleet.Metric{fleet.MetricSpeed}}
	res := testResolver().Resolve(interp, session.Context{VesselIMO: 9700001}, twoVesselFleet(), testNow)
	if !res.NeedsClarification() {
		t.Error("compare with one metric and one vessel should clarify")
	}
}

func TestResolveListNeedsNothing(t *testing.T) {
	res := testResolver().Resolve(Interpretation{Intent: IntentList}, session.Context{}, nil, testNow)
	if res.NeedsClarification() {
		t.Fatal("list should never clarify")
	}
	if res.Plan.Steps[0].Tool != tools.ToolListVessels {
		t.Errorf("tool = %s, want list_vessels", res.Plan.Steps[0].Tool)
	}
}

func TestResolveUnknownClarifies(t *testing.T) {
	res := testResolver().Resolve(Interpretation{Intent: IntentUnknown}, session.Context{}, nil, testNow)
	if !res.NeedsClarification() {
		t.Error("unknown intent should ask what to do")
	}
}

func TestResolveContextUpdateCarriesSlots(t *testing.T) {
	interp := Interpretation{
		Intent:  IntentFetch,
		Vessels: []VesselRef{{IMO: 9700001}},
		Metrics: []fleet.Metric{fleet.MetricSpeed},
	}
	res := testResolver().Resolve(interp, session.Context{}, twoVesselFleet(), testNow)
	if res.ContextUpdate.VesselIMO != 9700001 || res.ContextUpdate.Metric != fleet.MetricSpeed {
		t.Errorf("context update = %+v", res.ContextUpdate)
	}
	if !res.ContextUpdate.HasRange() {
		t.Error("resolved range should be pinned to context")
	}
}
