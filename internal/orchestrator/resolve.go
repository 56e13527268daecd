package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"shipsense/internal/fleet"
	"shipsense/internal/logging"
	"shipsense/internal/session"
	"shipsense/internal/tools"
)

// Resolution is the outcome of slot filling: either a runnable plan
// plus the context slots it pins, or a clarification question.
type Resolution struct {
	Plan          Plan
	ContextUpdate session.Context
	Clarification string
}

// NeedsClarification reports whether the turn must go back to the user.
func (r Resolution) NeedsClarification() bool {
	return r.Clarification != ""
}

// Resolver fills the slots an interpretation left open. Each slot is
// tried in order: the utterance itself, then the active context, then
// a default, and only then a clarification question.
type Resolver struct {
	DefaultLookback time.Duration
}

// Resolve turns an interpretation into a plan or a clarification.
func (r *Resolver) Resolve(interp Interpretation, sctx session.Context, vessels []fleet.Vessel, now time.Time) Resolution {
	switch interp.Intent {
	case IntentList:
		return Resolution{Plan: Plan{
			Intent: IntentList,
			Steps:  []Step{{Tool: tools.ToolListVessels, Args: map[string]any{}}},
		}}
	case IntentUnknown:
		return Resolution{Clarification: "I can plot, summarize, or compare ship performance metrics, " +
			"or list the available vessels. What would you like to see?"}
	case IntentCompare:
		return r.resolveCompare(interp, sctx, vessels, now)
	default:
		return r.resolveSingle(interp, sctx, vessels, now)
	}
}

// resolveSingle handles fetch and summarize: one vessel, one metric,
// one range.
func (r *Resolver) resolveSingle(interp Interpretation, sctx session.Context, vessels []fleet.Vessel, now time.Time) Resolution {
	imo, clarify := r.resolveVessel(interp.Vessels, sctx, vessels)
	if clarify != "" {
		return Resolution{Clarification: clarify}
	}
	metric, clarify := r.resolveMetric(interp.Metrics, sctx)
	if clarify != "" {
		return Resolution{Clarification: clarify}
	}
	start, end := r.resolveRange(interp, sctx, now)

	tool := tools.ToolFetchMetric
	if interp.Intent == IntentSummarize {
		tool = tools.ToolSummarizeMetric
	}
	logging.OrchestratorDebug("resolved %s: imo=%d metric=%s range=%s..%s",
		interp.Intent, imo, metric, start.Format(time.RFC3339), end.Format(time.RFC3339))

	return Resolution{
		Plan: Plan{
			Intent: interp.Intent,
			Steps:  []Step{{Tool: tool, Args: fetchArgs(imo, metric, start, end)}},
		},
		ContextUpdate: session.Context{VesselIMO: imo, Metric: metric, Start: start, End: end},
	}
}

// resolveCompare handles the two comparison shapes: two vessels on one
// metric, or two metrics on one vessel. Both fan out two fetches and
// join them in a final compare step.
func (r *Resolver) resolveCompare(interp Interpretation, sctx session.Context, vessels []fleet.Vessel, now time.Time) Resolution {
	start, end := r.resolveRange(interp, sctx, now)

	if len(interp.Vessels) >= 2 {
		metric, clarify := r.resolveMetric(interp.Metrics, sctx)
		if clarify != "" {
			return Resolution{Clarification: clarify}
		}
		left, right := interp.Vessels[0].IMO, interp.Vessels[1].IMO
		return Resolution{
			Plan: comparePlan(
				fetchArgs(left, metric, start, end),
				fetchArgs(right, metric, start, end),
			),
			ContextUpdate: session.Context{VesselIMO: left, Metric: metric, Start: start, End: end},
		}
	}

	if len(interp.Metrics) >= 2 {
		imo, clarify := r.resolveVessel(interp.Vessels, sctx, vessels)
		if clarify != "" {
			return Resolution{Clarification: clarify}
		}
		return Resolution{
			Plan: comparePlan(
				fetchArgs(imo, interp.Metrics[0], start, end),
				fetchArgs(imo, interp.Metrics[1], start, end),
			),
			ContextUpdate: session.Context{VesselIMO: imo, Metric: interp.Metrics[0], Start: start, End: end},
		}
	}

	return Resolution{Clarification: "What should I compare? Name two vessels for one metric, " +
		"or two metrics for one vessel."}
}

func comparePlan(leftArgs, rightArgs map[string]any) Plan {
	return Plan{
		Intent: IntentCompare,
		Steps: []Step{
			{Tool: tools.ToolFetchMetric, Args: leftArgs},
			{Tool: tools.ToolFetchMetric, Args: rightArgs},
			{
				Tool: tools.ToolCompareMetrics,
				Args: map[string]any{},
				Bindings: []Binding{
					{Arg: "left_series", FromStep: 0},
					{Arg: "right_series", FromStep: 1},
				},
			},
		},
	}
}

// resolveVessel picks the vessel: explicit mention, then context, then
// a single-vessel fleet default.
func (r *Resolver) resolveVessel(refs []VesselRef, sctx session.Context, vessels []fleet.Vessel) (int, string) {
	for _, ref := range refs {
		if ref.IMO != 0 {
			return ref.IMO, ""
		}
	}
	if sctx.VesselIMO != 0 {
		return sctx.VesselIMO, ""
	}
	if len(vessels) == 1 {
		return vessels[0].IMO, ""
	}
	return 0, "Which vessel do you mean? I know about: " + vesselNames(vessels) + "."
}

// resolveMetric picks the metric: explicit mention, then context.
// There is no sensible default metric.
func (r *Resolver) resolveMetric(metrics []fleet.Metric, sctx session.Context) (fleet.Metric, string) {
	if len(metrics) > 0 {
		return metrics[0], ""
	}
	if sctx.Metric != "" {
		return sctx.Metric, ""
	}
	return "", "Which metric would you like? I can show: " + metricNames() + "."
}

// resolveRange picks the range: explicit mention, then context, then
// the configured lookback window ending now.
func (r *Resolver) resolveRange(interp Interpretation, sctx session.Context, now time.Time) (time.Time, time.Time) {
	if !interp.Start.IsZero() && !interp.End.IsZero() {
		return interp.Start, interp.End
	}
	if sctx.HasRange() {
		return sctx.Start, sctx.End
	}
	lookback := r.DefaultLookback
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	return now.Add(-lookback), now
}

func fetchArgs(imo int, metric fleet.Metric, start, end time.Time) map[string]any {
	return map[string]any{
		"vessel": imo,
		"metric": string(metric),
		"start":  start,
		"end":    end,
	}
}

func vesselNames(vessels []fleet.Vessel) string {
	if len(vessels) == 0 {
		return "no vessels yet"
	}
	names := make([]string, len(vessels))
	for i, v := range vessels {
		names[i] = fmt.Sprintf("%s (IMO %d)", v.Name, v.IMO)
	}
	return strings.Join(names, ", ")
}

func metricNames() string {
	names := make([]string, len(fleet.AllMetrics))
	for i, m := range fleet.AllMetrics {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
