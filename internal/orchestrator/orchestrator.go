// Package orchestrator runs the query-to-action loop: interpret an
// utterance, fill the open slots, dispatch the planned tool calls,
// merge their results, and respond. Each turn moves through the
// phases in order and ends with exactly one committed turn.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shipsense/internal/config"
	"shipsense/internal/fleet"
	"shipsense/internal/logging"
	"shipsense/internal/session"
	"shipsense/internal/tools"
	"shipsense/internal/viz"
)

// Phase is where a turn is in its lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInterpreting
	PhaseResolving
	PhaseDispatching
	PhaseMerging
	PhaseResponding
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInterpreting:
		return "interpreting"
	case PhaseResolving:
		return "resolving"
	case PhaseDispatching:
		return "dispatching"
	case PhaseMerging:
		return "merging"
	case PhaseResponding:
		return "responding"
	default:
		return "unknown"
	}
}

// Orchestrator owns the turn loop for all sessions.
type Orchestrator struct {
	source     fleet.Source
	store      *session.Store
	archive    *session.Archive
	interp     Interpreter
	dispatcher *Dispatcher
	resolver   *Resolver
	now        func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock injects the time source. Tests use a fixed clock so
// relative time phrases resolve deterministically.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithArchive persists committed turns to the given archive.
func WithArchive(a *session.Archive) Option {
	return func(o *Orchestrator) { o.archive = a }
}

// WithInterpreter replaces the rule interpreter.
func WithInterpreter(i Interpreter) Option {
	return func(o *Orchestrator) { o.interp = i }
}

// New wires an orchestrator over a metric source.
func New(cfg *config.Config, src fleet.Source, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source: src,
		store:  session.NewStore(),
		interp: RuleInterpreter{},
		dispatcher: NewDispatcher(
			tools.NewShipRegistry(src),
			cfg.GetToolTimeout(),
			cfg.Orchestrator.MaxRetries,
			cfg.GetRetryBackoff(),
		),
		resolver: &Resolver{DefaultLookback: cfg.GetDefaultLookback()},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sessions exposes the session store.
func (o *Orchestrator) Sessions() *session.Store {
	return o.store
}

// SubmitTurn processes one utterance for a session and returns the
// committed turn. Failures inside the turn are captured on the turn
// itself; the error return is reserved for a cancelled context.
func (o *Orchestrator) SubmitTurn(ctx context.Context, sessionID, utterance string) (*session.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timer := logging.StartTimer(logging.CategoryOrchestrator, "turn")
	defer timer.Stop()

	sess := o.store.GetOrCreate(sessionID)
	sctx := sess.Context()

	vessels, err := o.source.Vessels(ctx)
	if err != nil {
		logging.OrchestratorWarn("fleet listing unavailable for hints: %v", err)
	}

	o.enter(PhaseInterpreting, sessionID)
	hints := Hints{Vessels: vessels, Now: o.now(), LastChartKind: sctx.LastChartKind}
	interp, err := o.interp.Interpret(ctx, utterance, hints)
	if err != nil {
		logging.OrchestratorWarn("interpretation failed, treating as unknown: %v", err)
		interp = Interpretation{Intent: IntentUnknown}
	}

	o.enter(PhaseResolving, sessionID)
	res := o.resolver.Resolve(interp, sctx, vessels, hints.Now)
	if res.NeedsClarification() {
		o.enter(PhaseResponding, sessionID)
		turn := sess.Commit(session.Turn{
			Utterance:     utterance,
			Intent:        string(interp.Intent),
			Clarification: res.Clarification,
			Response:      res.Clarification,
		}, session.Context{})
		o.persist(turn)
		o.enter(PhaseIdle, sessionID)
		return &turn, nil
	}

	o.enter(PhaseDispatching, sessionID)
	results, dispatchErr := o.dispatcher.Run(ctx, res.Plan)

	// A turn cancelled while its tools were in flight is discarded
	// whole; nothing partial reaches the session log.
	if err := ctx.Err(); err != nil {
		logging.OrchestratorWarn("session %s: turn cancelled mid-dispatch, discarding", sessionID)
		o.enter(PhaseIdle, sessionID)
		return nil, err
	}

	o.enter(PhaseMerging, sessionID)
	var chart *viz.ChartSpec
	merged, mergeErr := MergeResults(results)
	if mergeErr == nil {
		built, buildErr := viz.Build(merged)
		if buildErr == nil {
			chart = built
		} else if !viz.IsUnsupportedShape(buildErr) {
			logging.OrchestratorWarn("chart build failed: %v", buildErr)
		}
	}

	o.enter(PhaseResponding, sessionID)
	turn := session.Turn{
		Utterance: utterance,
		Intent:    string(res.Plan.Intent),
		Results:   results,
		Chart:     chart,
		Response:  composeResponse(res.Plan.Intent, merged, dispatchErr),
	}
	if dispatchErr != nil {
		turn.Err = dispatchErr.Error()
	}

	update := res.ContextUpdate
	if chart != nil {
		update.LastChartKind = chart.Kind
	}
	committed := sess.Commit(turn, update)
	o.persist(committed)
	o.enter(PhaseIdle, sessionID)
	return &committed, nil
}

func (o *Orchestrator) enter(p Phase, sessionID string) {
	logging.OrchestratorDebug("session %s: phase=%s", sessionID, p)
}

func (o *Orchestrator) persist(turn session.Turn) {
	if o.archive == nil {
		return
	}
	if err := o.archive.SaveTurn(turn); err != nil {
		logging.OrchestratorWarn("failed to archive turn %s: %v", turn.ID, err)
	}
}

// composeResponse renders the answer text for a merged payload.
func composeResponse(intent Intent, payload *tools.Payload, dispatchErr error) string {
	if dispatchErr != nil {
		msg := userMessage(dispatchErr)
		if payload != nil {
			msg += " I kept the data that did come back."
		}
		return msg
	}
	if payload == nil {
		return "I didn't get any data back."
	}

	switch {
	case payload.Listing != nil:
		return describeListing(payload.Listing)
	case payload.Summary != nil:
		return describeSummary(payload.Summary)
	case len(payload.Series) > 1:
		return describeComparison(payload.Series)
	case len(payload.Series) == 1:
		return describeSeries(payload.Series[0])
	default:
		return "I didn't get any data back."
	}
}

func describeListing(listing *tools.Listing) string {
	if len(listing.Vessels) == 0 {
		return "No vessels are available right now."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "I know about %d vessel(s):\n", len(listing.Vessels))
	for _, v := range listing.Vessels {
		fmt.Fprintf(&b, "- %s (IMO %d, %s", v.Name, v.IMO, v.Type)
		if v.DWT > 0 {
			fmt.Fprintf(&b, ", %.0f DWT", v.DWT)
		}
		b.WriteString(")\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeSummary(summary *tools.Summary) string {
	if len(summary.Items) == 0 {
		return fmt.Sprintf("%s: no data in that range.", summary.Title)
	}
	parts := make([]string, 0, len(summary.Items))
	for _, item := range summary.Items {
		if item.Label == "samples" {
			parts = append(parts, fmt.Sprintf("%.0f samples", item.Value))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %.2f %s", item.Label, item.Value, summary.Unit))
	}
	return fmt.Sprintf("%s: %s.", summary.Title, strings.Join(parts, ", "))
}

func describeSeries(s fleet.MetricSeries) string {
	min, max, mean, ok := s.Stats()
	if !ok {
		return fmt.Sprintf("%s: no data between %s.", s.Name(), s.Range)
	}
	msg := fmt.Sprintf("%s over %s: %d samples, mean %.2f %s (range %.2f to %.2f).",
		s.Name(), s.Range, s.Len(), mean, s.Metric.Unit(), min, max)
	if len(s.Warnings) > 0 {
		msg += fmt.Sprintf(" Engine limits clamped %d sample(s).", len(s.Warnings))
	}
	return msg
}

func describeComparison(series []fleet.MetricSeries) string {
	parts := make([]string, 0, len(series))
	for _, s := range series {
		_, _, mean, ok := s.Stats()
		if !ok {
			parts = append(parts, fmt.Sprintf("%s has no data", s.Name()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s averages %.2f %s", s.Name(), mean, s.Metric.Unit()))
	}
	return "Comparison: " + strings.Join(parts, "; ") + "."
}
