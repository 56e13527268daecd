package orchestrator

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"shipsense/internal/fleet"
	"shipsense/internal/logging"
	"shipsense/internal/viz"
)

// Hints carry the ambient facts an interpreter may use: the known
// fleet, the clock, and what the previous turn produced.
type Hints struct {
	Vessels       []fleet.Vessel
	Now           time.Time
	LastChartKind viz.ChartKind
}

// VesselRef is a vessel mention, either by IMO or by name.
type VesselRef struct {
	IMO  int
	Name string
}

// Interpretation is the structured reading of one utterance. Zero
// fields mean the utterance did not mention that slot.
type Interpretation struct {
	Intent  Intent
	Vessels []VesselRef
	Metrics []fleet.Metric
	Start   time.Time
	End     time.Time
}

// Interpreter turns an utterance into an Interpretation.
type Interpreter interface {
	Interpret(ctx context.Context, utterance string, hints Hints) (Interpretation, error)
}

// RuleInterpreter is the deterministic keyword interpreter. It never
// fails; unrecognized utterances come back with IntentUnknown. It also
// serves as the fallback when the LLM interpreter is unavailable.
type RuleInterpreter struct{}

var imoPattern = regexp.MustCompile(`\b(\d{7})\b`)

var relativeRangePattern = regexp.MustCompile(`\b(?:last|past)\s+(\d+)\s+(hour|day|week|month)s?\b`)

// metricSynonyms maps utterance words to metrics. Longer synonyms are
// matched first so "fuel consumption" wins over "fuel".
var metricSynonyms = []struct {
	word   string
	metric fleet.Metric
}{
	{"fuel consumption", fleet.MetricFuel},
	{"weather factor", fleet.MetricWeatherFactor},
	{"fuel", fleet.MetricFuel},
	{"consumption", fleet.MetricFuel},
	{"speed", fleet.MetricSpeed},
	{"sog", fleet.MetricSpeed},
	{"stw", fleet.MetricSpeed},
	{"knots", fleet.MetricSpeed},
	{"rpm", fleet.MetricRPM},
	{"revs", fleet.MetricRPM},
	{"revolutions", fleet.MetricRPM},
	{"power", fleet.MetricPower},
	{"emissions", fleet.MetricEmissions},
	{"emission", fleet.MetricEmissions},
	{"co2", fleet.MetricEmissions},
	{"trim", fleet.MetricTrim},
	{"draught", fleet.MetricDraft},
	{"draft", fleet.MetricDraft},
	{"weather", fleet.MetricWeatherFactor},
}

// Interpret implements Interpreter. It is a pure function of the
// utterance and hints.
func (RuleInterpreter) Interpret(_ context.Context, utterance string, hints Hints) (Interpretation, error) {
	text := strings.ToLower(utterance)

	interp := Interpretation{
		Vessels: findVessels(text, hints.Vessels),
		Metrics: findMetrics(text),
	}
	interp.Start, interp.End = findRange(text, hints.Now)
	interp.Intent = inferIntent(text, interp, hints.LastChartKind)

	logging.OrchestratorDebug("interpreted %q: intent=%s vessels=%d metrics=%v",
		utterance, interp.Intent, len(interp.Vessels), interp.Metrics)
	return interp, nil
}

// findVessels collects vessel mentions in order of appearance.
// IMO numbers and catalog names both count; a name adjacent to its own
// IMO is collapsed into one mention.
func findVessels(text string, known []fleet.Vessel) []VesselRef {
	type mention struct {
		pos int
		ref VesselRef
	}
	var mentions []mention

	for _, match := range imoPattern.FindAllStringIndex(text, -1) {
		imo, err := strconv.Atoi(text[match[0]:match[1]])
		if err != nil {
			continue
		}
		mentions = append(mentions, mention{pos: match[0], ref: VesselRef{IMO: imo}})
	}

	for _, v := range known {
		name := strings.ToLower(v.Name)
		pos := strings.Index(text, name)
		if pos < 0 {
			continue
		}
		duplicate := false
		for _, m := range mentions {
			if m.ref.IMO == v.IMO {
				duplicate = true
				break
			}
		}
		if !duplicate {
			mentions = append(mentions, mention{pos: pos, ref: VesselRef{IMO: v.IMO, Name: v.Name}})
		}
	}

	sort.Slice(mentions, func(i, j int) bool { return mentions[i].pos < mentions[j].pos })

	refs := make([]VesselRef, 0, len(mentions))
	for _, m := range mentions {
		refs = append(refs, m.ref)
	}
	return refs
}

// findMetrics collects metric mentions in order of appearance.
func findMetrics(text string) []fleet.Metric {
	type mention struct {
		pos    int
		metric fleet.Metric
	}
	var mentions []mention
	for _, syn := range metricSynonyms {
		pos := strings.Index(text, syn.word)
		if pos < 0 {
			continue
		}
		duplicate := false
		for _, m := range mentions {
			if m.metric == syn.metric {
				duplicate = true
				break
			}
		}
		if !duplicate {
			mentions = append(mentions, mention{pos: pos, metric: syn.metric})
		}
	}
	sort.Slice(mentions, func(i, j int) bool { return mentions[i].pos < mentions[j].pos })

	metrics := make([]fleet.Metric, 0, len(mentions))
	for _, m := range mentions {
		metrics = append(metrics, m.metric)
	}
	return metrics
}

// findRange parses relative time phrases against the given clock.
// Unrecognized phrases leave both ends zero.
func findRange(text string, now time.Time) (time.Time, time.Time) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if m := relativeRangePattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			var unit time.Duration
			switch m[2] {
			case "hour":
				unit = time.Hour
			case "day":
				unit = 24 * time.Hour
			case "week":
				unit = 7 * 24 * time.Hour
			case "month":
				unit = 30 * 24 * time.Hour
			}
			return now.Add(-time.Duration(n) * unit), now
		}
	}

	switch {
	case strings.Contains(text, "last week") || strings.Contains(text, "past week"):
		return now.Add(-7 * 24 * time.Hour), now
	case strings.Contains(text, "last month") || strings.Contains(text, "past month"):
		return now.Add(-30 * 24 * time.Hour), now
	case strings.Contains(text, "yesterday"):
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return midnight.Add(-24 * time.Hour), midnight
	case strings.Contains(text, "today"):
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return midnight, now
	}
	return time.Time{}, time.Time{}
}

// inferIntent routes an utterance to an intent by keyword. When no
// verb decides it, the previous turn's chart kind biases the choice:
// a user looking at a summary likely wants another summary, a user
// looking at a trend likely wants another trend.
func inferIntent(text string, interp Interpretation, lastChart viz.ChartKind) Intent {
	switch {
	case containsAny(text, "compare", " vs ", " vs.", "versus", "against"):
		return IntentCompare
	case containsAny(text, "list", "available", "which ships", "which vessels", "what ships", "what vessels", "fleet"):
		return IntentList
	case containsAny(text, "average", "mean", "summar", "stats", "statistic", "minimum", "maximum", "min ", "max ", "how much", "how fast"):
		return IntentSummarize
	case containsAny(text, "show", "plot", "display", "graph", "chart", "trend", "history", "over time"):
		return IntentFetch
	}

	if len(interp.Metrics) >= 2 && len(interp.Vessels) <= 1 {
		return IntentCompare
	}
	if len(interp.Metrics) > 0 || len(interp.Vessels) > 0 || !interp.Start.IsZero() {
		if lastChart == viz.KindBar {
			return IntentSummarize
		}
		return IntentFetch
	}
	return IntentUnknown
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
