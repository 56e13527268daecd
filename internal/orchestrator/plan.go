package orchestrator

// Intent classifies what the user wants from a turn.
type Intent string

const (
	IntentFetch     Intent = "fetch"
	IntentCompare   Intent = "compare"
	IntentSummarize Intent = "summarize"
	IntentList      Intent = "list"
	IntentUnknown   Intent = "unknown"
)

// Binding routes the first series of an earlier step's payload into an
// argument of a later step.
type Binding struct {
	Arg      string
	FromStep int
}

// Step is one planned tool call. Args holds the literal arguments;
// Bindings holds arguments produced by earlier steps.
type Step struct {
	Tool     string
	Args     map[string]any
	Bindings []Binding
}

// Plan is an ordered set of steps for one turn. Steps without mutual
// dependencies run concurrently.
type Plan struct {
	Intent Intent
	Steps  []Step
}

// Batches groups step indices into dependency levels. Every step in a
// batch depends only on steps from earlier batches, so a batch can be
// dispatched as one concurrent wave.
func (p Plan) Batches() [][]int {
	depth := make([]int, len(p.Steps))
	for i, step := range p.Steps {
		d := 0
		for _, b := range step.Bindings {
			if b.FromStep >= 0 && b.FromStep < i && depth[b.FromStep]+1 > d {
				d = depth[b.FromStep] + 1
			}
		}
		depth[i] = d
	}

	maxDepth := 0
	for _, d := range depth {
		if d > maxDepth {
			maxDepth = d
		}
	}

	batches := make([][]int, maxDepth+1)
	for i, d := range depth {
		batches[d] = append(batches[d], i)
	}
	return batches
}
