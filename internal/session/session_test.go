package session

import (
	"sync"
	"testing"
	"time"

	"shipsense/internal/fleet"
	"shipsense/internal/viz"
)

func TestCommitAssignsIdentity(t *testing.T) {
	st := NewStore()
	s := st.GetOrCreate("demo")

	turn := s.Commit(Turn{Utterance: "show me speed"}, Context{})
	if turn.ID == "" {
		t.Error("committed turn should have an ID")
	}
	if turn.Seq != 1 {
		t.Errorf("first turn seq = %d, want 1", turn.Seq)
	}
	if turn.SessionID != "demo" {
		t.Errorf("turn session = %q, want demo", turn.SessionID)
	}
	if turn.CreatedAt.IsZero() {
		t.Error("committed turn should be timestamped")
	}
}

func TestCommitUpdatesContextAtomically(t *testing.T) {
	st := NewStore()
	s := st.GetOrCreate("demo")

	s.Commit(Turn{Utterance: "show fuel for 9999999"}, Context{
		VesselIMO: 9999999,
		Metric:    fleet.MetricFuel,
	})

	ctx := s.Context()
	if ctx.VesselIMO != 9999999 || ctx.Metric != fleet.MetricFuel {
		t.Errorf("context not updated: %+v", ctx)
	}
}

func TestContextLastWriteWins(t *testing.T) {
	c := Context{VesselIMO: 9999999, Metric: fleet.MetricSpeed}
	c = c.Merge(Context{Metric: fleet.MetricFuel})
	if c.Metric != fleet.MetricFuel {
		t.Errorf("metric = %q, want fuel_consumption", c.Metric)
	}
	if c.VesselIMO != 9999999 {
		t.Error("unset slots must survive a merge")
	}
}

func TestContextChartKindCarries(t *testing.T) {
	c := Context{}.Merge(Context{LastChartKind: viz.KindBar})
	if c.LastChartKind != viz.KindBar {
		t.Errorf("chart kind = %q, want bar", c.LastChartKind)
	}
}

func TestConcurrentCommits(t *testing.T) {
	st := NewStore()
	s := st.GetOrCreate("busy")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Commit(Turn{Utterance: "list ships"}, Context{})
		}()
	}
	wg.Wait()

	turns := s.Turns()
	if len(turns) != 50 {
		t.Fatalf("got %d turns, want 50", len(turns))
	}
	seen := make(map[int]bool)
	for _, turn := range turns {
		if seen[turn.Seq] {
			t.Fatalf("duplicate seq %d", turn.Seq)
		}
		seen[turn.Seq] = true
	}
}

func TestStoreGetOrCreate(t *testing.T) {
	st := NewStore()
	a := st.GetOrCreate("one")
	b := st.GetOrCreate("one")
	if a != b {
		t.Error("GetOrCreate should return the same session")
	}
	if _, ok := st.Get("two"); ok {
		t.Error("Get should not create sessions")
	}
	if st.Count() != 1 {
		t.Errorf("count = %d, want 1", st.Count())
	}
}

func TestTurnNeedsClarification(t *testing.T) {
	turn := Turn{Clarification: "Which vessel do you mean?"}
	if !turn.NeedsClarification() {
		t.Error("turn with a question should report NeedsClarification")
	}
	if (Turn{Response: "done"}).NeedsClarification() {
		t.Error("answered turn should not report NeedsClarification")
	}
}

func TestContextHasRange(t *testing.T) {
	now := time.Now()
	if (Context{Start: now}).HasRange() {
		t.Error("start alone is not a range")
	}
	if !(Context{Start: now.Add(-time.Hour), End: now}).HasRange() {
		t.Error("both ends set should report a range")
	}
}
