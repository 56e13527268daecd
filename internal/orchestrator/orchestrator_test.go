package orchestrator

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipsense/internal/config"
	"shipsense/internal/fleet"
	"shipsense/internal/session"
	"shipsense/internal/viz"
)

func testOrchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	cfg := config.DefaultConfig()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(cfg, fleet.NewMockSource(nil), opts...)
}

func TestSubmitTurnFetch(t *testing.T) {
	o := testOrchestrator(t)
	turn, err := o.SubmitTurn(context.Background(), "demo", "show me the speed for the last 2 days")
	require.NoError(t, err)

	assert.Equal(t, "fetch", turn.Intent)
	assert.Empty(t, turn.Err)
	require.NotNil(t, turn.Chart)
	assert.Equal(t, viz.KindLine, turn.Chart.Kind)
	require.Len(t, turn.Chart.Series, 1)
	assert.Len(t, turn.Chart.Series[0].Points, 48)
	assert.Contains(t, turn.Response, "Speed Over Ground")
	assert.Equal(t, 1, turn.Seq)
}

func TestSubmitTurnFollowUpUsesContext(t *testing.T) {
	o := testOrchestrator(t)
	ctx := context.Background()

	first, err := o.SubmitTurn(ctx, "demo", "show me the speed for the last 2 days")
	require.NoError(t, err)
	require.NotNil(t, first.Chart)

	second, err := o.SubmitTurn(ctx, "demo", "what about fuel?")
	require.NoError(t, err)
	assert.Equal(t, "fetch", second.Intent, "line chart continuity should keep the trend shape")
	require.NotNil(t, second.Chart)
	require.Len(t, second.Chart.Series, 1)
	assert.Contains(t, second.Chart.Series[0].Name, "Fuel Consumption")
	assert.Len(t, second.Chart.Series[0].Points, 48, "range should carry over from the previous turn")
	assert.Equal(t, 2, second.Seq)
}

func TestSubmitTurnSummarize(t *testing.T) {
	o := testOrchestrator(t)
	turn, err := o.SubmitTurn(context.Background(), "demo", "what was the average fuel consumption for the last week?")
	require.NoError(t, err)

	assert.Equal(t, "summarize", turn.Intent)
	require.NotNil(t, turn.Chart)
	assert.Equal(t, viz.KindBar, turn.Chart.Kind)
	assert.Contains(t, turn.Response, "mean")

	sess, ok := o.Sessions().Get("demo")
	require.True(t, ok)
	assert.Equal(t, viz.KindBar, sess.Context().LastChartKind)
}

func TestSubmitTurnCompareMetrics(t *testing.T) {
	o := testOrchestrator(t)
	turn, err := o.SubmitTurn(context.Background(), "demo", "compare speed and fuel for the last 3 days")
	require.NoError(t, err)

	assert.Equal(t, "compare", turn.Intent)
	require.NotNil(t, turn.Chart)
	require.Len(t, turn.Chart.Series, 2)
	assert.Equal(t, len(turn.Chart.Series[0].Points), len(turn.Chart.Series[1].Points),
		"compared series should share one axis")
	require.Len(t, turn.Results, 3)
	for _, r := range turn.Results {
		assert.Empty(t, r.ErrMessage)
	}
}

func TestSubmitTurnList(t *testing.T) {
	o := testOrchestrator(t)
	turn, err := o.SubmitTurn(context.Background(), "demo", "list the available ships")
	require.NoError(t, err)

	assert.Equal(t, "list", turn.Intent)
	assert.Nil(t, turn.Chart, "listings have no chart form")
	assert.Contains(t, turn.Response, "Demo Vessel")
}

func TestSubmitTurnClarification(t *testing.T) {
	o := testOrchestrator(t)
	turn, err := o.SubmitTurn(context.Background(), "demo", "good morning")
	require.NoError(t, err)

	assert.True(t, turn.NeedsClarification())
	assert.Empty(t, turn.Results)
	assert.Equal(t, 1, turn.Seq, "clarification turns are still committed")

	sess, ok := o.Sessions().Get("demo")
	require.True(t, ok)
	assert.Zero(t, sess.Context().VesselIMO, "clarification must not pin context slots")
}

func TestSubmitTurnUnknownVessel(t *testing.T) {
	o := testOrchestrator(t)
	turn, err := o.SubmitTurn(context.Background(), "demo", "show speed for 1234567 for the last day")
	require.NoError(t, err, "tool failures are captured on the turn")

	assert.NotEmpty(t, turn.Err)
	assert.Contains(t, turn.Response, "couldn't find")
	assert.Nil(t, turn.Chart)
}

func TestSubmitTurnCancelledContext(t *testing.T) {
	o := testOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.SubmitTurn(ctx, "demo", "show me the speed")
	assert.Error(t, err)
}

func TestSubmitTurnCancelledMidDispatchDiscardsTurn(t *testing.T) {
	src := fleet.NewMockSource(nil)
	src.Latency = 200 * time.Millisecond
	o := New(config.DefaultConfig(), src, WithClock(func() time.Time { return testNow }))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := o.SubmitTurn(ctx, "demo", "show speed for the last day")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	sess, ok := o.Sessions().Get("demo")
	require.True(t, ok)
	assert.Zero(t, sess.Len(), "a cancelled turn must not reach the session log")
}

func TestSubmitTurnSequencing(t *testing.T) {
	o := testOrchestrator(t)
	ctx := context.Background()

	utterances := []string{
		"list ships",
		"show speed for the last day",
		"what about fuel?",
	}
	for i, u := range utterances {
		turn, err := o.SubmitTurn(ctx, "demo", u)
		require.NoError(t, err)
		assert.Equal(t, i+1, turn.Seq)
	}

	sess, ok := o.Sessions().Get("demo")
	require.True(t, ok)
	turns := sess.Turns()
	require.Len(t, turns, 3)
	for i, turn := range turns {
		assert.Equal(t, i+1, turn.Seq)
		assert.Equal(t, utterances[i], turn.Utterance)
	}
}

func TestSubmitTurnSessionIsolation(t *testing.T) {
	o := testOrchestrator(t)
	ctx := context.Background()

	_, err := o.SubmitTurn(ctx, "one", "show speed for the last day")
	require.NoError(t, err)
	_, err = o.SubmitTurn(ctx, "two", "list ships")
	require.NoError(t, err)

	one, _ := o.Sessions().Get("one")
	two, _ := o.Sessions().Get("two")
	assert.Equal(t, fleet.MetricSpeed, one.Context().Metric)
	assert.Zero(t, two.Context().Metric)
}

func TestSubmitTurnArchives(t *testing.T) {
	archive, err := session.OpenArchive(filepath.Join(t.TempDir(), "turns.db"))
	require.NoError(t, err)
	defer archive.Close()

	o := testOrchestrator(t, WithArchive(archive))
	_, err = o.SubmitTurn(context.Background(), "demo", "show speed for the last day")
	require.NoError(t, err)

	turns, err := archive.Turns("demo")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.True(t, strings.Contains(turns[0].Utterance, "speed"))
}

func TestComposeResponsePartialFailure(t *testing.T) {
	payload := seriesPayload(fleet.MetricSpeed)
	msg := composeResponse(IntentCompare, payload, &TimeoutError{Tool: "fetch_metric", Limit: time.Second})
	assert.Contains(t, msg, "took too long")
	assert.Contains(t, msg, "kept the data", "partial results should be acknowledged")
}
