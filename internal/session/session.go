// Package session keeps per-conversation state: the ordered turn log
// and the active context slots carried between utterances.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"shipsense/internal/fleet"
	"shipsense/internal/logging"
	"shipsense/internal/tools"
	"shipsense/internal/viz"
)

// Context holds the slots a follow-up utterance may lean on. Zero
// values mean "not set". Updates are last-write-wins per slot.
type Context struct {
	VesselIMO     int           `json:"vessel_imo,omitempty"`
	Metric        fleet.Metric  `json:"metric,omitempty"`
	Start         time.Time     `json:"start,omitempty"`
	End           time.Time     `json:"end,omitempty"`
	LastChartKind viz.ChartKind `json:"last_chart_kind,omitempty"`
}

// Merge applies the set slots of delta over c and returns the result.
func (c Context) Merge(delta Context) Context {
	if delta.VesselIMO != 0 {
		c.VesselIMO = delta.VesselIMO
	}
	if delta.Metric != "" {
		c.Metric = delta.Metric
	}
	if !delta.Start.IsZero() {
		c.Start = delta.Start
	}
	if !delta.End.IsZero() {
		c.End = delta.End
	}
	if delta.LastChartKind != "" {
		c.LastChartKind = delta.LastChartKind
	}
	return c
}

// HasRange reports whether both range slots are set.
func (c Context) HasRange() bool {
	return !c.Start.IsZero() && !c.End.IsZero()
}

// Turn is one completed exchange. A turn is appended exactly once,
// after all processing for it has finished.
type Turn struct {
	ID            string             `json:"id"`
	SessionID     string             `json:"session_id"`
	Seq           int                `json:"seq"`
	Utterance     string             `json:"utterance"`
	Intent        string             `json:"intent,omitempty"`
	Results       []tools.ToolResult `json:"results,omitempty"`
	Chart         *viz.ChartSpec     `json:"chart,omitempty"`
	Response      string             `json:"response"`
	Clarification string             `json:"clarification,omitempty"`
	Err           string             `json:"error,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// NeedsClarification reports whether the turn ended in a question
// back to the user instead of an answer.
func (t Turn) NeedsClarification() bool {
	return t.Clarification != ""
}

// Session is one conversation. All mutation goes through Commit so the
// turn log and context slots never disagree.
type Session struct {
	ID string

	mu    sync.Mutex
	turns []Turn
	ctx   Context
}

// Commit appends a finished turn and folds the context update in, as
// one atomic step. It assigns the turn's ID, sequence number, session
// binding, and timestamp, and returns the stored turn.
func (s *Session) Commit(turn Turn, update Context) Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	turn.SessionID = s.ID
	turn.Seq = len(s.turns) + 1
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	s.turns = append(s.turns, turn)
	s.ctx = s.ctx.Merge(update)

	logging.SessionDebug("session %s: committed turn %d (intent=%s, results=%d)",
		s.ID, turn.Seq, turn.Intent, len(turn.Results))
	return turn
}

// Context returns the current context slots.
func (s *Session) Context() Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Turns returns a copy of the turn log.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of committed turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Store is the in-memory session registry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Get returns the session with the given ID, if it exists.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// GetOrCreate returns the session with the given ID, creating it on
// first use.
func (st *Store) GetOrCreate(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	s := &Session{ID: id}
	st.sessions[id] = s
	logging.Session("session created: %s", id)
	return s
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
