package relay

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrEvaluationInProgress is returned by SessionStore.Begin when the
// connection already has a non-terminal session. Concurrent evaluations on
// one socket would interleave their event streams, so the second request is
// rejected outright.
var ErrEvaluationInProgress = errors.New("evaluation already in progress")

// State is the lifecycle state of one ticket evaluation.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateEvaluating
	StateComplete
	StateErrored
	StateClosed
)

var stateNames = map[State]string{
	StateConnecting: "connecting",
	StateConnected:  "connected",
	StateEvaluating: "evaluating",
	StateComplete:   "complete",
	StateErrored:    "errored",
	StateClosed:     "closed",
}

var stateFromName = map[string]State{
	"connecting": StateConnecting,
	"connected":  StateConnected,
	"evaluating": StateEvaluating,
	"complete":   StateComplete,
	"errored":    StateErrored,
	"closed":     StateClosed,
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if v, ok := stateFromName[name]; ok {
		*s = v
	}
	return nil
}

// IsTerminal reports whether no further progress events may be emitted for
// a session in this state.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateErrored || s == StateClosed
}

// validTransitions encodes the lifecycle machine. Closed is reachable from
// every state because the client can disconnect at any point.
var validTransitions = map[State][]State{
	StateConnecting: {StateConnected, StateErrored, StateClosed},
	StateConnected:  {StateEvaluating, StateClosed},
	StateEvaluating: {StateComplete, StateErrored, StateClosed},
	StateComplete:   {StateClosed},
	StateErrored:    {StateClosed},
}

func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Session is one in-flight or completed ticket evaluation bound to a single
// connection.
type Session struct {
	TicketID  int64      `json:"ticketId"`
	ConnID    ConnID     `json:"connId"`
	State     State      `json:"state"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

func (s *Session) clone() *Session {
	c := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// SessionStore tracks sessions keyed by connection, enforcing at most one
// active evaluation per connection. Closed sessions stay visible for
// inspection up to maxClosed; beyond that the oldest are evicted so the
// store does not grow without bound as connections come and go.
type SessionStore struct {
	mu        sync.RWMutex
	sessions  map[ConnID]*Session
	maxClosed int // 0 = unlimited
}

func NewSessionStore(maxClosed int) *SessionStore {
	return &SessionStore{
		sessions:  make(map[ConnID]*Session),
		maxClosed: maxClosed,
	}
}

// Begin opens a session for the connection. If a non-terminal session is
// already bound to it, the existing session is left untouched and
// ErrEvaluationInProgress is returned.
func (st *SessionStore) Begin(connID ConnID, ticketID int64) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if existing, ok := st.sessions[connID]; ok && !existing.State.IsTerminal() {
		return nil, ErrEvaluationInProgress
	}

	s := &Session{
		TicketID:  ticketID,
		ConnID:    connID,
		State:     StateConnecting,
		StartedAt: time.Now(),
	}
	st.sessions[connID] = s
	return s.clone(), nil
}

// Transition moves the connection's session to the given state. Illegal
// transitions and unknown connections are no-ops returning false.
func (st *SessionStore) Transition(connID ConnID, to State) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[connID]
	if !ok || !canTransition(s.State, to) {
		return false
	}
	s.State = to
	if to.IsTerminal() && s.EndedAt == nil {
		now := time.Now()
		s.EndedAt = &now
	}
	if to == StateClosed {
		st.evictClosedLocked()
	}
	return true
}

// Close moves the connection's session to Closed regardless of its current
// state and is idempotent. Used on disconnect.
func (st *SessionStore) Close(connID ConnID) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[connID]
	if !ok || s.State == StateClosed {
		return
	}
	s.State = StateClosed
	if s.EndedAt == nil {
		now := time.Now()
		s.EndedAt = &now
	}
	st.evictClosedLocked()
}

// evictClosedLocked drops the oldest closed sessions once their number
// exceeds maxClosed. Active sessions are never evicted. Caller must hold
// st.mu.
func (st *SessionStore) evictClosedLocked() {
	if st.maxClosed <= 0 {
		return
	}
	for {
		closed := 0
		var oldestID ConnID
		var oldest time.Time
		for id, s := range st.sessions {
			if s.State != StateClosed {
				continue
			}
			closed++
			if s.EndedAt != nil && (oldest.IsZero() || s.EndedAt.Before(oldest)) {
				oldest = *s.EndedAt
				oldestID = id
			}
		}
		if closed <= st.maxClosed || oldestID == "" {
			return
		}
		delete(st.sessions, oldestID)
	}
}

// Get returns a copy of the connection's session.
func (st *SessionStore) Get(connID ConnID) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[connID]
	if !ok {
		return nil, false
	}
	return s.clone(), true
}

// GetAll returns copies of every tracked session.
func (st *SessionStore) GetAll() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	result := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		result = append(result, s.clone())
	}
	return result
}

// ActiveCount returns the number of non-terminal sessions.
func (st *SessionStore) ActiveCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	count := 0
	for _, s := range st.sessions {
		if !s.State.IsTerminal() {
			count++
		}
	}
	return count
}
