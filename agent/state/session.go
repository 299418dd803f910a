package state

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/customer"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/tool"
)

// Session is one chat: its own customer snapshot, the tool gateway bound to
// it and the running transcript. Nothing here outlives the session.
type Session struct {
	ID        string
	Customers *customer.Store
	Gateway   *tool.Dispatcher
	CreatedAt time.Time

	cancelLoad context.CancelFunc
	turn       sync.Mutex

	mu         sync.Mutex
	history    []*schema.Message
	lastActive time.Time
}

// BeginTurn serializes turns within a session. Call the returned func when the
// turn is over.
func (s *Session) BeginTurn() func() {
	s.turn.Lock()
	return s.turn.Unlock
}

// History returns a copy of the transcript.
func (s *Session) History() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*schema.Message(nil), s.history...)
}

func (s *Session) Append(msgs ...*schema.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msgs...)
}

func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = now.UTC()
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) Readiness() customer.ReadinessState {
	return s.Customers.State()
}

// Info is the externally visible view of a session.
type Info struct {
	ID         string                  `json:"session_id"`
	Readiness  customer.ReadinessState `json:"readiness"`
	Records    int                     `json:"records"`
	Turns      int                     `json:"turns"`
	CreatedAt  time.Time               `json:"created_at"`
	LastActive time.Time               `json:"last_active"`
}

func (s *Session) Info() Info {
	s.mu.Lock()
	turns := 0
	for _, m := range s.history {
		if m.Role == schema.User {
			turns++
		}
	}
	last := s.lastActive
	s.mu.Unlock()

	return Info{
		ID:         s.ID,
		Readiness:  s.Customers.State(),
		Records:    s.Customers.Len(),
		Turns:      turns,
		CreatedAt:  s.CreatedAt,
		LastActive: last,
	}
}
