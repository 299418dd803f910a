package orchestratornode

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	assistantx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/agents/assistant"
	statex "github.com/tanpawarit/Chative-Telecom-Assistant/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

// TurnGuard carries the session's turn lock out of the graph so the caller
// can release it whether or not the graph succeeds.
type TurnGuard struct {
	mu      sync.Mutex
	release func()
}

func (g *TurnGuard) hold(release func()) {
	if g == nil {
		release()
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.release = release
}

func (g *TurnGuard) Release() {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.release != nil {
		g.release()
		g.release = nil
	}
}

type GraphInput struct {
	SessionID string
	Text      string
	Guard     *TurnGuard
}

type GraphOutput struct {
	SessionID   string
	Reply       string
	ToolResults []ToolOutcome
}

// ToolOutcome is the per-call summary surfaced with a reply.
type ToolOutcome struct {
	Tool      string `json:"tool"`
	Status    string `json:"status"`
	ErrorKind string `json:"error_kind,omitempty"`
}

type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time
	Guard     *TurnGuard

	Session *statex.Session
	History []*schema.Message
	Turn    assistantx.Response
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
		Guard:     in.Guard,
	}, nil
}
