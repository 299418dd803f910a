package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/Chative-Telecom-Assistant/agent/nodes"
)

var (
	ErrInvalidMessage       = nodex.ErrInvalidMessage
	ErrInvalidSession       = nodex.ErrInvalidSession
	ErrAssistantUnavailable = nodex.ErrAssistantUnavailable
)

type Orchestrator struct {
	sessions  nodex.SessionLookup
	assistant nodex.AssistantRunner

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

// New builds the per-message pipeline. assistant may be nil, in which case
// every message fails with ErrAssistantUnavailable.
func New(sessions nodex.SessionLookup, assistant nodex.AssistantRunner) (*Orchestrator, error) {
	if sessions == nil {
		return nil, errors.New("session lookup is required")
	}

	o := &Orchestrator{
		sessions:  sessions,
		assistant: assistant,
		now:       time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

func (o *Orchestrator) Ready() bool {
	return o.assistant != nil
}

func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (string, error) {
	out, err := o.Handle(ctx, sessionID, text)
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

// Handle runs one turn and returns the reply with a summary of the tools used.
func (o *Orchestrator) Handle(ctx context.Context, sessionID string, text string) (nodex.GraphOutput, error) {
	guard := &nodex.TurnGuard{}
	defer guard.Release()

	return o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
		Guard:     guard,
	})
}
