package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	assistantx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/agents/assistant"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

var ErrAssistantUnavailable = errors.New("assistant is not configured")

type AssistantRunner interface {
	Run(ctx context.Context, req assistantx.Request) (assistantx.Response, error)
}

func RunAssistant(ctx context.Context, in *GraphState, runner AssistantRunner) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: session is not loaded", contractx.ErrValidation)
	}
	if runner == nil {
		return nil, ErrAssistantUnavailable
	}

	resp, err := runner.Run(ctx, assistantx.Request{
		History:     in.History,
		UserMessage: in.Text,
		Gateway:     in.Session.Gateway,
	})
	if err != nil {
		return nil, err
	}
	in.Turn = resp
	return in, nil
}
