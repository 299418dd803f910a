package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

const DefaultMaxToolRounds = 4

type Option func(*Assistant)

func WithMaxToolRounds(n int) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.maxToolRounds = n
		}
	}
}

// Assistant runs one conversational turn: it lets the model call tools
// through the session's gateway until the model answers in text.
type Assistant struct {
	runner        compose.Runnable[[]*schema.Message, *schema.Message]
	maxToolRounds int
}

type Request struct {
	History     []*schema.Message
	UserMessage string
	Gateway     contractx.ToolGateway
}

type Response struct {
	Reply string
	// Messages holds everything this turn added to the transcript, starting
	// with the user message and ending with the final reply.
	Messages    []*schema.Message
	ToolResults []contractx.ToolResult
}

func New(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	tools []*schema.ToolInfo,
	systemPrompt string,
	opts ...Option,
) (*Assistant, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: assistant system prompt", contractx.ErrPromptMissing)
	}

	toolModel, err := chatModel.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
	}
	runner, err := compileModelGraph(ctx, toolModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}

	a := &Assistant{
		runner:        runner,
		maxToolRounds: DefaultMaxToolRounds,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Assistant) Run(ctx context.Context, req Request) (Response, error) {
	text := strings.TrimSpace(req.UserMessage)
	if text == "" {
		return Response{}, fmt.Errorf("%w: user message is required", contractx.ErrValidation)
	}
	if req.Gateway == nil {
		return Response{}, fmt.Errorf("%w: tool gateway is required", contractx.ErrValidation)
	}

	turn := []*schema.Message{schema.UserMessage(text)}
	var results []contractx.ToolResult

	for round := 0; ; round++ {
		input := make([]*schema.Message, 0, len(req.History)+len(turn))
		input = append(input, req.History...)
		input = append(input, turn...)

		msg, err := a.runner.Invoke(ctx, input)
		if err != nil {
			return Response{}, fmt.Errorf("%w: assistant invoke: %v", contractx.ErrModelInvoke, err)
		}
		if msg == nil {
			return Response{}, fmt.Errorf("%w: empty model response", contractx.ErrSchemaViolation)
		}

		if len(msg.ToolCalls) == 0 {
			reply := strings.TrimSpace(msg.Content)
			if reply == "" {
				return Response{}, fmt.Errorf("%w: assistant reply is empty", contractx.ErrSchemaViolation)
			}
			turn = append(turn, schema.AssistantMessage(reply, nil))
			return Response{Reply: reply, Messages: turn, ToolResults: results}, nil
		}

		if round >= a.maxToolRounds {
			return Response{}, fmt.Errorf("%w: model still calling tools after %d rounds", contractx.ErrToolLoop, a.maxToolRounds)
		}

		turn = append(turn, msg)
		roundResults := a.callTools(ctx, req.Gateway, msg.ToolCalls)
		for i, call := range msg.ToolCalls {
			turn = append(turn, schema.ToolMessage(encodeResult(roundResults[i]), call.ID))
		}
		results = append(results, roundResults...)
	}
}

// callTools answers every call in order. Calls whose arguments are not a JSON
// object never reach the gateway.
func (a *Assistant) callTools(ctx context.Context, gateway contractx.ToolGateway, calls []schema.ToolCall) []contractx.ToolResult {
	out := make([]contractx.ToolResult, len(calls))
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	slots := make([]int, 0, len(calls))

	for i, call := range calls {
		name := strings.TrimSpace(call.Function.Name)
		args, err := decodeArgs(call.Function.Arguments)
		if err != nil {
			log.Info().Str("tool", name).Err(err).Msg("tool call arguments rejected")
			out[i] = contractx.ToolResult{
				Tool:         name,
				Status:       contractx.ToolStatusError,
				ErrorKind:    contractx.ErrorKindValidation,
				ErrorMessage: "Tool arguments must be a JSON object.",
			}
			continue
		}
		reqs = append(reqs, contractx.ToolRequest{Tool: name, Args: args})
		slots = append(slots, i)
	}

	for j, res := range gateway.Execute(ctx, reqs) {
		out[slots[j]] = res
	}
	return out
}

func decodeArgs(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	if args == nil {
		return nil, errors.New("arguments are null")
	}
	return args, nil
}

func encodeResult(res contractx.ToolResult) string {
	raw, err := json.Marshal(res)
	if err != nil {
		fallback, _ := json.Marshal(contractx.ToolResult{
			Tool:         res.Tool,
			Status:       contractx.ToolStatusError,
			ErrorKind:    contractx.ErrorKindInternal,
			ErrorMessage: "The tool result could not be encoded.",
		})
		return string(fallback)
	}
	return string(raw)
}
