package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

type fakeToolCallingModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	err       error
	idx       int
	inputs    [][]*schema.Message
	tools     []*schema.ToolInfo
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.tools = tools
	return f, nil
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []contractx.ToolRequest
}

func (g *fakeGateway) Invoke(ctx context.Context, req contractx.ToolRequest) contractx.ToolResult {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()
	if req.Tool == "network_diagnostics" {
		return contractx.ToolResult{Tool: req.Tool, Status: contractx.ToolStatusOK, Payload: "Signal strength is normal."}
	}
	return contractx.ToolResult{Tool: req.Tool, Status: contractx.ToolStatusError, ErrorKind: contractx.ErrorKindUnknownTool, ErrorMessage: "not available"}
}

func (g *fakeGateway) Execute(ctx context.Context, reqs []contractx.ToolRequest) []contractx.ToolResult {
	out := make([]contractx.ToolResult, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, g.Invoke(ctx, r))
	}
	return out
}

func toolCall(id, name, args string) schema.ToolCall {
	return schema.ToolCall{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}
}

func TestRunPlainReply(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{schema.AssistantMessage("Hi! How can I help?", nil)}}
	a, err := New(context.Background(), fake, []*schema.ToolInfo{{Name: "say_hello"}}, "system prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(fake.tools) != 1 {
		t.Fatalf("tools bound = %d, want 1", len(fake.tools))
	}

	resp, err := a.Run(context.Background(), Request{UserMessage: " hello ", Gateway: &fakeGateway{}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Reply != "Hi! How can I help?" {
		t.Fatalf("Reply = %q", resp.Reply)
	}
	if len(resp.Messages) != 2 || resp.Messages[0].Content != "hello" {
		t.Fatalf("Messages = %#v", resp.Messages)
	}
	first := fake.inputs[0]
	if first[0].Role != schema.System || first[0].Content != "system prompt" {
		t.Fatalf("first model input should start with the system prompt, got %#v", first[0])
	}
}

func TestRunToolRoundTrip(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{
			toolCall("call_1", "network_diagnostics", `{"area_code":"10001"}`),
			toolCall("call_2", "made_up_tool", `{}`),
		}},
		schema.AssistantMessage("Your signal looks normal.", nil),
	}}
	gw := &fakeGateway{}
	a, err := New(context.Background(), fake, nil, "system prompt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	history := []*schema.Message{schema.UserMessage("earlier"), schema.AssistantMessage("earlier reply", nil)}
	resp, err := a.Run(context.Background(), Request{History: history, UserMessage: "is my network ok?", Gateway: gw})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Reply != "Your signal looks normal." {
		t.Fatalf("Reply = %q", resp.Reply)
	}
	if len(gw.calls) != 2 || gw.calls[0].Args["area_code"] != "10001" {
		t.Fatalf("gateway calls = %#v", gw.calls)
	}
	if len(resp.ToolResults) != 2 || resp.ToolResults[1].ErrorKind != contractx.ErrorKindUnknownTool {
		t.Fatalf("ToolResults = %#v", resp.ToolResults)
	}

	// user, assistant tool calls, two tool messages, final reply
	if len(resp.Messages) != 5 {
		t.Fatalf("Messages len = %d, want 5", len(resp.Messages))
	}
	toolMsg := resp.Messages[2]
	if toolMsg.Role != schema.Tool || toolMsg.ToolCallID != "call_1" {
		t.Fatalf("tool message = %#v", toolMsg)
	}
	var decoded contractx.ToolResult
	if err := json.Unmarshal([]byte(toolMsg.Content), &decoded); err != nil {
		t.Fatalf("tool message is not a ToolResult: %v", err)
	}
	if decoded.Payload != "Signal strength is normal." {
		t.Fatalf("decoded payload = %v", decoded.Payload)
	}

	second := fake.inputs[1]
	if len(second) != 1+len(history)+4 {
		t.Fatalf("second model input len = %d", len(second))
	}
}

func TestRunMalformedArgumentsAnsweredAsValidation(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{
			toolCall("call_1", "network_diagnostics", `{"area_code":`),
		}},
		schema.AssistantMessage("Could you share your ZIP code?", nil),
	}}
	gw := &fakeGateway{}
	a, _ := New(context.Background(), fake, nil, "system prompt")

	resp, err := a.Run(context.Background(), Request{UserMessage: "outage?", Gateway: gw})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(gw.calls) != 0 {
		t.Fatalf("malformed call reached the gateway: %#v", gw.calls)
	}
	if resp.ToolResults[0].ErrorKind != contractx.ErrorKindValidation {
		t.Fatalf("ErrorKind = %q, want validation_error", resp.ToolResults[0].ErrorKind)
	}
}

func TestRunStopsAfterMaxToolRounds(t *testing.T) {
	t.Parallel()

	loop := &schema.Message{Role: schema.Assistant, ToolCalls: []schema.ToolCall{toolCall("c", "network_diagnostics", `{"area_code":"1"}`)}}
	fake := &fakeToolCallingModel{responses: []*schema.Message{loop, loop, loop}}
	a, _ := New(context.Background(), fake, nil, "system prompt", WithMaxToolRounds(2))

	_, err := a.Run(context.Background(), Request{UserMessage: "x", Gateway: &fakeGateway{}})
	if !errors.Is(err, contractx.ErrToolLoop) {
		t.Fatalf("Run() error = %v, want ErrToolLoop", err)
	}
}

func TestRunModelFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{err: errors.New("provider down")}
	a, _ := New(context.Background(), fake, nil, "system prompt")
	_, err := a.Run(context.Background(), Request{UserMessage: "x", Gateway: &fakeGateway{}})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("Run() error = %v, want ErrModelInvoke", err)
	}
}

func TestRunEmptyReply(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{responses: []*schema.Message{schema.AssistantMessage("   ", nil)}}
	a, _ := New(context.Background(), fake, nil, "system prompt")
	_, err := a.Run(context.Background(), Request{UserMessage: "x", Gateway: &fakeGateway{}})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("Run() error = %v, want ErrSchemaViolation", err)
	}
}

func TestRunValidatesRequest(t *testing.T) {
	t.Parallel()

	a, _ := New(context.Background(), &fakeToolCallingModel{}, nil, "system prompt")
	if _, err := a.Run(context.Background(), Request{UserMessage: " ", Gateway: &fakeGateway{}}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("empty message error = %v", err)
	}
	if _, err := a.Run(context.Background(), Request{UserMessage: "x"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("nil gateway error = %v", err)
	}
}

func TestNewRequiresPrompt(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), &fakeToolCallingModel{}, nil, "  ")
	if !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("New() error = %v, want ErrPromptMissing", err)
	}
	if !strings.Contains(err.Error(), "prompt") {
		t.Fatalf("unexpected error text: %v", err)
	}
}
