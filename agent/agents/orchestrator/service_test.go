package orchestrator

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	assistantx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/agents/assistant"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Telecom-Assistant/agent/state"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/tool"
)

type csvSource struct{}

func (csvSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("customerID,tenure\n7590-VHVEG,1\n")), nil
}

// fakeAssistant calls one tool through the session gateway and echoes the
// user text back.
type fakeAssistant struct {
	mu        sync.Mutex
	err       error
	histories [][]*schema.Message
	active    atomic.Int32
	peak      atomic.Int32
}

func (f *fakeAssistant) Run(ctx context.Context, req assistantx.Request) (assistantx.Response, error) {
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	if cur > f.peak.Load() {
		f.peak.Store(cur)
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.histories = append(f.histories, req.History)
	f.mu.Unlock()
	if f.err != nil {
		return assistantx.Response{}, f.err
	}

	res := req.Gateway.Invoke(ctx, contractx.ToolRequest{Tool: tool.ToolSayGoodbye})
	reply := "echo: " + req.UserMessage
	return assistantx.Response{
		Reply: reply,
		Messages: []*schema.Message{
			schema.UserMessage(req.UserMessage),
			schema.AssistantMessage(reply, nil),
		},
		ToolResults: []contractx.ToolResult{res},
	}, nil
}

func newFixture(t *testing.T, runner *fakeAssistant) (*Orchestrator, *statex.Manager, *statex.Session) {
	t.Helper()

	m, err := statex.NewManager(csvSource{})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	sess, err := m.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	m.Wait()

	var o *Orchestrator
	if runner == nil {
		o, err = New(m, nil)
	} else {
		o, err = New(m, runner)
	}
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o, m, sess
}

func TestHandleMessageRecordsTurn(t *testing.T) {
	t.Parallel()

	runner := &fakeAssistant{}
	o, _, sess := newFixture(t, runner)

	out, err := o.Handle(context.Background(), sess.ID, "  hello  ")
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if out.Reply != "echo: hello" {
		t.Fatalf("Reply = %q", out.Reply)
	}
	if len(out.ToolResults) != 1 || out.ToolResults[0].Tool != tool.ToolSayGoodbye || out.ToolResults[0].Status != "ok" {
		t.Fatalf("ToolResults = %#v", out.ToolResults)
	}

	reply, err := o.HandleMessage(context.Background(), sess.ID, "again")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if reply != "echo: again" {
		t.Fatalf("reply = %q", reply)
	}
	if got := len(runner.histories[1]); got != 2 {
		t.Fatalf("second turn saw %d history messages, want 2", got)
	}
	if got := len(sess.History()); got != 4 {
		t.Fatalf("transcript len = %d, want 4", got)
	}
}

func TestHandleMessageValidation(t *testing.T) {
	t.Parallel()

	o, _, sess := newFixture(t, &fakeAssistant{})

	_, err := o.HandleMessage(context.Background(), "  ", "hi")
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	_, err = o.HandleMessage(context.Background(), sess.ID, "   ")
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestHandleMessageUnknownSession(t *testing.T) {
	t.Parallel()

	o, _, _ := newFixture(t, &fakeAssistant{})
	_, err := o.HandleMessage(context.Background(), "no-such-session", "hi")
	if !errors.Is(err, statex.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestHandleMessageWithoutAssistant(t *testing.T) {
	t.Parallel()

	o, _, sess := newFixture(t, nil)
	if o.Ready() {
		t.Fatal("Ready() = true without assistant")
	}
	_, err := o.HandleMessage(context.Background(), sess.ID, "hi")
	if !errors.Is(err, ErrAssistantUnavailable) {
		t.Fatalf("expected ErrAssistantUnavailable, got %v", err)
	}
}

func TestHandleMessageAssistantFailureKeepsTranscript(t *testing.T) {
	t.Parallel()

	runner := &fakeAssistant{err: contractx.ErrModelInvoke}
	o, _, sess := newFixture(t, runner)

	_, err := o.HandleMessage(context.Background(), sess.ID, "hi")
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
	if len(sess.History()) != 0 {
		t.Fatal("failed turn must not be recorded")
	}

	// The turn lock is released after a failure.
	runner.err = nil
	if _, err := o.HandleMessage(context.Background(), sess.ID, "hi"); err != nil {
		t.Fatalf("retry error = %v", err)
	}
}

func TestHandleMessageSerializesTurnsPerSession(t *testing.T) {
	t.Parallel()

	runner := &fakeAssistant{}
	o, _, sess := newFixture(t, runner)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.HandleMessage(context.Background(), sess.ID, "hi"); err != nil {
				t.Errorf("HandleMessage() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if runner.peak.Load() != 1 {
		t.Fatalf("peak concurrent turns = %d, want 1", runner.peak.Load())
	}
	if len(sess.History()) != 8 {
		t.Fatalf("transcript len = %d, want 8", len(sess.History()))
	}
}

func TestNewRequiresSessions(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, &fakeAssistant{}); err == nil {
		t.Fatal("expected error for nil session lookup")
	}
}
