package state

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/customer"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/tool"
)

const sampleCSV = "customerID,tenure,MonthlyCharges,TotalCharges,Churn\n7590-VHVEG,1,29.85,29.85,No\n"

type staticSource struct{}

func (staticSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(sampleCSV)), nil
}

// blockingSource holds every Open until release is closed.
type blockingSource struct {
	release chan struct{}
}

func (b *blockingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-b.release:
		return io.NopCloser(strings.NewReader(sampleCSV)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestManagerStartLoadsInBackground(t *testing.T) {
	t.Parallel()

	src := &blockingSource{release: make(chan struct{})}
	m, err := NewManager(src)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	sess, err := m.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	res := sess.Gateway.Invoke(context.Background(), contractx.ToolRequest{
		Tool: tool.ToolGetCustomerInfo,
		Args: map[string]any{"customerID": "7590-VHVEG"},
	})
	if res.ErrorKind != contractx.ErrorKindNotReady {
		t.Fatalf("before load: ErrorKind = %q, want not_ready", res.ErrorKind)
	}

	close(src.release)
	<-sess.Customers.Done()

	res = sess.Gateway.Invoke(context.Background(), contractx.ToolRequest{
		Tool: tool.ToolGetCustomerInfo,
		Args: map[string]any{"customerID": "7590-VHVEG"},
	})
	if !res.OK() {
		t.Fatalf("after load: Invoke() = %+v, want ok", res)
	}
	if sess.Readiness() != customer.StateReady {
		t.Fatalf("Readiness() = %q, want ready", sess.Readiness())
	}
}

func TestManagerSessionsAreIndependent(t *testing.T) {
	t.Parallel()

	m, _ := NewManager(staticSource{})
	a, _ := m.Start(context.Background())
	b, _ := m.Start(context.Background())
	if a.ID == b.ID {
		t.Fatal("session ids must be unique")
	}
	if a.Customers == b.Customers {
		t.Fatal("sessions must not share a record store")
	}
	m.Wait()

	a.Append(schema.UserMessage("hi"))
	if len(b.History()) != 0 {
		t.Fatal("transcripts leaked across sessions")
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
}

func TestManagerGetAndEnd(t *testing.T) {
	t.Parallel()

	m, _ := NewManager(staticSource{})
	sess, _ := m.Start(context.Background())
	m.Wait()

	got, err := m.Get(sess.ID)
	if err != nil || got != sess {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if err := m.End(sess.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if _, err := m.Get(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get() after End error = %v, want ErrSessionNotFound", err)
	}
	if err := m.End(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second End() error = %v, want ErrSessionNotFound", err)
	}
	if _, err := m.Get("  "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Get(blank) error = %v, want ErrInvalidSession", err)
	}
}

func TestManagerExpiresIdleSessions(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	m, _ := NewManager(staticSource{}, WithTTL(time.Hour), WithClock(clock.Now))
	idle, _ := m.Start(context.Background())
	busy, _ := m.Start(context.Background())
	m.Wait()

	clock.Advance(40 * time.Minute)
	if _, err := m.Get(busy.ID); err != nil {
		t.Fatalf("Get(busy) error = %v", err)
	}
	clock.Advance(30 * time.Minute)

	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if _, err := m.Get(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get(idle) error = %v, want ErrSessionNotFound", err)
	}
	if _, err := m.Get(busy.ID); err != nil {
		t.Fatalf("Get(busy) error = %v", err)
	}

	clock.Advance(2 * time.Hour)
	if _, err := m.Get(busy.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get(expired) error = %v, want ErrSessionNotFound", err)
	}
}

func TestManagerEndCancelsPendingLoad(t *testing.T) {
	t.Parallel()

	m, _ := NewManager(&blockingSource{release: make(chan struct{})})
	sess, _ := m.Start(context.Background())
	if err := m.End(sess.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	select {
	case <-sess.Customers.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("load was not cancelled")
	}
	if sess.Readiness() != customer.StateLoadFailed {
		t.Fatalf("Readiness() = %q, want load_failed", sess.Readiness())
	}
}

func TestSessionInfo(t *testing.T) {
	t.Parallel()

	m, _ := NewManager(staticSource{})
	sess, _ := m.Start(context.Background())
	m.Wait()
	sess.Append(schema.UserMessage("hello"), schema.AssistantMessage("hi", nil), schema.UserMessage("bye"))

	info := sess.Info()
	if info.ID != sess.ID || info.Turns != 2 || info.Records != 1 || info.Readiness != customer.StateReady {
		t.Fatalf("Info() = %+v", info)
	}
}

func TestNewManagerRequiresSource(t *testing.T) {
	t.Parallel()

	if _, err := NewManager(nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}
