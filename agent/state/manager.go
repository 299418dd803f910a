package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/customer"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/diagnostics"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/incentive"
	"github.com/tanpawarit/Chative-Telecom-Assistant/agent/tool"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSession  = errors.New("session id is empty")
)

const (
	defaultSessionTTL  = time.Hour
	defaultLoadTimeout = 2 * time.Minute
)

type ManagerOption func(*Manager)

func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithLoadTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.loadTimeout = d
		}
	}
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithMetrics(metrics *tool.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

func WithDiagnostics(c *diagnostics.Catalog) ManagerOption {
	return func(m *Manager) {
		if c != nil {
			m.diagnostics = c
		}
	}
}

func WithIncentives(e *incentive.Evaluator) ManagerOption {
	return func(m *Manager) {
		if e != nil {
			m.incentives = e
		}
	}
}

// Manager owns live sessions. Each session gets a fresh customer store whose
// load starts in the background as soon as the session is created.
type Manager struct {
	source      customer.Source
	diagnostics *diagnostics.Catalog
	incentives  *incentive.Evaluator
	metrics     *tool.Metrics
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	loads    sync.WaitGroup
}

func NewManager(source customer.Source, opts ...ManagerOption) (*Manager, error) {
	if source == nil {
		return nil, errors.New("session manager: data source is required")
	}
	m := &Manager{
		source:      source,
		diagnostics: diagnostics.Default(),
		ttl:         defaultSessionTTL,
		loadTimeout: defaultLoadTimeout,
		now:         time.Now,
		sessions:    make(map[string]*Session, 16),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.incentives == nil {
		e, err := incentive.NewEvaluator()
		if err != nil {
			return nil, fmt.Errorf("session manager: %w", err)
		}
		m.incentives = e
	}
	return m, nil
}

// Start opens a session and begins loading its customer records. It returns
// immediately; tool calls made before the load finishes answer not_ready.
func (m *Manager) Start(ctx context.Context) (*Session, error) {
	store := customer.NewStore(m.source)
	registry, err := tool.NewTelecomRegistry(tool.Backends{
		Customers:   store,
		Diagnostics: m.diagnostics,
		Incentives:  m.incentives,
	})
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.loadTimeout)
	sess := &Session{
		ID:         uuid.NewString(),
		Customers:  store,
		Gateway:    tool.NewDispatcher(registry, tool.WithMetrics(m.metrics)),
		CreatedAt:  now,
		cancelLoad: cancel,
		lastActive: now,
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	m.loads.Add(1)
	go func() {
		defer m.loads.Done()
		defer cancel()
		if err := store.Load(loadCtx); err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("customer records failed to load")
			return
		}
		log.Debug().Str("session_id", sess.ID).Int("records", store.Len()).Msg("customer records ready")
	}()

	log.Info().Str("session_id", sess.ID).Msg("session started")
	return sess, nil
}

// Get returns a live session and refreshes its idle timer.
func (m *Manager) Get(id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidSession
	}

	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	now := m.now()
	if now.Sub(sess.LastActive()) > m.ttl {
		m.remove(id)
		return nil, fmt.Errorf("%w: %s expired", ErrSessionNotFound, id)
	}
	sess.Touch(now)
	return sess, nil
}

// End discards the session and its record snapshot.
func (m *Manager) End(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidSession
	}
	if !m.remove(id) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	log.Info().Str("session_id", id).Msg("session ended")
	return nil
}

// Sweep evicts sessions idle longer than the TTL and reports how many went.
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.RLock()
	var expired []string
	for id, sess := range m.sessions {
		if now.Sub(sess.LastActive()) > m.ttl {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	n := 0
	for _, id := range expired {
		if m.remove(id) {
			n++
		}
	}
	if n > 0 {
		log.Info().Int("evicted", n).Msg("idle sessions swept")
	}
	return n
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Wait blocks until every background load has finished.
func (m *Manager) Wait() {
	m.loads.Wait()
}

func (m *Manager) remove(id string) bool {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok && sess.cancelLoad != nil {
		sess.cancelLoad()
	}
	return ok
}
