package tool

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

// Handler runs a tool with validated arguments. The returned payload is what
// the agent sees on success.
type Handler func(ctx context.Context, args Args) (any, error)

type Tool struct {
	Schema  Schema
	Handler Handler
}

type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool, 8)}
}

// Register adds a tool. Names are unique; a second registration under the
// same name fails.
func (r *Registry) Register(s Schema, h Handler) error {
	if err := s.validate(); err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("%w: tool=%s has no handler", contractx.ErrInvalidSchema, s.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[s.Name]; exists {
		return fmt.Errorf("%w: tool=%s", contractx.ErrDuplicateTool, s.Name)
	}
	r.tools[s.Name] = Tool{Schema: s, Handler: h}
	r.order = append(r.order, s.Name)
	return nil
}

func (r *Registry) MustRegister(s Schema, h Handler) {
	if err := r.Register(s, h); err != nil {
		panic(err)
	}
}

func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[strings.TrimSpace(name)]
	if !ok {
		return Tool{}, fmt.Errorf("%w: tool=%s", contractx.ErrUnknownTool, name)
	}
	return t, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Schemas returns tool schemas in registration order.
func (r *Registry) Schemas() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Schema)
	}
	return out
}

func (r *Registry) ToolInfos() []*schema.ToolInfo {
	schemas := r.Schemas()
	infos := make([]*schema.ToolInfo, 0, len(schemas))
	for _, s := range schemas {
		infos = append(infos, s.ToolInfo())
	}
	return infos
}
