package tool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

// Dispatcher resolves tool requests against a Registry and folds every
// outcome, panics included, into a ToolResult.
type Dispatcher struct {
	registry *Registry
	metrics  *Metrics
}

var _ contractx.ToolGateway = (*Dispatcher)(nil)

type DispatcherOption func(*Dispatcher)

func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{registry: registry}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

func (d *Dispatcher) Invoke(ctx context.Context, req contractx.ToolRequest) contractx.ToolResult {
	started := time.Now()
	name := strings.TrimSpace(req.Tool)

	res := d.invoke(ctx, name, req.Args)
	elapsed := time.Since(started)
	d.metrics.observe(name, res, elapsed)

	evt := log.Debug()
	if !res.OK() {
		evt = log.Info().Str("error_kind", string(res.ErrorKind))
	}
	evt.Str("tool", name).
		Str("status", string(res.Status)).
		Dur("elapsed", elapsed).
		Msg("tool invoked")
	return res
}

// Execute runs independent requests concurrently. Results keep request order.
func (d *Dispatcher) Execute(ctx context.Context, reqs []contractx.ToolRequest) []contractx.ToolResult {
	if len(reqs) == 0 {
		return nil
	}
	return iter.Map(reqs, func(req *contractx.ToolRequest) contractx.ToolResult {
		return d.Invoke(ctx, *req)
	})
}

func (d *Dispatcher) invoke(ctx context.Context, name string, raw map[string]any) contractx.ToolResult {
	t, err := d.registry.Resolve(name)
	if err != nil {
		return failure(name, err)
	}
	args, err := validateArgs(t.Schema, raw)
	if err != nil {
		return failure(name, err)
	}
	if err := ctx.Err(); err != nil {
		return failure(name, err)
	}

	payload, err := call(ctx, t, args)
	if err != nil {
		return failure(name, err)
	}
	return contractx.ToolResult{
		Tool:    name,
		Status:  contractx.ToolStatusOK,
		Payload: payload,
	}
}

func call(ctx context.Context, t Tool, args Args) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("tool", t.Schema.Name).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("tool handler panicked")
			payload = nil
			err = fmt.Errorf("tool=%s panicked: %v", t.Schema.Name, r)
		}
	}()
	return t.Handler(ctx, args)
}

func failure(name string, err error) contractx.ToolResult {
	kind := classify(err)
	res := contractx.ToolResult{
		Tool:         name,
		Status:       contractx.ToolStatusError,
		ErrorKind:    kind,
		ErrorMessage: messageFor(name, kind, err),
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		res.InvalidParams = verr.Params()
	}
	if kind == contractx.ErrorKindInternal {
		log.Warn().Err(err).Str("tool", name).Msg("tool failed")
	}
	return res
}

func classify(err error) contractx.ErrorKind {
	switch {
	case errors.Is(err, contractx.ErrUnknownTool):
		return contractx.ErrorKindUnknownTool
	case errors.Is(err, contractx.ErrNotReady):
		return contractx.ErrorKindNotReady
	case errors.Is(err, contractx.ErrNotFound):
		return contractx.ErrorKindNotFound
	case errors.Is(err, contractx.ErrLoadFailed):
		return contractx.ErrorKindLoadFailed
	case errors.Is(err, contractx.ErrValidation):
		return contractx.ErrorKindValidation
	default:
		return contractx.ErrorKindInternal
	}
}

func messageFor(name string, kind contractx.ErrorKind, err error) string {
	if msg, ok := contractx.UserMessage(err); ok {
		return msg
	}
	switch kind {
	case contractx.ErrorKindUnknownTool:
		return fmt.Sprintf("Tool '%s' is not available.", name)
	case contractx.ErrorKindNotReady:
		return "The data this tool needs is still loading. Please try again in a moment."
	case contractx.ErrorKindNotFound:
		return "No matching record was found."
	case contractx.ErrorKindLoadFailed:
		return "The data source for this tool could not be loaded."
	case contractx.ErrorKindValidation:
		return "The tool arguments were invalid."
	default:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "The request was cancelled before the tool finished."
		}
		return "The tool failed unexpectedly. Please try again."
	}
}
