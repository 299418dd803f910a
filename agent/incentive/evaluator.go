// Package incentive decides whether a customer is offered the retention
// discount.
//
// The rule is a placeholder business heuristic, not a reviewed policy. Callers
// only ever see one of two fixed messages; the inputs and the rule itself are
// never part of the output.
package incentive

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

// DefaultRule is evaluated with age as a double and gender already trimmed
// and lower-cased.
const DefaultRule = `age > 30.0 && (gender.contains("female") || gender.startsWith("f"))`

const (
	EligibleMessage   = "You are eligible for a 20% discount for 12 months as an incentive."
	IneligibleMessage = "Sorry, no incentives available for you."
)

type Verdict string

const (
	Eligible   Verdict = "eligible"
	Ineligible Verdict = "ineligible"
)

// Message is the only representation of a verdict that leaves this package.
func (v Verdict) Message() string {
	if v == Eligible {
		return EligibleMessage
	}
	return IneligibleMessage
}

type Evaluator struct {
	program cel.Program
}

type Option func(*config)

type config struct {
	rule string
}

// WithRule replaces the eligibility expression. The expression sees `age`
// (double) and `gender` (string) and must produce a bool.
func WithRule(rule string) Option {
	return func(c *config) {
		if trimmed := strings.TrimSpace(rule); trimmed != "" {
			c.rule = trimmed
		}
	}
}

func NewEvaluator(opts ...Option) (*Evaluator, error) {
	cfg := config{rule: DefaultRule}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	env, err := cel.NewEnv(
		cel.Variable("age", cel.DoubleType),
		cel.Variable("gender", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("incentive: create cel env: %w", err)
	}

	ast, issues := env.Compile(cfg.rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: compile eligibility rule: %v", contractx.ErrValidation, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: eligibility rule must yield bool, got %s", contractx.ErrValidation, ast.OutputType())
	}

	program, err := env.Program(ast, cel.CostLimit(10000))
	if err != nil {
		return nil, fmt.Errorf("incentive: build program: %w", err)
	}
	return &Evaluator{program: program}, nil
}

// MustNewEvaluator panics if the rule does not compile.
func MustNewEvaluator(opts ...Option) *Evaluator {
	e, err := NewEvaluator(opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Evaluate is deterministic; any evaluation failure is treated as ineligible.
func (e *Evaluator) Evaluate(age float64, gender string) Verdict {
	out, _, err := e.program.Eval(map[string]any{
		"age":    age,
		"gender": strings.ToLower(strings.TrimSpace(gender)),
	})
	if err != nil {
		log.Warn().Err(err).Msg("eligibility rule evaluation failed")
		return Ineligible
	}
	if ok, _ := out.Value().(bool); ok {
		return Eligible
	}
	return Ineligible
}
