package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

// Args holds arguments that already passed schema validation. Values are
// coerced to string, float64, int64 or bool according to the declared type;
// undeclared arguments are dropped.
type Args struct {
	values map[string]any
}

func NewArgs(values map[string]any) Args {
	return Args{values: values}
}

func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

func (a Args) String(name string) string {
	s, _ := a.values[name].(string)
	return s
}

func (a Args) Float(name string) float64 {
	f, _ := a.values[name].(float64)
	return f
}

func (a Args) Int(name string) int64 {
	i, _ := a.values[name].(int64)
	return i
}

func (a Args) Bool(name string) bool {
	b, _ := a.values[name].(bool)
	return b
}

// Decode copies the arguments into a struct using `mapstructure` tags.
func (a Args) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: false,
	})
	if err != nil {
		return fmt.Errorf("build args decoder: %w", err)
	}
	if err := dec.Decode(a.values); err != nil {
		return fmt.Errorf("%w: decode args: %v", contractx.ErrValidation, err)
	}
	return nil
}

type ParamProblem struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ValidationError names every parameter that failed validation.
type ValidationError struct {
	Tool     string
	Problems []ParamProblem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Name+": "+p.Reason)
	}
	return fmt.Sprintf("invalid arguments for tool=%s: %s", e.Tool, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return contractx.ErrValidation
}

func (e *ValidationError) Params() []string {
	names := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		names = append(names, p.Name)
	}
	return names
}

func (e *ValidationError) UserMessage() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("'%s' %s", p.Name, p.Reason))
	}
	return "Invalid tool arguments: " + strings.Join(parts, ", ") + "."
}

func validateArgs(s Schema, raw map[string]any) (Args, error) {
	values := make(map[string]any, len(s.Params))
	var problems []ParamProblem

	for _, p := range s.Params {
		v, present := raw[p.Name]
		if !present || v == nil {
			if p.Required {
				problems = append(problems, ParamProblem{Name: p.Name, Reason: "is required"})
			}
			continue
		}

		coerced, err := coerce(p.Type, v)
		if err != nil {
			problems = append(problems, ParamProblem{Name: p.Name, Reason: err.Error()})
			continue
		}
		if str, ok := coerced.(string); ok && strings.TrimSpace(str) == "" {
			if p.Required {
				problems = append(problems, ParamProblem{Name: p.Name, Reason: "must not be empty"})
			}
			continue
		}
		values[p.Name] = coerced
	}

	if len(problems) > 0 {
		return Args{}, &ValidationError{Tool: s.Name, Problems: problems}
	}
	return Args{values: values}, nil
}

func coerce(t ParamType, v any) (any, error) {
	switch t {
	case ParamString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string, got %s", describe(v))
		}
		return s, nil
	case ParamNumber:
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("must be a number, got %s", describe(v))
		}
		return f, nil
	case ParamInteger:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("must be an integer, got %s", describe(v))
		}
		return int64(f), nil
	case ParamBoolean:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err == nil {
				return parsed, nil
			}
		}
		return nil, fmt.Errorf("must be a boolean, got %s", describe(v))
	default:
		return nil, fmt.Errorf("has unsupported type %q", t)
	}
}

// toFloat accepts JSON numbers, Go numeric kinds and numeric strings such as
// "35", which language models produce regularly.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func describe(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		if _, ok := toFloat(v); ok {
			return "number"
		}
		return fmt.Sprintf("%T", v)
	}
}
