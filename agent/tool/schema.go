package tool

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamInteger ParamType = "integer"
	ParamBoolean ParamType = "boolean"
)

type ParamSpec struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
}

// Schema declares a tool to the agent. Params keep declaration order.
type Schema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"params,omitempty"`
}

func (s Schema) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: tool name is empty", contractx.ErrInvalidSchema)
	}
	if s.Name != strings.TrimSpace(s.Name) {
		return fmt.Errorf("%w: tool name %q has surrounding space", contractx.ErrInvalidSchema, s.Name)
	}
	seen := make(map[string]struct{}, len(s.Params))
	for _, p := range s.Params {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: tool=%s has a parameter without a name", contractx.ErrInvalidSchema, s.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: tool=%s declares parameter %q twice", contractx.ErrInvalidSchema, s.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
		if _, ok := einoTypes[p.Type]; !ok {
			return fmt.Errorf("%w: tool=%s parameter %q has unsupported type %q", contractx.ErrInvalidSchema, s.Name, p.Name, p.Type)
		}
	}
	return nil
}

var einoTypes = map[ParamType]schema.DataType{
	ParamString:  schema.String,
	ParamNumber:  schema.Number,
	ParamInteger: schema.Integer,
	ParamBoolean: schema.Boolean,
}

// ToolInfo converts the schema into the shape bound to the chat model.
func (s Schema) ToolInfo() *schema.ToolInfo {
	info := &schema.ToolInfo{
		Name: s.Name,
		Desc: s.Description,
	}
	if len(s.Params) == 0 {
		return info
	}
	params := make(map[string]*schema.ParameterInfo, len(s.Params))
	for _, p := range s.Params {
		params[p.Name] = &schema.ParameterInfo{
			Type:     einoTypes[p.Type],
			Desc:     p.Description,
			Required: p.Required,
		}
	}
	info.ParamsOneOf = schema.NewParamsOneOfByParams(params)
	return info
}
