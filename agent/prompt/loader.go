package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

//go:embed template/assistant.txt
var assistantRaw string

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Assistant string
}

// LoadPromptSet returns the embedded prompts, trimmed.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Assistant: strings.TrimSpace(assistantRaw),
	}
}

func (p PromptSet) Validate() error {
	if p.Assistant == "" {
		return fmt.Errorf("%w: assistant", contractx.ErrPromptMissing)
	}
	return nil
}
