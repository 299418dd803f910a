package prompt

import (
	"strings"
	"testing"
)

func TestLoadPromptSet(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	if err := set.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, tool := range []string{"say_hello", "say_goodbye", "get_customer_info", "network_diagnostics", "check_incentive_eligibility"} {
		if !strings.Contains(set.Assistant, tool) {
			t.Fatalf("assistant prompt does not mention %s", tool)
		}
	}
}

func TestAssistantPromptKeepsRuleSecret(t *testing.T) {
	t.Parallel()

	lower := strings.ToLower(LoadPromptSet().Assistant)
	for _, leak := range []string{"30", "older than", "female", "20%"} {
		if strings.Contains(lower, leak) {
			t.Fatalf("assistant prompt leaks %q", leak)
		}
	}
}

func TestPromptSetValidateEmpty(t *testing.T) {
	t.Parallel()

	if err := (PromptSet{}).Validate(); err == nil {
		t.Fatal("expected error for empty prompt set")
	}
}
