package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Turn.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: assistant returned empty message", contractx.ErrValidation)
	}

	outcomes := make([]ToolOutcome, 0, len(in.Turn.ToolResults))
	for _, r := range in.Turn.ToolResults {
		outcomes = append(outcomes, ToolOutcome{
			Tool:      r.Tool,
			Status:    string(r.Status),
			ErrorKind: string(r.ErrorKind),
		})
	}
	return GraphOutput{
		SessionID:   in.SessionID,
		Reply:       reply,
		ToolResults: outcomes,
	}, nil
}
