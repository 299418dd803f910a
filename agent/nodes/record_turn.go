package orchestratornode

import (
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

func RecordTurn(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: session is not loaded", contractx.ErrValidation)
	}

	in.Session.Append(in.Turn.Messages...)
	in.Session.Touch(in.Now)

	failed := 0
	for _, r := range in.Turn.ToolResults {
		if !r.OK() {
			failed++
		}
	}
	log.Info().
		Str("session_id", in.SessionID).
		Int("tool_calls", len(in.Turn.ToolResults)).
		Int("tool_failures", failed).
		Msg("turn recorded")
	return in, nil
}
