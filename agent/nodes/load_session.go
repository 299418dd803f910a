package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Telecom-Assistant/agent/state"
)

type SessionLookup interface {
	Get(id string) (*statex.Session, error)
}

// LoadSession resolves the session, takes its turn lock and snapshots the
// transcript the assistant will see.
func LoadSession(in *GraphState, sessions SessionLookup) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := sessions.Get(in.SessionID)
	if err != nil {
		return nil, err
	}
	in.Guard.hold(sess.BeginTurn())

	in.Session = sess
	in.History = sess.History()
	return in, nil
}
