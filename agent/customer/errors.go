package customer

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

// NotReadyError is returned by Lookup while the store is not Ready.
type NotReadyError struct {
	State ReadinessState
	Cause error
}

func (e *NotReadyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("customer records are not ready (state=%s): %v", e.State, e.Cause)
	}
	return fmt.Sprintf("customer records are not ready (state=%s)", e.State)
}

func (e *NotReadyError) Unwrap() []error {
	if e.Cause != nil {
		return []error{contractx.ErrNotReady, e.Cause}
	}
	return []error{contractx.ErrNotReady}
}

func (e *NotReadyError) UserMessage() string {
	if e.State == StateLoadFailed {
		return "Customer records are unavailable right now. Please try again later."
	}
	return "Customer records are still loading. Please try again in a moment."
}

// NotFoundError is returned by Lookup when no record matches.
type NotFoundError struct {
	CustomerID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("customer %q not found", e.CustomerID)
}

func (e *NotFoundError) Unwrap() error {
	return contractx.ErrNotFound
}

func (e *NotFoundError) UserMessage() string {
	return fmt.Sprintf("Sorry, no customer found with ID '%s'.", e.CustomerID)
}
