package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	ErrUnknownTool   = errors.New("tool not available")
	ErrDuplicateTool = errors.New("tool already registered")
	ErrInvalidSchema = errors.New("invalid tool schema")
	ErrNotReady      = errors.New("records are not ready")
	ErrNotFound      = errors.New("not found")
	ErrLoadFailed    = errors.New("data source load failed")
	ErrToolLoop      = errors.New("tool call rounds exhausted")
)

// UserMessenger is implemented by errors that carry text safe to show to the
// end user as-is.
type UserMessenger interface {
	UserMessage() string
}

// UserMessage returns the user-facing text carried by err, if any.
func UserMessage(err error) (string, bool) {
	var um UserMessenger
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg, true
		}
	}
	return "", false
}
