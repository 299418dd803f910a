package contract

type ToolStatus string

const (
	ToolStatusOK    ToolStatus = "ok"
	ToolStatusError ToolStatus = "error"
)

type ErrorKind string

const (
	ErrorKindUnknownTool ErrorKind = "unknown_tool"
	ErrorKindValidation  ErrorKind = "validation_error"
	ErrorKindNotReady    ErrorKind = "not_ready"
	ErrorKindNotFound    ErrorKind = "not_found"
	ErrorKindLoadFailed  ErrorKind = "load_failed"
	ErrorKindInternal    ErrorKind = "internal"
)

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult is the uniform answer handed back to the agent. Payload is set
// only when Status is ok; the error fields only when it is error.
type ToolResult struct {
	Tool          string     `json:"tool"`
	Status        ToolStatus `json:"status"`
	Payload       any        `json:"payload,omitempty"`
	ErrorKind     ErrorKind  `json:"error_kind,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	InvalidParams []string   `json:"invalid_params,omitempty"`
}

func (r ToolResult) OK() bool {
	return r.Status == ToolStatusOK
}
