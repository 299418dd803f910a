package contract

import "context"

// ToolGateway is the boundary the conversational agent calls tools through.
// Implementations never return Go errors; failures are folded into the
// ToolResult.
type ToolGateway interface {
	Invoke(ctx context.Context, req ToolRequest) ToolResult
	Execute(ctx context.Context, reqs []ToolRequest) []ToolResult
}
