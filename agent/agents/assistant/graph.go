package assistant

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// compileModelGraph wires system prompt injection in front of the tool-bound
// chat model. One Invoke is one model round.
func compileModelGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[[]*schema.Message, *schema.Message], error) {
	graph := compose.NewGraph[[]*schema.Message, *schema.Message]()

	if err := graph.AddLambdaNode("with_system_prompt",
		compose.InvokableLambda(func(ctx context.Context, in []*schema.Message) ([]*schema.Message, error) {
			out := make([]*schema.Message, 0, len(in)+1)
			out = append(out, schema.SystemMessage(systemPrompt))
			return append(out, in...), nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add system prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add model node: %w", err)
	}

	edges := [][2]string{
		{compose.START, "with_system_prompt"},
		{"with_system_prompt", "model"},
		{"model", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("assistant.model_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile assistant model graph: %w", err)
	}
	return runner, nil
}
