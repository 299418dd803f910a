package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
)

func newInvokeCmd() *cobra.Command {
	var (
		rawArgs string
		wait    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "invoke <tool>",
		Short: "Call one tool in a fresh session and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			req := contractx.ToolRequest{Tool: args[0], Args: map[string]any{}}
			if s := strings.TrimSpace(rawArgs); s != "" {
				dec := json.NewDecoder(strings.NewReader(s))
				dec.UseNumber()
				if err := dec.Decode(&req.Args); err != nil {
					return fmt.Errorf("--args must be a JSON object: %w", err)
				}
			}

			a, err := buildApp(ctx, false)
			if err != nil {
				return err
			}
			sess, err := a.sessions.Start(ctx)
			if err != nil {
				return err
			}
			defer a.sessions.End(sess.ID)

			if wait > 0 {
				waitCtx, cancel := context.WithTimeout(ctx, wait)
				select {
				case <-sess.Customers.Done():
				case <-waitCtx.Done():
				}
				cancel()
			}

			res := sess.Gateway.Invoke(ctx, req)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&rawArgs, "args", "", `tool arguments as a JSON object, e.g. '{"area_code":"98109"}'`)
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for customer records before invoking (0 to skip)")
	return cmd
}
