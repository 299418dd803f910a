package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/Chative-Telecom-Assistant/agent/contract"
	configx "github.com/tanpawarit/Chative-Telecom-Assistant/pkg/config"
	logx "github.com/tanpawarit/Chative-Telecom-Assistant/pkg/logger"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant on the terminal",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Keep stdout for the conversation.
			logCfg, err := configx.New[logx.Config]("LOG")
			if err != nil {
				return err
			}
			logCfg.Output = "stderr"
			logx.Init(*logCfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := buildApp(ctx, true)
			if err != nil {
				return err
			}
			if !a.orchestrator.Ready() {
				return errors.New("chat needs OPENROUTER_API_KEY; use `invoke` to call tools directly")
			}

			sess, err := a.sessions.Start(ctx)
			if err != nil {
				return err
			}
			defer a.sessions.End(sess.ID)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "ACME Telecom assistant. Type 'exit' to quit.")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				if text == "exit" || text == "quit" {
					return nil
				}

				reply, err := a.orchestrator.HandleMessage(ctx, sess.ID, text)
				if err != nil {
					if msg, ok := contractx.UserMessage(err); ok {
						fmt.Fprintln(out, msg)
						continue
					}
					fmt.Fprintf(out, "Sorry, something went wrong: %v\n", err)
					continue
				}
				fmt.Fprintln(out, reply)
			}
		},
	}
}
