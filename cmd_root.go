package main

import (
	"github.com/spf13/cobra"
	configx "github.com/tanpawarit/Chative-Telecom-Assistant/pkg/config"
	logx "github.com/tanpawarit/Chative-Telecom-Assistant/pkg/logger"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "telecom-assistant",
		Short:         "ACME Telecom customer service assistant",
		Long:          `Runs the ACME Telecom assistant: customer lookup, network diagnostics and retention offers behind one tool gateway.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configx.SetEnvFile(envFile)
			logCfg, err := configx.New[logx.Config]("LOG")
			if err != nil {
				return err
			}
			logx.Init(*logCfg)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file")

	root.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newInvokeCmd(),
		newToolsCmd(),
	)
	return root
}
