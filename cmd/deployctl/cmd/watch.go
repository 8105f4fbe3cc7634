package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <deployment-id>...",
		Short: "Follow existing deployments until they finish.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			jobs, err := a.jobsFromArgs(cmd, args)
			if err != nil {
				return err
			}

			result, err := a.orch.Watch(ctx, jobs)
			if printErr := printJSON(cmd.OutOrStdout(), jobs); printErr != nil {
				return printErr
			}
			if err != nil {
				return err
			}
			return result.Errors
		},
	}
	addJobFlags(cmd)
	return cmd
}
