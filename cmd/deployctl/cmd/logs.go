package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func logsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <deployment-id>",
		Short: "Print the logs a deployment has produced so far.",
		Long: `Fetch the current status of one deployment and print every log line
available right now, without waiting for it to finish.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			jobs, err := a.jobsFromArgs(cmd, args)
			if err != nil {
				return err
			}
			job := jobs[0]

			terminal, err := a.orch.PollOnce(cmd.Context(), job)
			if err != nil {
				return err
			}

			state := "in progress"
			if terminal {
				state = "finished"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s (%s)\n", job.ID, job.Status, state)
			return err
		},
	}
	addJobFlags(cmd)
	return cmd
}
