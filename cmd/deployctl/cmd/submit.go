package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/deploy-orchestrator/internal/config"
	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit [workload[:operation]...]",
		Short: "Submit deployments and follow them until they finish.",
		Long: `Submit one deployment per argument and poll all of them until every one
reaches a terminal status, streaming their logs. Without arguments the
deployments listed in the config file are submitted. The operation defaults
to update.

Example:

  deployctl submit go-bucket bucket-time:preview yamlcaml:destroy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := requestsFromArgs(args)
			if err != nil {
				return err
			}

			target, err := cmd.Flags().GetString("target")
			if err != nil {
				return fmt.Errorf("error reading target: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(reqs) == 0 {
				reqs = a.cfg.DefaultRequests()
			}
			if len(reqs) == 0 {
				return errors.New("nothing to submit: pass workloads as arguments or list them under deployments in the config")
			}
			for i := range reqs {
				if target != "" && reqs[i].Context.Target == "" {
					reqs[i].Context.Target = target
				}
			}

			result, runErr := a.orch.Run(ctx, reqs)
			if err := printJSON(cmd.OutOrStdout(), result.Jobs); err != nil {
				return fmt.Errorf("failed to print deployments: %w", err)
			}

			var errs *multierror.Error
			if runErr != nil {
				errs = multierror.Append(errs, runErr)
			}
			if result.SubmitErrors != nil {
				errs = multierror.Append(errs, result.SubmitErrors)
			}
			if result.Monitor.Errors != nil {
				errs = multierror.Append(errs, result.Monitor.Errors)
			}

			a.logger.Info("Run finished",
				slog.Int("submitted", len(result.Jobs)),
				slog.Int("completed", len(result.Monitor.Completed)),
				slog.Int("degraded", len(result.Monitor.Degraded)),
				slog.Int("pending", len(result.Monitor.Pending)),
			)

			return errs.ErrorOrNil()
		},
	}
	cmd.Flags().String("target", "", "Target stack for deployments that do not name one")
	return cmd
}

func requestsFromArgs(args []string) ([]domain.Request, error) {
	reqs := make([]domain.Request, 0, len(args))
	for _, arg := range args {
		req, err := config.ParseRequest(arg)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
