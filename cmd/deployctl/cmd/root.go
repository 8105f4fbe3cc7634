package cmd

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/config.yaml"

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands are registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "deployctl",
		Short:        "deployctl submits remote deployments and follows them to completion.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := godotenv.Load(); err != nil {
				log.Println("No .env file found, using environment variables")
			}
		},
	}

	configPath := os.Getenv("DEPLOYCTL_CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cmd.PersistentFlags().String("config", configPath, "Path to configuration file")

	cmd.AddCommand(
		submitCmd(),
		watchCmd(),
		logsCmd(),
	)

	return cmd
}
