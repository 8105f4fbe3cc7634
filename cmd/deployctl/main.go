package main

import (
	"os"

	"github.com/cuongbtq/deploy-orchestrator/cmd/deployctl/cmd"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
