// Package main provides the roster command: the assignment API server and
// local tooling around the assignment engine.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/okian/roster/pkg/logger"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var logFormat string

	root := &cobra.Command{
		Use:           "roster",
		Short:         "Roster assignment engine",
		Long:          "Ranks a candidate pool by composite weight and assigns the strongest candidates to numbered slots.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts := []logger.Option{logger.WithOutput(cmd.ErrOrStderr())}
			if logFormat != "" {
				opts = append(opts, logger.WithFormat(logFormat))
			}
			return logger.Init(opts...)
		},
	}
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log encoding: text or json")

	root.AddCommand(newServeCmd(), newAssignCmd(), newSampleCmd())
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
