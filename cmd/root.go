// Package cmd implements the courtside command line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/courtsideai/courtside/internal/log"
)

var (
	flagVerbose bool
	flagJSONLog bool
)

var rootCmd = &cobra.Command{
	Use:   "courtside",
	Short: "Courtside - handball coaching chat service",
	Long: `Courtside serves a streaming chat API grounded in a handball
coaching knowledge base. The model can consult the EHF RINCK Convention
manual, generate documents, and propose writing suggestions while it
answers.

Run "courtside serve" to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		level := slog.LevelInfo
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(log.New(log.Config{Level: level, JSON: flagJSONLog}))
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLog, "json-log", false, "write logs as JSON")
}
