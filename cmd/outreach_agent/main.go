// Package main provides the entry point for the outreach orchestration engine CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "outreach_agent",
	Short: "Recruiting outreach orchestration engine",
	Long:  "Outreach Agent drives candidates through multi-stage outreach pipelines with human approval gates, per-campaign rate limiting, and weighted candidate scoring, exposed over a REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
