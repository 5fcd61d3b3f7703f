package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/executor"
	"github.com/jonathan/outreach-agent/internal/observability"
	"github.com/jonathan/outreach-agent/internal/orchestrator"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a candidate into a campaign",
	Long: `Score a candidate profile against a campaign and enroll them at the first
stage of the campaign's current pipeline. Disqualified candidates are
reported and not enrolled.`,
	RunE: runEnroll,
}

var (
	enrollCampaignID  string
	enrollProfilePath string
	enrollDatabaseURL string
)

func init() {
	enrollCmd.Flags().StringVarP(&enrollCampaignID, "campaign", "c", "", "Campaign ID (required)")
	enrollCmd.Flags().StringVarP(&enrollProfilePath, "profile", "p", "", "Path to candidate profile JSON file (required)")
	enrollCmd.Flags().StringVar(&enrollDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	_ = enrollCmd.MarkFlagRequired("campaign")
	_ = enrollCmd.MarkFlagRequired("profile")

	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	campaignID, err := uuid.Parse(enrollCampaignID)
	if err != nil {
		return fmt.Errorf("invalid campaign ID: %w", err)
	}

	profile, err := readProfile(enrollProfilePath)
	if err != nil {
		return err
	}
	if profile.CandidateID == uuid.Nil {
		profile.CandidateID = uuid.New()
	}

	databaseURL := enrollDatabaseURL
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return fmt.Errorf("a database is required: pass --db-url or set DATABASE_URL")
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log, err := observability.NewLogger(false)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	engine := orchestrator.New(database, &executor.DryRun{}, log)
	state, err := engine.Enroll(ctx, campaignID, profile.CandidateID, profile)
	if err != nil {
		var dq *orchestrator.DisqualifiedError
		if errors.As(err, &dq) {
			return fmt.Errorf("candidate disqualified: %s", dq.Reason)
		}
		return err
	}

	fmt.Printf("Enrolled candidate %s at stage %d (pipeline v%d)\n",
		state.CandidateID, state.StageIndex, state.PipelineVersion)
	if state.Score != nil {
		name := profile.Name
		if name == "" {
			name = state.CandidateID.String()
		}
		observability.NewPrinter(os.Stdout).PrintScoreBreakdown(name, state.Score)
	}
	return nil
}
