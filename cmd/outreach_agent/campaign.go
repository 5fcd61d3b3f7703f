package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-agent/internal/observability"
	"github.com/jonathan/outreach-agent/internal/pipeline"
	"github.com/jonathan/outreach-agent/internal/schemas"
	"github.com/jonathan/outreach-agent/internal/types"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Work with campaign documents",
}

var campaignValidateSchemaPath string

var campaignValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a campaign document",
	Long: `Validate a campaign document JSON file against the schema and the domain
invariants (stage ordering, action types, rate limit consistency, rubric
weights) without touching any database.

With --schema, the document is additionally validated against an external
JSON Schema file, for organizations that layer stricter rules on top of the
built-in schema.`,
	Args: cobra.ExactArgs(1),
	RunE: runCampaignValidate,
}

func init() {
	campaignValidateCmd.Flags().StringVar(&campaignValidateSchemaPath, "schema", "", "Additional JSON Schema file to validate against")
	campaignCmd.AddCommand(campaignValidateCmd)
	rootCmd.AddCommand(campaignCmd)
}

func runCampaignValidate(_ *cobra.Command, args []string) error {
	if campaignValidateSchemaPath != "" {
		if err := schemas.ValidateJSON(campaignValidateSchemaPath, args[0]); err != nil {
			return err
		}
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read campaign document: %w", err)
	}

	doc, err := schemas.ParseCampaignDocument(data)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	campaign := types.Campaign{
		ID:              uuid.New(),
		Title:           doc.Title,
		RoleDescription: doc.RoleDescription,
		JobSpec:         doc.JobSpec,
		RateLimits:      doc.RateLimits,
		OnRejection:     doc.OnRejection,
		MaxStageRetries: doc.MaxStageRetries,
		Status:          types.CampaignDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if campaign.RateLimits == (types.RateLimitConfig{}) {
		campaign.RateLimits = types.DefaultRateLimitConfig()
	}
	if err := campaign.Validate(); err != nil {
		return err
	}

	version, err := pipeline.NextVersion(campaign.ID, nil, doc.Stages, now)
	if err != nil {
		return err
	}

	fmt.Printf("Campaign document is valid: %s (%d stages)\n", doc.Title, len(version.Stages))
	observability.NewPrinter(os.Stdout).PrintPipeline(&version)
	return nil
}
