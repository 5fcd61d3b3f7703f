package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-agent/internal/observability"
	"github.com/jonathan/outreach-agent/internal/schemas"
	"github.com/jonathan/outreach-agent/internal/scoring"
	"github.com/jonathan/outreach-agent/internal/types"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a candidate profile against a job spec",
	Long: `Score a candidate profile JSON file against a scoring rubric and print the
per-category breakdown. The rubric comes either from a standalone job spec
file (--job-spec) or from a campaign document (--campaign-doc).`,
	RunE: runScore,
}

var (
	scoreProfilePath     string
	scoreJobSpecPath     string
	scoreCampaignDocPath string
	scoreJSONOutput      bool
)

func init() {
	scoreCmd.Flags().StringVarP(&scoreProfilePath, "profile", "p", "", "Path to candidate profile JSON file (required)")
	scoreCmd.Flags().StringVar(&scoreJobSpecPath, "job-spec", "", "Path to job spec JSON file (mutually exclusive with --campaign-doc)")
	scoreCmd.Flags().StringVar(&scoreCampaignDocPath, "campaign-doc", "", "Path to campaign document JSON file (mutually exclusive with --job-spec)")
	scoreCmd.Flags().BoolVar(&scoreJSONOutput, "json", false, "Print the breakdown as JSON instead of a formatted box")
	_ = scoreCmd.MarkFlagRequired("profile")

	rootCmd.AddCommand(scoreCmd)
}

func loadScoreInputs() (*types.CandidateProfile, *types.JobSpec, error) {
	if (scoreJobSpecPath == "") == (scoreCampaignDocPath == "") {
		return nil, nil, fmt.Errorf("exactly one of --job-spec or --campaign-doc is required")
	}

	profile, err := readProfile(scoreProfilePath)
	if err != nil {
		return nil, nil, err
	}

	var spec types.JobSpec
	switch {
	case scoreJobSpecPath != "":
		data, err := os.ReadFile(scoreJobSpecPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read job spec file: %w", err)
		}
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, nil, fmt.Errorf("failed to parse job spec JSON: %w", err)
		}
	default:
		data, err := os.ReadFile(scoreCampaignDocPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read campaign document: %w", err)
		}
		doc, err := schemas.ParseCampaignDocument(data)
		if err != nil {
			return nil, nil, err
		}
		spec = doc.JobSpec
	}

	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}
	return profile, &spec, nil
}

func runScore(_ *cobra.Command, _ []string) error {
	profile, spec, err := loadScoreInputs()
	if err != nil {
		return err
	}

	breakdown := scoring.Score(profile, spec)

	if scoreJSONOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(breakdown)
	}

	name := profile.Name
	if name == "" {
		name = profile.CandidateID.String()
	}
	observability.NewPrinter(os.Stdout).PrintScoreBreakdown(name, &breakdown)
	return nil
}
