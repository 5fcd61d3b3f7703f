package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/outreach-agent/internal/types"
)

// readProfile loads a candidate profile from a JSON file.
func readProfile(path string) (*types.CandidateProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	var profile types.CandidateProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	return &profile, nil
}
