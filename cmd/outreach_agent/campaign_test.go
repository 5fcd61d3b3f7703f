package main

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCampaignDoc = `{
	"title": "Staff Backend Engineer",
	"job_spec": {"required_skills": ["go"]},
	"rate_limits": {},
	"stages": [
		{"position": 0, "name": "Connect", "action_type": "connection_request", "delay_days": 0, "requires_approval": false},
		{"position": 1, "name": "Intro", "action_type": "message", "delay_days": 2, "requires_approval": true}
	]
}`

func TestCampaignValidateCommand(t *testing.T) {
	binaryPath := getBinaryPath(t)
	docPath := writeTempJSON(t, "campaign.json", testCampaignDoc)

	cmd := exec.Command(binaryPath, "campaign", "validate", docPath)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))
	assert.Contains(t, string(output), "valid")
	assert.Contains(t, string(output), "2 stages")
}

func TestCampaignValidateCommand_ExternalSchema(t *testing.T) {
	binaryPath := getBinaryPath(t)
	docPath := writeTempJSON(t, "campaign.json", testCampaignDoc)
	// Stricter overlay: this organization titles campaigns "Senior ...".
	schemaPath := writeTempJSON(t, "overlay.schema.json", `{
		"type": "object",
		"properties": {"title": {"type": "string", "pattern": "^Senior "}}
	}`)

	cmd := exec.Command(binaryPath, "campaign", "validate", "--schema", schemaPath, docPath)
	output, err := cmd.CombinedOutput()
	assert.Error(t, err)
	assert.Contains(t, string(output), "title")

	cmd = exec.Command(binaryPath, "campaign", "validate", "--schema", writeTempJSON(t, "open.schema.json", `{"type": "object"}`), docPath)
	output, err = cmd.CombinedOutput()
	require.NoError(t, err, string(output))
	assert.Contains(t, string(output), "valid")
}

func TestCampaignValidateCommand_RejectsBadDocument(t *testing.T) {
	binaryPath := getBinaryPath(t)
	docPath := writeTempJSON(t, "campaign.json", `{"title": "No stages"}`)

	cmd := exec.Command(binaryPath, "campaign", "validate", docPath)
	output, err := cmd.CombinedOutput()
	assert.Error(t, err)
	assert.Contains(t, string(output), "stages")
}
