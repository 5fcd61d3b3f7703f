// Package observability provides the engine's structured logger and
// formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/outreach-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintScoreBreakdown outputs a human-readable summary of a candidate score.
func (p *Printer) PrintScoreBreakdown(name string, score *types.ScoreBreakdown) {
	if score == nil {
		return
	}

	var sb strings.Builder
	if name != "" {
		sb.WriteString(fmt.Sprintf("Candidate: %s\n\n", name))
	}
	if score.Disqualified {
		sb.WriteString("DISQUALIFIED\n")
		sb.WriteString(fmt.Sprintf("Reason: %s", score.DisqualifyReason))
		p.printBox("CANDIDATE SCORE", sb.String())
		return
	}

	sb.WriteString(fmt.Sprintf("Role fit:              %5.1f\n", score.RoleFit))
	sb.WriteString(fmt.Sprintf("Company context:       %5.1f\n", score.CompanyContext))
	sb.WriteString(fmt.Sprintf("Trajectory/stability:  %5.1f\n", score.TrajectoryStability))
	sb.WriteString(fmt.Sprintf("Education:             %5.1f\n", score.Education))
	sb.WriteString(fmt.Sprintf("Profile quality:       %5.1f\n", score.ProfileQuality))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Total:                 %5.1f", score.Total))

	p.printBox("CANDIDATE SCORE", sb.String())
}

// PrintPipeline outputs a human-readable summary of a pipeline version.
func (p *Printer) PrintPipeline(version *types.PipelineVersion) {
	if version == nil || len(version.Stages) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Version: %d\n\n", version.Version))
	for _, stage := range version.Stages {
		sb.WriteString(fmt.Sprintf("%d. %s [%s]", stage.Position, stage.Name, stage.ActionType))
		if stage.DelayDays > 0 {
			sb.WriteString(fmt.Sprintf(" +%dd", stage.DelayDays))
		}
		if stage.RequiresApproval {
			sb.WriteString(" (approval)")
		}
		sb.WriteString("\n")
	}

	p.printBox("PIPELINE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintApprovalStats outputs a campaign's approval queue counts.
func (p *Printer) PrintApprovalStats(stats types.ApprovalStats) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Pending:   %d\n", stats.Pending))
	sb.WriteString(fmt.Sprintf("Approved:  %d\n", stats.Approved))
	sb.WriteString(fmt.Sprintf("Rejected:  %d\n", stats.Rejected))
	sb.WriteString(fmt.Sprintf("Sent:      %d\n", stats.Sent))
	sb.WriteString(fmt.Sprintf("Failed:    %d", stats.Failed))

	p.printBox("APPROVAL QUEUE", sb.String())
}
