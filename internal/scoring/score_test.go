package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/outreach-agent/internal/types"
)

func intPtr(v int) *int { return &v }

func fullProfile() *types.CandidateProfile {
	return &types.CandidateProfile{
		Name:            "Dana Reyes",
		Headline:        "Senior Backend Engineer",
		CurrentTitle:    "Senior Software Engineer",
		CurrentCompany:  "Streamline Labs",
		Skills:          []string{"Go", "Kubernetes", "PostgreSQL", "Redis", "Terraform"},
		Industries:      []string{"Fintech"},
		YearsExperience: 8,
		Positions: []types.PositionEntry{
			{Title: "Senior Software Engineer", Company: "Streamline Labs", Industry: "Fintech", YearsHeld: 3, IsCurrent: true},
			{Title: "Software Engineer", Company: "Orbital Systems", Industry: "SaaS", YearsHeld: 4},
		},
		Education:       []types.DegreeEntry{{School: "State University", Degree: "Bachelor of Science", Field: "Computer Science"}},
		HasPhoto:        true,
		HasSummary:      true,
		ConnectionCount: 800,
	}
}

func backendSpec() *types.JobSpec {
	return &types.JobSpec{
		Function:           "engineer",
		RoleLevel:          "senior",
		Industries:         []string{"Fintech"},
		RequiredSkills:     []string{"Go", "Kubernetes"},
		NiceToHaveSkills:   []string{"Terraform", "Rust"},
		MinYearsExperience: 5,
		MaxYearsExperience: 12,
		Education:          "bachelor",
	}
}

func TestScore_Deterministic(t *testing.T) {
	profile, spec := fullProfile(), backendSpec()

	first := Score(profile, spec)
	second := Score(profile, spec)

	assert.Equal(t, first, second)
}

func TestScore_SubScoresInRange(t *testing.T) {
	b := Score(fullProfile(), backendSpec())

	for name, v := range map[string]float64{
		"role_fit":             b.RoleFit,
		"company_context":      b.CompanyContext,
		"trajectory_stability": b.TrajectoryStability,
		"education":            b.Education,
		"profile_quality":      b.ProfileQuality,
		"total":                b.Total,
	} {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 100.0, name)
	}
	assert.False(t, b.Disqualified)
	assert.Greater(t, b.Total, 50.0, "strong match should score well")
}

func TestScore_WeightedSumExactWhenWeightsSum100(t *testing.T) {
	profile := fullProfile()
	spec := backendSpec()
	spec.Weights = types.Weights{
		RoleFit:             intPtr(40),
		CompanyContext:      intPtr(25),
		TrajectoryStability: intPtr(20),
		Education:           intPtr(10),
		ProfileQuality:      intPtr(5),
	}

	b := Score(profile, spec)

	expected := (b.RoleFit*40 + b.CompanyContext*25 + b.TrajectoryStability*20 +
		b.Education*10 + b.ProfileQuality*5) / 100
	assert.InDelta(t, expected, b.Total, 1e-9)
}

func TestScore_NormalizesNonStandardWeightSum(t *testing.T) {
	profile := fullProfile()
	spec := backendSpec()
	// Weight set deliberately summing to 110: evaluation must divide by the
	// actual sum rather than assume 100.
	spec.Weights = types.Weights{
		RoleFit:             intPtr(50),
		CompanyContext:      intPtr(25),
		TrajectoryStability: intPtr(20),
		Education:           intPtr(10),
		ProfileQuality:      intPtr(5),
	}

	b := Score(profile, spec)

	expected := (b.RoleFit*50 + b.CompanyContext*25 + b.TrajectoryStability*20 +
		b.Education*10 + b.ProfileQuality*5) / 110
	assert.InDelta(t, expected, b.Total, 1e-9)
	assert.LessOrEqual(t, b.Total, 100.0)
}

func TestScore_DisqualifiedCompany(t *testing.T) {
	profile := fullProfile()
	spec := backendSpec()
	spec.DisqualifyCompanies = []string{"streamline"}

	b := Score(profile, spec)

	assert.True(t, b.Disqualified)
	assert.Equal(t, 0.0, b.Total)
	assert.Contains(t, b.DisqualifyReason, "streamline")
}

func TestScore_DisqualifiedPastCompany(t *testing.T) {
	profile := fullProfile()
	spec := backendSpec()
	spec.DisqualifyCompanies = []string{"Orbital Systems"}

	b := Score(profile, spec)

	assert.True(t, b.Disqualified)
	assert.Equal(t, 0.0, b.Total)
}

func TestScore_DisqualifiedTitle(t *testing.T) {
	profile := fullProfile()
	spec := backendSpec()
	spec.DisqualifyTitles = []string{"recruiter"}
	profile.Headline = "Technical Recruiter turned Engineer"

	b := Score(profile, spec)

	assert.True(t, b.Disqualified)
	assert.Equal(t, 0.0, b.Total)
	assert.Contains(t, b.DisqualifyReason, "title")
}

func TestComputeRoleFitScore_SkillOverlap(t *testing.T) {
	profile := &types.CandidateProfile{Skills: []string{"go", "kubernetes"}}
	spec := &types.JobSpec{RequiredSkills: []string{"Go", "Kubernetes", "Rust"}}

	// 2 of 3 required skills matched (case-insensitive), no title criteria.
	score := computeRoleFitScore(profile, spec)

	assert.InDelta(t, 2.0/3.0*100, score, 0.01)
}

func TestComputeRoleFitScore_RequiredWeighsDouble(t *testing.T) {
	profile := &types.CandidateProfile{Skills: []string{"Terraform"}}
	spec := &types.JobSpec{
		RequiredSkills:   []string{"Go"},
		NiceToHaveSkills: []string{"Terraform"},
	}

	// Matched 1.0 of 3.0 total weight (required=2, nice-to-have=1).
	score := computeRoleFitScore(profile, spec)

	assert.InDelta(t, 1.0/3.0*100, score, 0.01)
}

func TestComputeCompanyContextScore_NoTargetIndustries(t *testing.T) {
	score := computeCompanyContextScore(fullProfile(), &types.JobSpec{})
	assert.Equal(t, 50.0, score)
}

func TestComputeEducationScore_Levels(t *testing.T) {
	spec := &types.JobSpec{Education: "master"}

	phd := &types.CandidateProfile{Education: []types.DegreeEntry{{Degree: "PhD"}}}
	assert.Equal(t, 100.0, computeEducationScore(phd, spec))

	bachelor := &types.CandidateProfile{Education: []types.DegreeEntry{{Degree: "Bachelor of Arts"}}}
	assert.Equal(t, 50.0, computeEducationScore(bachelor, spec))

	none := &types.CandidateProfile{}
	assert.Equal(t, 0.0, computeEducationScore(none, spec))
}

func TestExperienceRangeFit(t *testing.T) {
	// Inside range
	assert.Equal(t, 1.0, experienceRangeFit(7, 5, 10))
	// Below range: linear decay over 5 years
	assert.InDelta(t, 0.6, experienceRangeFit(3, 5, 10), 0.01)
	// Far above range
	assert.Equal(t, 0.0, experienceRangeFit(20, 2, 5))
	// Open-ended max
	assert.Equal(t, 1.0, experienceRangeFit(25, 5, 0))
	// No range configured: neutral
	assert.Equal(t, 0.5, experienceRangeFit(7, 0, 0))
}
