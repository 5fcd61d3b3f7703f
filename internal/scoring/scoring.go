// Package scoring evaluates candidate profiles against a campaign's weighted rubric.
package scoring

import (
	"strings"

	"github.com/jonathan/outreach-agent/internal/types"
)

// Sub-score contribution constants.
const (
	maxScore = 100.0

	requiredSkillWeight   = 2.0
	niceToHaveSkillWeight = 1.0

	// trajectory heuristics
	stableTenureYears = 2.5 // average tenure at or above this scores full stability
	shortTenureYears  = 1.0 // average tenure at or below this scores zero
)

// normalize lowercases and trims a rubric or profile string for comparison.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// containsNormalized reports whether haystack contains needle, both normalized.
func containsNormalized(haystack, needle string) bool {
	if haystack == "" || needle == "" {
		return false
	}
	return strings.Contains(normalize(haystack), normalize(needle))
}

// computeRoleFitScore scores skill overlap and title/level alignment.
// Required skills count double against the weighted denominator.
func computeRoleFitScore(profile *types.CandidateProfile, spec *types.JobSpec) float64 {
	totalWeight := float64(len(spec.RequiredSkills))*requiredSkillWeight +
		float64(len(spec.NiceToHaveSkills))*niceToHaveSkillWeight

	profileSkills := make(map[string]bool, len(profile.Skills))
	for _, skill := range profile.Skills {
		if n := normalize(skill); n != "" {
			profileSkills[n] = true
		}
	}

	matchedWeight := 0.0
	for _, skill := range spec.RequiredSkills {
		if profileSkills[normalize(skill)] {
			matchedWeight += requiredSkillWeight
		}
	}
	for _, skill := range spec.NiceToHaveSkills {
		if profileSkills[normalize(skill)] {
			matchedWeight += niceToHaveSkillWeight
		}
	}

	skillScore := 0.0
	if totalWeight > 0 {
		skillScore = matchedWeight / totalWeight
	}

	// Title alignment: function and role level matched against the current
	// title and headline.
	titleScore := 0.0
	titleText := profile.CurrentTitle + " " + profile.Headline
	if spec.Function != "" && containsNormalized(titleText, spec.Function) {
		titleScore += 0.5
	}
	if spec.RoleLevel != "" && containsNormalized(titleText, spec.RoleLevel) {
		titleScore += 0.5
	}

	switch {
	case totalWeight > 0 && (spec.Function != "" || spec.RoleLevel != ""):
		return (0.7*skillScore + 0.3*titleScore) * maxScore
	case totalWeight > 0:
		return skillScore * maxScore
	case spec.Function != "" || spec.RoleLevel != "":
		return titleScore * maxScore
	default:
		// Rubric specifies nothing to match: neutral midpoint.
		return maxScore / 2
	}
}

// computeCompanyContextScore scores industry overlap between the profile's
// industries (including position history) and the rubric's target industries.
func computeCompanyContextScore(profile *types.CandidateProfile, spec *types.JobSpec) float64 {
	if len(spec.Industries) == 0 {
		return maxScore / 2
	}

	seen := make(map[string]bool, len(profile.Industries))
	for _, ind := range profile.Industries {
		if n := normalize(ind); n != "" {
			seen[n] = true
		}
	}
	for _, pos := range profile.Positions {
		if n := normalize(pos.Industry); n != "" {
			seen[n] = true
		}
	}

	matches := 0
	for _, ind := range spec.Industries {
		if seen[normalize(ind)] {
			matches++
		}
	}

	return float64(matches) / float64(len(spec.Industries)) * maxScore
}

// computeTrajectoryStabilityScore combines experience-range fit with average
// tenure across the profile's positions.
func computeTrajectoryStabilityScore(profile *types.CandidateProfile, spec *types.JobSpec) float64 {
	rangeScore := experienceRangeFit(profile.YearsExperience, spec.MinYearsExperience, spec.MaxYearsExperience)

	if len(profile.Positions) == 0 {
		return rangeScore * maxScore
	}

	totalTenure := 0.0
	counted := 0
	for _, pos := range profile.Positions {
		if pos.YearsHeld > 0 {
			totalTenure += pos.YearsHeld
			counted++
		}
	}
	if counted == 0 {
		return rangeScore * maxScore
	}

	avgTenure := totalTenure / float64(counted)
	tenureScore := (avgTenure - shortTenureYears) / (stableTenureYears - shortTenureYears)
	tenureScore = clamp01(tenureScore)

	return (0.6*rangeScore + 0.4*tenureScore) * maxScore
}

// experienceRangeFit scores how well total experience fits [min, max].
// Inside the range scores 1.0; outside decays linearly over a 5-year margin.
func experienceRangeFit(years float64, minYears, maxYears int) float64 {
	const decayYears = 5.0

	if minYears == 0 && maxYears == 0 {
		return 0.5
	}
	lo, hi := float64(minYears), float64(maxYears)
	if maxYears == 0 {
		hi = 1e9 // open-ended upper bound
	}

	switch {
	case years >= lo && years <= hi:
		return 1.0
	case years < lo:
		return clamp01(1.0 - (lo-years)/decayYears)
	default:
		return clamp01(1.0 - (years-hi)/decayYears)
	}
}

// computeEducationScore matches the profile's best degree against the
// rubric's education requirement.
func computeEducationScore(profile *types.CandidateProfile, spec *types.JobSpec) float64 {
	if spec.Education == "" {
		return maxScore / 2
	}
	if len(profile.Education) == 0 {
		return 0
	}

	required := degreeRank(spec.Education)
	best := 0
	for _, edu := range profile.Education {
		if rank := degreeRank(edu.Degree); rank > best {
			best = rank
		}
	}

	switch {
	case required == 0:
		// Unrecognized requirement text: any degree satisfies it.
		return maxScore
	case best >= required:
		return maxScore
	case best == required-1:
		return maxScore * 0.5
	default:
		return 0
	}
}

// degreeRank orders recognized degree levels; higher is more advanced.
func degreeRank(degree string) int {
	d := normalize(degree)
	switch {
	case strings.Contains(d, "phd") || strings.Contains(d, "doctor"):
		return 3
	case strings.Contains(d, "master") || strings.Contains(d, "mba") || strings.Contains(d, "msc"):
		return 2
	case strings.Contains(d, "bachelor") || strings.Contains(d, "bsc") || strings.Contains(d, "ba "):
		return 1
	default:
		return 0
	}
}

// computeProfileQualityScore scores how complete the profile itself is,
// independent of the rubric.
func computeProfileQualityScore(profile *types.CandidateProfile) float64 {
	score := 0.0
	if profile.HasPhoto {
		score += 20
	}
	if profile.HasSummary {
		score += 20
	}
	if profile.Headline != "" {
		score += 20
	}
	if len(profile.Skills) >= 5 {
		score += 20
	} else if len(profile.Skills) > 0 {
		score += 10
	}
	if profile.ConnectionCount >= 500 {
		score += 20
	} else if profile.ConnectionCount >= 100 {
		score += 10
	}
	return score
}

// checkDisqualifiers returns a non-empty reason when the profile matches a
// disqualify list. Companies are matched against the current company and
// position history; titles against the current title and headline.
// Matching is case-insensitive substring matching.
func checkDisqualifiers(profile *types.CandidateProfile, spec *types.JobSpec) string {
	for _, company := range spec.DisqualifyCompanies {
		if containsNormalized(profile.CurrentCompany, company) {
			return "current company matches disqualifier: " + company
		}
		for _, pos := range profile.Positions {
			if containsNormalized(pos.Company, company) {
				return "past company matches disqualifier: " + company
			}
		}
	}
	for _, title := range spec.DisqualifyTitles {
		if containsNormalized(profile.CurrentTitle, title) || containsNormalized(profile.Headline, title) {
			return "title matches disqualifier: " + title
		}
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
