package scoring

import "github.com/jonathan/outreach-agent/internal/types"

// Score evaluates a candidate profile against a rubric and returns the
// per-category breakdown and weighted total, all in [0,100].
//
// Disqualifier hits short-circuit to Total=0 with a recorded reason. The
// weighted sum is normalized by the actual weight sum, so a weight set that
// does not sum to exactly 100 at evaluation time still produces a total in
// range. Identical inputs always produce identical output.
func Score(profile *types.CandidateProfile, spec *types.JobSpec) types.ScoreBreakdown {
	if reason := checkDisqualifiers(profile, spec); reason != "" {
		return types.ScoreBreakdown{
			Disqualified:     true,
			DisqualifyReason: reason,
		}
	}

	breakdown := types.ScoreBreakdown{
		RoleFit:             computeRoleFitScore(profile, spec),
		CompanyContext:      computeCompanyContextScore(profile, spec),
		TrajectoryStability: computeTrajectoryStabilityScore(profile, spec),
		Education:           computeEducationScore(profile, spec),
		ProfileQuality:      computeProfileQualityScore(profile),
	}

	weights := spec.Weights.Effective()
	weightSum := weights.Sum()
	if weightSum <= 0 {
		return breakdown
	}

	weighted := breakdown.RoleFit*float64(weights.RoleFit) +
		breakdown.CompanyContext*float64(weights.CompanyContext) +
		breakdown.TrajectoryStability*float64(weights.TrajectoryStability) +
		breakdown.Education*float64(weights.Education) +
		breakdown.ProfileQuality*float64(weights.ProfileQuality)

	total := weighted / float64(weightSum)
	if total > maxScore {
		total = maxScore
	}
	if total < 0 {
		total = 0
	}
	breakdown.Total = total

	return breakdown
}
