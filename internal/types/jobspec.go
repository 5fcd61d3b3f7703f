package types

import "fmt"

// Default category weights used when a JobSpec does not override them.
const (
	DefaultRoleFitWeight             = 40
	DefaultCompanyContextWeight      = 25
	DefaultTrajectoryStabilityWeight = 20
	DefaultEducationWeight           = 10
	DefaultProfileQualityWeight      = 5
)

// Weights holds the five scoring category weights. Unset (nil) weights fall
// back to the defaults; if any weight is overridden, the full set must sum to
// 100 at save time.
type Weights struct {
	RoleFit             *int `json:"role_fit,omitempty" validate:"omitempty,gte=0,lte=100"`
	CompanyContext      *int `json:"company_context,omitempty" validate:"omitempty,gte=0,lte=100"`
	TrajectoryStability *int `json:"trajectory_stability,omitempty" validate:"omitempty,gte=0,lte=100"`
	Education           *int `json:"education,omitempty" validate:"omitempty,gte=0,lte=100"`
	ProfileQuality      *int `json:"profile_quality,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// EffectiveWeights is a fully-resolved weight set with defaults applied.
type EffectiveWeights struct {
	RoleFit             int `json:"role_fit"`
	CompanyContext      int `json:"company_context"`
	TrajectoryStability int `json:"trajectory_stability"`
	Education           int `json:"education"`
	ProfileQuality      int `json:"profile_quality"`
}

// Overridden reports whether any weight was explicitly set.
func (w *Weights) Overridden() bool {
	return w.RoleFit != nil || w.CompanyContext != nil || w.TrajectoryStability != nil ||
		w.Education != nil || w.ProfileQuality != nil
}

// Effective resolves the weight set, substituting defaults for unset values.
func (w *Weights) Effective() EffectiveWeights {
	pick := func(v *int, def int) int {
		if v != nil {
			return *v
		}
		return def
	}
	return EffectiveWeights{
		RoleFit:             pick(w.RoleFit, DefaultRoleFitWeight),
		CompanyContext:      pick(w.CompanyContext, DefaultCompanyContextWeight),
		TrajectoryStability: pick(w.TrajectoryStability, DefaultTrajectoryStabilityWeight),
		Education:           pick(w.Education, DefaultEducationWeight),
		ProfileQuality:      pick(w.ProfileQuality, DefaultProfileQualityWeight),
	}
}

// Sum returns the total of the resolved weights.
func (ew EffectiveWeights) Sum() int {
	return ew.RoleFit + ew.CompanyContext + ew.TrajectoryStability + ew.Education + ew.ProfileQuality
}

// JobSpec is the scoring rubric attached to a campaign: the structured
// criteria a candidate profile is evaluated against, plus category weights.
type JobSpec struct {
	Function            string   `json:"function,omitempty"`
	RoleLevel           string   `json:"role_level,omitempty"`
	Industries          []string `json:"industries,omitempty"`
	RequiredSkills      []string `json:"required_skills,omitempty"`
	NiceToHaveSkills    []string `json:"nice_to_have_skills,omitempty"`
	MinYearsExperience  int      `json:"min_years_experience,omitempty" validate:"gte=0"`
	MaxYearsExperience  int      `json:"max_years_experience,omitempty" validate:"gte=0"`
	Education           string   `json:"education,omitempty"`
	DisqualifyCompanies []string `json:"disqualify_companies,omitempty"`
	DisqualifyTitles    []string `json:"disqualify_titles,omitempty"`
	Weights             Weights  `json:"weights"`
}

// Validate checks the rubric's invariants: non-negative experience range and,
// when any weight is overridden, a weight sum of exactly 100.
func (s *JobSpec) Validate() error {
	if s.MaxYearsExperience > 0 && s.MinYearsExperience > s.MaxYearsExperience {
		return fmt.Errorf("job spec: min_years_experience (%d) exceeds max_years_experience (%d)",
			s.MinYearsExperience, s.MaxYearsExperience)
	}
	if s.Weights.Overridden() {
		if sum := s.Weights.Effective().Sum(); sum != 100 {
			return fmt.Errorf("job spec: overridden weights must sum to 100, got %d", sum)
		}
	}
	return nil
}
