package types

import "github.com/google/uuid"

// CandidateProfile is the read-only scoring input supplied by the external
// profile-ingestion source. The engine never mutates profiles.
type CandidateProfile struct {
	CandidateID     uuid.UUID       `json:"candidate_id"`
	Name            string          `json:"name,omitempty"`
	Headline        string          `json:"headline,omitempty"`
	CurrentTitle    string          `json:"current_title,omitempty"`
	CurrentCompany  string          `json:"current_company,omitempty"`
	Location        string          `json:"location,omitempty"`
	Skills          []string        `json:"skills,omitempty"`
	Industries      []string        `json:"industries,omitempty"`
	YearsExperience float64         `json:"years_experience,omitempty"`
	Positions       []PositionEntry `json:"positions,omitempty"`
	Education       []DegreeEntry   `json:"education,omitempty"`
	HasPhoto        bool            `json:"has_photo,omitempty"`
	HasSummary      bool            `json:"has_summary,omitempty"`
	ConnectionCount int             `json:"connection_count,omitempty"`
}

// PositionEntry is one role in a candidate's employment history.
type PositionEntry struct {
	Title      string  `json:"title"`
	Company    string  `json:"company"`
	Industry   string  `json:"industry,omitempty"`
	YearsHeld  float64 `json:"years_held,omitempty"`
	IsCurrent  bool    `json:"is_current,omitempty"`
	StartYear  int     `json:"start_year,omitempty"`
	EndYear    int     `json:"end_year,omitempty"`
}

// DegreeEntry is one education record on a candidate profile.
type DegreeEntry struct {
	School string `json:"school"`
	Degree string `json:"degree,omitempty"` // bachelor, master, phd, or free text
	Field  string `json:"field,omitempty"`
}

// ScoreBreakdown is the result of evaluating a candidate profile against a
// campaign's rubric. Sub-scores and Total are in [0,100].
type ScoreBreakdown struct {
	RoleFit             float64 `json:"role_fit"`
	CompanyContext      float64 `json:"company_context"`
	TrajectoryStability float64 `json:"trajectory_stability"`
	Education           float64 `json:"education"`
	ProfileQuality      float64 `json:"profile_quality"`
	Total               float64 `json:"total"`
	Disqualified        bool    `json:"disqualified,omitempty"`
	DisqualifyReason    string  `json:"disqualify_reason,omitempty"`
}
