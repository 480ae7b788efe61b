package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the participant's position in the team.
type Role string

const (
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// ParseRole resolves a role string. The join form historically sent
// "participant" and "observer"; both fold into member.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "member", "participant", "observer":
		return RoleMember, true
	case "manager":
		return RoleManager, true
	default:
		return "", false
	}
}

// Mode is the working mode a participant reports at join time.
type Mode string

const (
	ModeExplorer  Mode = "explorer"
	ModeAchiever  Mode = "achiever"
	ModeSupporter Mode = "supporter"
	ModeObserver  Mode = "observer"
)

// Modes lists the accepted modes in display order.
var Modes = []Mode{ModeExplorer, ModeAchiever, ModeSupporter, ModeObserver}

func ParseMode(s string) (Mode, bool) {
	v := Mode(strings.ToLower(strings.TrimSpace(s)))
	if v == "" {
		return ModeExplorer, true
	}
	for _, m := range Modes {
		if m == v {
			return m, true
		}
	}
	return "", false
}

// Stance is the self-reported snapshot captured when a participant joins.
// EnergyLevel and Openness are stored on StanceRange.
type Stance struct {
	EnergyLevel int  `json:"energyLevel"`
	CurrentMode Mode `json:"currentMode"`
	Openness    int  `json:"openness"`
}

// DefaultStance is used for every stance field the join request omits.
func DefaultStance() Stance {
	return Stance{EnergyLevel: StanceRange.Mid(), CurrentMode: ModeExplorer, Openness: StanceRange.Mid()}
}

type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	Stance   Stance    `json:"stance"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Question is the prompt the facilitator puts in front of the room.
type Question struct {
	Text   string `json:"text"`
	Theme  string `json:"theme"`
	Custom bool   `json:"custom,omitempty"`
}

type AsIs struct {
	Fact  string `json:"fact"`
	Score int    `json:"score"`
}

type ToBe struct {
	Will  string `json:"will"`
	Score int    `json:"score"`
}

type Solution struct {
	Action string   `json:"action"`
	Tags   []string `json:"tags,omitempty"`
}

// SolutionTags are the predefined tag ids a solution may carry.
var SolutionTags = []string{
	"communication",
	"process",
	"tooling",
	"skills",
	"culture",
	"leadership",
	"resources",
	"wellbeing",
}

// ValidateTags rejects tags outside SolutionTags and drops duplicates.
func ValidateTags(tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	known := make(map[string]struct{}, len(SolutionTags))
	for _, t := range SolutionTags {
		known[t] = struct{}{}
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		t := strings.ToLower(strings.TrimSpace(raw))
		if _, ok := known[t]; !ok {
			return nil, fmt.Errorf("unknown solution tag %q", raw)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// Hero holds the four psychological-capital sub-scores, each on HeroRange.
type Hero struct {
	Hope       int `json:"hope"`
	Efficacy   int `json:"efficacy"`
	Resilience int `json:"resilience"`
	Optimism   int `json:"optimism"`
}

// Values returns the sub-scores in a fixed item order.
func (h Hero) Values() []float64 {
	return []float64{float64(h.Hope), float64(h.Efficacy), float64(h.Resilience), float64(h.Optimism)}
}

// Vulnerability holds the two exposure sub-scores, each on HeroRange.
type Vulnerability struct {
	Anxiety int `json:"anxiety"`
	Safety  int `json:"safety"`
}

type Response struct {
	ID              string         `json:"id"`
	ParticipantID   string         `json:"participantId"`
	ParticipantName string         `json:"participantName"`
	ParticipantRole Role           `json:"participantRole"`
	Answer          string         `json:"answer"`
	AsIs            AsIs           `json:"asIs"`
	ToBe            ToBe           `json:"toBe"`
	Solution        *Solution      `json:"solution,omitempty"`
	Gap             int            `json:"gap"`
	Hero            *Hero          `json:"hero,omitempty"`
	Vulnerability   *Vulnerability `json:"vulnerability,omitempty"`
	SubmittedAt     time.Time      `json:"submittedAt"`
}

// Gap is the to-be score minus the as-is score. Zero and negative values are valid.
func Gap(asIs, toBe int) int { return toBe - asIs }

// ComputeGap returns Gap for the response's own scores.
func (r Response) ComputeGap() int { return Gap(r.AsIs.Score, r.ToBe.Score) }

// GapDistribution counts responses by the sign of their gap.
type GapDistribution struct {
	Positive int `json:"positive"`
	Zero     int `json:"zero"`
	Negative int `json:"negative"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// AnalysisResult is the facilitator-triggered analysis attached to a session.
// Source is "llm" when the model produced the narrative, "fallback" otherwise.
type AnalysisResult struct {
	Summary         string          `json:"summary"`
	KeyThemes       []string        `json:"keyThemes"`
	Insights        []string        `json:"insights"`
	Recommendations []string        `json:"recommendations"`
	AverageGap      float64         `json:"averageGap"`
	ResponseCount   int             `json:"responseCount"`
	GapDistribution GapDistribution `json:"gapDistribution"`
	TopTags         []TagCount      `json:"topTags"`
	GeneratedAt     time.Time       `json:"generatedAt"`
	Source          string          `json:"source"`
}

const (
	AnalysisSourceLLM      = "llm"
	AnalysisSourceFallback = "fallback"
)

// Complete reports whether every required narrative field is populated.
func (a *AnalysisResult) Complete() bool {
	if a == nil {
		return false
	}
	return strings.TrimSpace(a.Summary) != "" && len(a.KeyThemes) > 0 && len(a.Insights) > 0 && len(a.Recommendations) > 0
}

// SessionSummary is the listing row for the facilitator overview.
type SessionSummary struct {
	ID               string    `json:"id"`
	Status           Status    `json:"status"`
	ParticipantCount int       `json:"participantCount"`
	ResponseCount    int       `json:"responseCount"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
