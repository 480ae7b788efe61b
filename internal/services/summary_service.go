package services

import (
	"context"

	"github.com/soaringjerry/Huddle/internal/models"
)

// StanceReview is the aggregate shown while the session is in stance-review.
type StanceReview struct {
	WorkshopID       string              `json:"workshopId"`
	ParticipantCount int                 `json:"participantCount"`
	AverageEnergy    float64             `json:"averageEnergy"`
	AverageOpenness  float64             `json:"averageOpenness"`
	ModeDistribution map[models.Mode]int `json:"modeDistribution"`
	RoleCounts       map[models.Role]int `json:"roleCounts"`
}

type HeroSummary struct {
	Hope       float64 `json:"hope"`
	Efficacy   float64 `json:"efficacy"`
	Resilience float64 `json:"resilience"`
	Optimism   float64 `json:"optimism"`
	Alpha      float64 `json:"alpha"`
	N          int     `json:"n"`
}

type VulnerabilitySummary struct {
	Anxiety float64 `json:"anxiety"`
	Safety  float64 `json:"safety"`
	N       int     `json:"n"`
}

type RoleGap struct {
	Count      int     `json:"count"`
	AverageGap float64 `json:"averageGap"`
}

// TeamSummary is the final team-state view, computed from submitted data.
type TeamSummary struct {
	WorkshopID      string                  `json:"workshopId"`
	Status          models.Status           `json:"status"`
	ResponseCount   int                     `json:"responseCount"`
	AverageAsIs     float64                 `json:"averageAsIs"`
	AverageToBe     float64                 `json:"averageToBe"`
	AverageGap      float64                 `json:"averageGap"`
	GapDistribution models.GapDistribution  `json:"gapDistribution"`
	ByRole          map[models.Role]RoleGap `json:"byRole"`
	Hero            *HeroSummary            `json:"hero,omitempty"`
	Vulnerability   *VulnerabilitySummary   `json:"vulnerability,omitempty"`
	Tags            []models.TagCount       `json:"tags"`
	ScoreRanges     map[string]models.Range `json:"scoreRanges"`
}

type SummaryService struct {
	store SessionRepository
}

func NewSummaryService(store SessionRepository) *SummaryService {
	return &SummaryService{store: store}
}

func (s *SummaryService) StanceReview(ctx context.Context, workshopID string) (*StanceReview, error) {
	id, err := requireWorkshopID(workshopID)
	if err != nil {
		return nil, err
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildStanceReview(sess), nil
}

func (s *SummaryService) TeamSummary(ctx context.Context, workshopID string) (*TeamSummary, error) {
	id, err := requireWorkshopID(workshopID)
	if err != nil {
		return nil, err
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildTeamSummary(sess), nil
}

func buildStanceReview(sess *models.Session) *StanceReview {
	out := &StanceReview{
		WorkshopID:       sess.ID,
		ParticipantCount: len(sess.Participants),
		ModeDistribution: map[models.Mode]int{},
		RoleCounts:       map[models.Role]int{},
	}
	for _, m := range models.Modes {
		out.ModeDistribution[m] = 0
	}
	if len(sess.Participants) == 0 {
		return out
	}
	var energy, openness float64
	for _, p := range sess.Participants {
		energy += float64(p.Stance.EnergyLevel)
		openness += float64(p.Stance.Openness)
		out.ModeDistribution[p.Stance.CurrentMode]++
		out.RoleCounts[p.Role]++
	}
	n := float64(len(sess.Participants))
	out.AverageEnergy = round2(energy / n)
	out.AverageOpenness = round2(openness / n)
	return out
}

func buildTeamSummary(sess *models.Session) *TeamSummary {
	st := computeStats(sess.Responses)
	out := &TeamSummary{
		WorkshopID:      sess.ID,
		Status:          sess.Status,
		ResponseCount:   st.Count,
		AverageAsIs:     st.AverageAsIs,
		AverageToBe:     st.AverageToBe,
		AverageGap:      st.AverageGap,
		GapDistribution: st.Distribution,
		ByRole:          map[models.Role]RoleGap{},
		Tags:            st.Tags,
		ScoreRanges: map[string]models.Range{
			"stance":        models.StanceRange,
			"state":         models.StateRange,
			"hero":          models.HeroRange,
			"vulnerability": models.HeroRange,
		},
	}

	gapSums := map[models.Role]int{}
	var heroRows [][]float64
	var vuln VulnerabilitySummary
	for _, r := range sess.Responses {
		rg := out.ByRole[r.ParticipantRole]
		rg.Count++
		out.ByRole[r.ParticipantRole] = rg
		gapSums[r.ParticipantRole] += r.ComputeGap()
		if r.Hero != nil {
			heroRows = append(heroRows, r.Hero.Values())
		}
		if r.Vulnerability != nil {
			vuln.Anxiety += float64(r.Vulnerability.Anxiety)
			vuln.Safety += float64(r.Vulnerability.Safety)
			vuln.N++
		}
	}
	for role, rg := range out.ByRole {
		rg.AverageGap = round2(float64(gapSums[role]) / float64(rg.Count))
		out.ByRole[role] = rg
	}
	if len(heroRows) > 0 {
		out.Hero = summarizeHero(heroRows)
	}
	if vuln.N > 0 {
		vuln.Anxiety = round2(vuln.Anxiety / float64(vuln.N))
		vuln.Safety = round2(vuln.Safety / float64(vuln.N))
		out.Vulnerability = &vuln
	}
	return out
}

func summarizeHero(rows [][]float64) *HeroSummary {
	var sums [4]float64
	for _, row := range rows {
		for j := range sums {
			sums[j] += row[j]
		}
	}
	n := float64(len(rows))
	return &HeroSummary{
		Hope:       round2(sums[0] / n),
		Efficacy:   round2(sums[1] / n),
		Resilience: round2(sums[2] / n),
		Optimism:   round2(sums[3] / n),
		Alpha:      round2(CronbachAlpha(rows)),
		N:          len(rows),
	}
}
