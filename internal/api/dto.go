package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soaringjerry/Huddle/internal/models"
	"github.com/soaringjerry/Huddle/internal/services"
)

// Scores arrive on whatever scale the client's widget uses. scaleMax fields
// declare it; values are validated and rescaled here, once, and never again.

type stanceDTO struct {
	EnergyLevel *float64 `json:"energyLevel"`
	CurrentMode string   `json:"currentMode"`
	Openness    *float64 `json:"openness"`
	ScaleMax    int      `json:"scaleMax"`
}

type participantDTO struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Role   string     `json:"role"`
	Stance *stanceDTO `json:"stance"`
}

type joinRequest struct {
	WorkshopID  string         `json:"workshopId"`
	Participant participantDTO `json:"participant"`
}

func (p participantDTO) toModel() (models.Participant, error) {
	role, ok := models.ParseRole(p.Role)
	if !ok {
		return models.Participant{}, fmt.Errorf("unknown role %q", p.Role)
	}
	out := models.Participant{ID: p.ID, Name: p.Name, Role: role, Stance: models.DefaultStance()}
	if p.Stance == nil {
		return out, nil
	}
	from := models.StanceRange.WithMax(p.Stance.ScaleMax)
	if p.Stance.EnergyLevel != nil {
		v, err := models.StanceRange.Normalize("stance.energyLevel", *p.Stance.EnergyLevel, from)
		if err != nil {
			return out, err
		}
		out.Stance.EnergyLevel = v
	}
	if p.Stance.Openness != nil {
		v, err := models.StanceRange.Normalize("stance.openness", *p.Stance.Openness, from)
		if err != nil {
			return out, err
		}
		out.Stance.Openness = v
	}
	mode, ok := models.ParseMode(p.Stance.CurrentMode)
	if !ok {
		return out, fmt.Errorf("unknown mode %q", p.Stance.CurrentMode)
	}
	out.Stance.CurrentMode = mode
	return out, nil
}

type asIsDTO struct {
	Fact  string  `json:"fact"`
	Score float64 `json:"score"`
}

type toBeDTO struct {
	Will  string  `json:"will"`
	Score float64 `json:"score"`
}

type heroDTO struct {
	Hope       float64 `json:"hope"`
	Efficacy   float64 `json:"efficacy"`
	Resilience float64 `json:"resilience"`
	Optimism   float64 `json:"optimism"`
}

type vulnerabilityDTO struct {
	Anxiety float64 `json:"anxiety"`
	Safety  float64 `json:"safety"`
}

// responseRequest is the participant's submission. A client-sent gap is
// accepted for compatibility and ignored.
type responseRequest struct {
	WorkshopID      string            `json:"workshopId"`
	ParticipantID   string            `json:"participantId"`
	ParticipantName string            `json:"participantName"`
	ParticipantRole string            `json:"participantRole"`
	Answer          string            `json:"answer"`
	AsIs            asIsDTO           `json:"asIs"`
	ToBe            toBeDTO           `json:"toBe"`
	Solution        *models.Solution  `json:"solution"`
	Hero            *heroDTO          `json:"hero"`
	Vulnerability   *vulnerabilityDTO `json:"vulnerability"`
	ScaleMax        int               `json:"scaleMax"`
	HeroScaleMax    int               `json:"heroScaleMax"`
}

// scorer accumulates the first normalization error so a DTO can be
// converted field by field without an if after every line.
type scorer struct {
	err error
}

func (s *scorer) norm(to models.Range, field string, v float64, from models.Range) int {
	if s.err != nil {
		return 0
	}
	out, err := to.Normalize(field, v, from)
	if err != nil {
		s.err = err
	}
	return out
}

func (req responseRequest) toModel() (models.Response, error) {
	role, ok := models.ParseRole(req.ParticipantRole)
	if !ok {
		return models.Response{}, fmt.Errorf("unknown role %q", req.ParticipantRole)
	}
	state := models.StateRange.WithMax(req.ScaleMax)
	hero := models.HeroRange.WithMax(req.HeroScaleMax)
	var sc scorer
	out := models.Response{
		ParticipantID:   req.ParticipantID,
		ParticipantName: req.ParticipantName,
		ParticipantRole: role,
		Answer:          strings.TrimSpace(req.Answer),
		AsIs:            models.AsIs{Fact: strings.TrimSpace(req.AsIs.Fact), Score: sc.norm(models.StateRange, "asIs.score", req.AsIs.Score, state)},
		ToBe:            models.ToBe{Will: strings.TrimSpace(req.ToBe.Will), Score: sc.norm(models.StateRange, "toBe.score", req.ToBe.Score, state)},
	}
	if h := req.Hero; h != nil {
		out.Hero = &models.Hero{
			Hope:       sc.norm(models.HeroRange, "hero.hope", h.Hope, hero),
			Efficacy:   sc.norm(models.HeroRange, "hero.efficacy", h.Efficacy, hero),
			Resilience: sc.norm(models.HeroRange, "hero.resilience", h.Resilience, hero),
			Optimism:   sc.norm(models.HeroRange, "hero.optimism", h.Optimism, hero),
		}
	}
	if v := req.Vulnerability; v != nil {
		out.Vulnerability = &models.Vulnerability{
			Anxiety: sc.norm(models.HeroRange, "vulnerability.anxiety", v.Anxiety, hero),
			Safety:  sc.norm(models.HeroRange, "vulnerability.safety", v.Safety, hero),
		}
	}
	if sc.err != nil {
		return out, sc.err
	}
	if req.Solution != nil {
		tags, err := models.ValidateTags(req.Solution.Tags)
		if err != nil {
			return out, err
		}
		out.Solution = &models.Solution{Action: strings.TrimSpace(req.Solution.Action), Tags: tags}
	}
	return out, nil
}

// questionField accepts a question object, a bare string, or null. Set and
// Null distinguish an omitted field from an explicit clear.
type questionField struct {
	Set  bool
	Null bool
	Q    models.Question
}

func (f *questionField) UnmarshalJSON(b []byte) error {
	f.Set = true
	t := bytes.TrimSpace(b)
	switch {
	case bytes.Equal(t, []byte("null")):
		f.Null = true
		return nil
	case len(t) > 0 && t[0] == '"':
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			return err
		}
		f.Q = models.Question{Text: s}
		return nil
	default:
		return json.Unmarshal(t, &f.Q)
	}
}

func (f questionField) question() *models.Question {
	if !f.Set || f.Null {
		return nil
	}
	q := f.Q
	return &q
}

type sessionUpdateRequest struct {
	Status          string        `json:"status"`
	CurrentQuestion questionField `json:"currentQuestion"`
}

func (req sessionUpdateRequest) toService() services.SessionUpdateRequest {
	return services.SessionUpdateRequest{
		Status:        req.Status,
		Question:      req.CurrentQuestion.question(),
		ClearQuestion: req.CurrentQuestion.Set && req.CurrentQuestion.Null,
	}
}

type questionRequest struct {
	WorkshopID string        `json:"workshopId"`
	Question   questionField `json:"question"`
}

type analyzeRequest struct {
	WorkshopID string            `json:"workshopId"`
	Question   questionField     `json:"question"`
	Responses  []analyzeResponse `json:"responses"`
}

// analyzeResponse is a response echoed back from a snapshot. The scores go
// through the same normalization as a fresh submission.
type analyzeResponse struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submittedAt"`
	responseRequest
}

func (req analyzeRequest) responses() ([]models.Response, error) {
	if req.Responses == nil {
		return nil, nil
	}
	out := make([]models.Response, 0, len(req.Responses))
	for i, in := range req.Responses {
		r, err := in.toModel()
		if err != nil {
			return nil, fmt.Errorf("responses[%d]: %w", i, err)
		}
		r.ID = in.ID
		r.SubmittedAt = in.SubmittedAt
		r.Gap = r.ComputeGap()
		out = append(out, r)
	}
	return out, nil
}

type generateRequest struct {
	Theme string `json:"theme"`
	Count int    `json:"count"`
}

type tokenRequest struct {
	WorkshopID string `json:"workshopId"`
	Passcode   string `json:"passcode"`
}

// invalid converts decode and normalization failures into 400s.
func invalid(err error) error {
	var rangeErr *models.ScoreRangeError
	if errors.As(err, &rangeErr) {
		return services.NewInvalidError(rangeErr.Error())
	}
	return services.NewInvalidError(err.Error())
}
