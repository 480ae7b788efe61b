package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/Huddle/internal/models"
	"github.com/soaringjerry/Huddle/internal/utils"
)

const maxTopTags = 5

type AnalyzeRequest struct {
	WorkshopID string
	Question   *models.Question
	Responses  []models.Response
	Locale     string
}

// AnalysisService asks the model for a narrative over the responses. Model
// failures never surface: the caller always gets a complete result.
type AnalysisService struct {
	store SessionRepository
	llm   Completer
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewAnalysisService(store SessionRepository, llm Completer, log logrus.FieldLogger) *AnalysisService {
	return &AnalysisService{
		store: store,
		llm:   llm,
		log:   orDiscard(log),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Analyze builds the result from the request's responses, or from the stored
// session when none are supplied. With a workshop id the result replaces the
// session's analysis and the session enters the analysis stage when allowed.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error) {
	id := strings.TrimSpace(req.WorkshopID)
	if id == "" && len(req.Responses) == 0 {
		return nil, NewInvalidError("workshopId or responses required")
	}
	ctx, span := startSpan(ctx, "session.analyze", id)
	defer span.End()

	responses, question := req.Responses, req.Question
	if id != "" && (len(responses) == 0 || question == nil) {
		sess, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(responses) == 0 {
			responses = sess.Responses
		}
		if question == nil {
			question = sess.CurrentQuestion
		}
	}

	stats := computeStats(responses)
	result, err := s.fromModel(ctx, question, responses)
	if err != nil {
		s.log.WithFields(logrus.Fields{"workshop_id": id, "error": err.Error()}).Warn("analysis falling back")
		result = fallbackAnalysis(stats, req.Locale)
	}
	result.ResponseCount = stats.Count
	result.AverageGap = stats.AverageGap
	result.GapDistribution = stats.Distribution
	result.TopTags = stats.Tags
	if len(result.TopTags) > maxTopTags {
		result.TopTags = result.TopTags[:maxTopTags]
	}
	result.GeneratedAt = s.now()

	if id != "" {
		if err := s.persist(ctx, id, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *AnalysisService) persist(ctx context.Context, id string, result *models.AnalysisResult) error {
	st := models.StatusAnalysis
	_, err := s.store.Put(ctx, id, models.SessionUpdate{Status: &st, Analysis: result})
	if _, ok := models.AsInvalidTransition(err); ok {
		s.log.WithField("workshop_id", id).Info("analysis stored without status change")
		_, err = s.store.Put(ctx, id, models.SessionUpdate{Analysis: result})
	}
	return err
}

type analysisPromptResponse struct {
	Role     models.Role `json:"role"`
	Answer   string      `json:"answer,omitempty"`
	AsIs     string      `json:"asIs"`
	AsIsRate int         `json:"asIsScore"`
	ToBe     string      `json:"toBe"`
	ToBeRate int         `json:"toBeScore"`
	Gap      int         `json:"gap"`
	Action   string      `json:"action,omitempty"`
	Tags     []string    `json:"tags,omitempty"`
}

func (s *AnalysisService) fromModel(ctx context.Context, q *models.Question, rs []models.Response) (*models.AnalysisResult, error) {
	if s.llm == nil {
		return nil, ErrLLMDisabled
	}
	if len(rs) == 0 {
		return nil, errors.New("no responses to analyze")
	}
	items := make([]analysisPromptResponse, 0, len(rs))
	for _, r := range rs {
		it := analysisPromptResponse{
			Role:     r.ParticipantRole,
			Answer:   r.Answer,
			AsIs:     r.AsIs.Fact,
			AsIsRate: r.AsIs.Score,
			ToBe:     r.ToBe.Will,
			ToBeRate: r.ToBe.Score,
			Gap:      r.ComputeGap(),
		}
		if r.Solution != nil {
			it.Action = r.Solution.Action
			it.Tags = r.Solution.Tags
		}
		items = append(items, it)
	}
	payload := map[string]any{"responses": items, "scoreRange": models.StateRange}
	if q != nil {
		payload["question"] = q.Text
		payload["theme"] = q.Theme
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	raw, err := s.llm.CompleteJSON(ctx, analysisPrompt, string(body))
	if err != nil {
		return nil, err
	}
	var out models.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("invalid JSON from model: %w", err)
	}
	if !out.Complete() {
		return nil, errors.New("model returned an incomplete analysis")
	}
	out.Source = models.AnalysisSourceLLM
	return &out, nil
}

const analysisPrompt = "You analyse team workshop answers. Each response has an as-is description and score, a to-be description and score (0-10) and an optional action. " +
	"Return ONLY a JSON object with fields: summary (string), keyThemes (array of 3-5 short strings), insights (array of strings), recommendations (array of strings)."

func fallbackAnalysis(st responseStats, locale string) *models.AnalysisResult {
	summary := fmt.Sprintf(utils.T(locale, "analysis.fallback.summary"), st.Count, st.AverageGap)
	themes := []string{utils.T(locale, "analysis.fallback.theme.gap")}
	for i, tc := range st.Tags {
		if i == 2 {
			break
		}
		themes = append(themes, tc.Tag)
	}
	insight := utils.T(locale, "analysis.fallback.insight.aligned")
	switch {
	case st.Count == 0:
		insight = utils.T(locale, "analysis.fallback.insight.empty")
	case st.AverageGap >= 3:
		insight = utils.T(locale, "analysis.fallback.insight.wide")
	case st.Distribution.Negative > 0:
		insight = utils.T(locale, "analysis.fallback.insight.negative")
	}
	return &models.AnalysisResult{
		Summary:   summary,
		KeyThemes: themes,
		Insights:  []string{insight},
		Recommendations: []string{
			utils.T(locale, "analysis.fallback.rec.prioritise"),
			utils.T(locale, "analysis.fallback.rec.owner"),
		},
		Source: models.AnalysisSourceFallback,
	}
}
