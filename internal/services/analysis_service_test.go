package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/soaringjerry/Huddle/internal/models"
)

func sampleResponses() []models.Response {
	return []models.Response{
		{ID: "r1", ParticipantID: "p1", ParticipantRole: models.RoleMember, AsIs: models.AsIs{Fact: "a", Score: 3}, ToBe: models.ToBe{Will: "b", Score: 8},
			Solution: &models.Solution{Action: "pair more", Tags: []string{"process", "culture"}}},
		{ID: "r2", ParticipantID: "p2", ParticipantRole: models.RoleManager, AsIs: models.AsIs{Fact: "c", Score: 6}, ToBe: models.ToBe{Will: "d", Score: 6},
			Solution: &models.Solution{Action: "weekly sync", Tags: []string{"process"}}},
		{ID: "r3", ParticipantID: "p3", ParticipantRole: models.RoleMember, AsIs: models.AsIs{Fact: "e", Score: 9}, ToBe: models.ToBe{Will: "f", Score: 4}},
	}
}

func assertComplete(t *testing.T, res *models.AnalysisResult) {
	t.Helper()
	if !res.Complete() {
		t.Fatalf("analysis incomplete: %+v", res)
	}
	if res.ResponseCount != 3 {
		t.Fatalf("responseCount = %d", res.ResponseCount)
	}
	if res.AverageGap != 0 {
		t.Fatalf("averageGap = %v, want 0", res.AverageGap)
	}
	want := models.GapDistribution{Positive: 1, Zero: 1, Negative: 1}
	if res.GapDistribution != want {
		t.Fatalf("distribution = %+v, want %+v", res.GapDistribution, want)
	}
	if len(res.TopTags) != 2 || res.TopTags[0].Tag != "process" || res.TopTags[0].Count != 2 {
		t.Fatalf("topTags = %+v", res.TopTags)
	}
}

func TestAnalyzeFallsBackOnModelError(t *testing.T) {
	llm := &stubCompleter{err: errors.New("upstream 502")}
	svc := NewAnalysisService(newStubSessionStore(), llm, nil)

	res, err := svc.Analyze(context.Background(), AnalyzeRequest{Responses: sampleResponses()})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if res.Source != models.AnalysisSourceFallback {
		t.Fatalf("source = %q", res.Source)
	}
	assertComplete(t, res)
}

func TestAnalyzeFallsBackOnTimeout(t *testing.T) {
	llm := &stubCompleter{block: true}
	svc := NewAnalysisService(newStubSessionStore(), llm, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res, err := svc.Analyze(ctx, AnalyzeRequest{Responses: sampleResponses()})
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if res.Source != models.AnalysisSourceFallback {
		t.Fatalf("source = %q", res.Source)
	}
	assertComplete(t, res)
}

func TestAnalyzeFallsBackOnBadJSON(t *testing.T) {
	for _, out := range []string{"not json", `{"summary":"only a summary"}`} {
		svc := NewAnalysisService(newStubSessionStore(), &stubCompleter{out: out}, nil)
		res, err := svc.Analyze(context.Background(), AnalyzeRequest{Responses: sampleResponses()})
		if err != nil {
			t.Fatalf("Analyze(%q): %v", out, err)
		}
		if res.Source != models.AnalysisSourceFallback {
			t.Fatalf("Analyze(%q) source = %q", out, res.Source)
		}
		assertComplete(t, res)
	}
}

func TestAnalyzeUsesModelNarrativeButOwnStats(t *testing.T) {
	llm := &stubCompleter{out: `{"summary":"Team wants faster reviews","keyThemes":["reviews"],"insights":["gap is mixed"],"recommendations":["set a review SLA"],"averageGap":42,"responseCount":100}`}
	svc := NewAnalysisService(newStubSessionStore(), llm, nil)

	res, err := svc.Analyze(context.Background(), AnalyzeRequest{
		Question:  &models.Question{Text: "How do reviews feel?", Theme: "process"},
		Responses: sampleResponses(),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Source != models.AnalysisSourceLLM || res.Summary != "Team wants faster reviews" {
		t.Fatalf("unexpected result %+v", res)
	}
	assertComplete(t, res)
	if !strings.Contains(llm.user, "How do reviews feel?") {
		t.Fatalf("prompt missing question: %s", llm.user)
	}
}

func TestAnalyzeLoadsAndPersistsSession(t *testing.T) {
	store := newStubSessionStore()
	seeded := models.NewSession("w1", time.Unix(0, 0).UTC())
	seeded.Status = models.StatusQuestionDisplay
	seeded.CurrentQuestion = &models.Question{Text: "q", Theme: "general"}
	seeded.Responses = sampleResponses()
	store.sessions["w1"] = seeded
	svc := NewAnalysisService(store, nil, nil)

	res, err := svc.Analyze(context.Background(), AnalyzeRequest{WorkshopID: "w1"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	assertComplete(t, res)
	sess, _ := store.Get(context.Background(), "w1")
	if sess.Status != models.StatusAnalysis {
		t.Fatalf("status = %q, want analysis", sess.Status)
	}
	if sess.Analysis == nil || sess.Analysis.Summary != res.Summary {
		t.Fatalf("analysis not stored: %+v", sess.Analysis)
	}
}

func TestAnalyzeStoresWithoutTransitionFromEarlyStage(t *testing.T) {
	store := newStubSessionStore()
	seeded := models.NewSession("w1", time.Unix(0, 0).UTC())
	seeded.Responses = sampleResponses()
	store.sessions["w1"] = seeded
	svc := NewAnalysisService(store, nil, nil)

	if _, err := svc.Analyze(context.Background(), AnalyzeRequest{WorkshopID: "w1"}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	sess, _ := store.Get(context.Background(), "w1")
	if sess.Status != models.StatusPreparation {
		t.Fatalf("status = %q, want preparation", sess.Status)
	}
	if sess.Analysis == nil {
		t.Fatalf("analysis should still be stored")
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	svc := NewAnalysisService(newStubSessionStore(), nil, nil)
	if _, err := svc.Analyze(context.Background(), AnalyzeRequest{}); err == nil {
		t.Fatalf("expected error without workshop or responses")
	}
	res, err := svc.Analyze(context.Background(), AnalyzeRequest{WorkshopID: "empty"})
	if err != nil {
		t.Fatalf("Analyze empty session: %v", err)
	}
	if !res.Complete() || res.ResponseCount != 0 {
		t.Fatalf("unexpected empty analysis %+v", res)
	}
}

func TestAnalyzeFallbackIsLocalized(t *testing.T) {
	svc := NewAnalysisService(newStubSessionStore(), nil, nil)
	en, _ := svc.Analyze(context.Background(), AnalyzeRequest{Responses: sampleResponses(), Locale: "en"})
	zh, _ := svc.Analyze(context.Background(), AnalyzeRequest{Responses: sampleResponses(), Locale: "zh"})
	if en.Summary == zh.Summary {
		t.Fatalf("expected localized summaries, both were %q", en.Summary)
	}
}

func TestAnalyzeStorageFailure(t *testing.T) {
	store := newStubSessionStore()
	store.fail = true
	svc := NewAnalysisService(store, nil, nil)
	if _, err := svc.Analyze(context.Background(), AnalyzeRequest{WorkshopID: "w1"}); !errors.Is(err, errStubStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
