package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/soaringjerry/Huddle/internal/models"
)

//go:embed questions.yaml
var questionBankYAML []byte

const (
	generalTheme     = "general"
	maxQuestionCount = 5
)

type questionBank struct {
	Themes map[string]map[string][]string `yaml:"themes"`
}

func loadQuestionBank(data []byte) (*questionBank, error) {
	var bank questionBank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	if len(bank.Themes[generalTheme]["en"]) == 0 {
		return nil, fmt.Errorf("question bank: %q theme needs english questions", generalTheme)
	}
	return &bank, nil
}

// lookup returns count questions for theme/locale, cycling when the table is short.
func (b *questionBank) lookup(theme, locale string, count int) []string {
	byLocale, ok := b.Themes[theme]
	if !ok {
		byLocale = b.Themes[generalTheme]
	}
	list := byLocale[locale]
	if len(list) == 0 {
		list = byLocale["en"]
	}
	if len(list) == 0 {
		list = b.Themes[generalTheme]["en"]
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, list[i%len(list)])
	}
	return out
}

type GeneratedQuestions struct {
	Theme     string            `json:"theme"`
	Questions []models.Question `json:"questions"`
	Source    string            `json:"source"`
}

// QuestionService proposes discussion questions for a theme.
type QuestionService struct {
	llm  Completer
	bank *questionBank
	log  logrus.FieldLogger
}

func NewQuestionService(llm Completer, log logrus.FieldLogger) (*QuestionService, error) {
	bank, err := loadQuestionBank(questionBankYAML)
	if err != nil {
		return nil, err
	}
	return &QuestionService{llm: llm, bank: bank, log: orDiscard(log)}, nil
}

// Themes lists the predefined themes, excluding the general bucket.
func (s *QuestionService) Themes() []string {
	out := make([]string, 0, len(s.bank.Themes))
	for t := range s.bank.Themes {
		if t != generalTheme {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Generate asks the model for count questions and falls back to the static
// bank on any failure or empty output.
func (s *QuestionService) Generate(ctx context.Context, theme string, count int, locale string) (*GeneratedQuestions, error) {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme == "" {
		return nil, NewInvalidError("theme required")
	}
	if count < 1 {
		count = 1
	}
	if count > maxQuestionCount {
		count = maxQuestionCount
	}
	texts, err := s.fromModel(ctx, theme, count, locale)
	source := models.AnalysisSourceLLM
	if err != nil || len(texts) == 0 {
		fields := logrus.Fields{"theme": theme}
		if err != nil {
			fields["error"] = err.Error()
		}
		s.log.WithFields(fields).Warn("question generation falling back")
		texts = s.bank.lookup(theme, locale, count)
		source = models.AnalysisSourceFallback
	}
	out := &GeneratedQuestions{Theme: theme, Source: source, Questions: make([]models.Question, 0, len(texts))}
	for _, t := range texts {
		out.Questions = append(out.Questions, models.Question{Text: t, Theme: theme})
	}
	return out, nil
}

func (s *QuestionService) fromModel(ctx context.Context, theme string, count int, locale string) ([]string, error) {
	if s.llm == nil {
		return nil, ErrLLMDisabled
	}
	system := "You write short, open questions for a team retrospective workshop. " +
		"Return ONLY a JSON object: {\"questions\": [string, ...]}."
	user := fmt.Sprintf("theme: %s\nlanguage: %s\nnumber of questions: %d", theme, locale, count)
	raw, err := s.llm.CompleteJSON(ctx, system, user)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON from model: %w", err)
	}
	out := make([]string, 0, count)
	for _, q := range parsed.Questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
		if len(out) == count {
			break
		}
	}
	return out, nil
}
