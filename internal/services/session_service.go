package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/Huddle/internal/models"
)

// SessionService reads sessions and drives the status machine.
type SessionService struct {
	store SessionRepository
	log   logrus.FieldLogger
}

// SessionUpdateRequest is the facilitator's raw update. Status is a string so
// unknown values can be rejected here rather than at decode time.
type SessionUpdateRequest struct {
	Status        string
	Question      *models.Question
	ClearQuestion bool
}

func NewSessionService(store SessionRepository, log logrus.FieldLogger) *SessionService {
	return &SessionService{store: store, log: orDiscard(log)}
}

func (s *SessionService) Get(ctx context.Context, workshopID string) (*models.Session, error) {
	id, err := requireWorkshopID(workshopID)
	if err != nil {
		return nil, err
	}
	ctx, span := startSpan(ctx, "session.get", id)
	sess, err := s.store.Get(ctx, id)
	endSpan(span, err)
	return sess, err
}

func (s *SessionService) List(ctx context.Context) ([]models.SessionSummary, error) {
	return s.store.List(ctx)
}

// Update applies a partial update. At least one field must be present.
func (s *SessionService) Update(ctx context.Context, workshopID string, req SessionUpdateRequest) (*models.Session, error) {
	id, err := requireWorkshopID(workshopID)
	if err != nil {
		return nil, err
	}
	var u models.SessionUpdate
	if strings.TrimSpace(req.Status) != "" {
		st, err := models.ParseStatus(req.Status)
		if err != nil {
			return nil, NewInvalidError(err.Error())
		}
		u.Status = &st
	}
	if req.Question != nil {
		q, err := cleanQuestion(*req.Question)
		if err != nil {
			return nil, err
		}
		u.CurrentQuestion = &q
	}
	u.ClearQuestion = req.ClearQuestion && req.Question == nil
	if u.Empty() {
		return nil, NewInvalidError("status or currentQuestion required")
	}
	return s.put(ctx, id, u)
}

// SetStatus is the strict variant used by the dashboard's PUT; status is required.
func (s *SessionService) SetStatus(ctx context.Context, workshopID, status string) (*models.Session, error) {
	if strings.TrimSpace(status) == "" {
		return nil, NewInvalidError("status required")
	}
	return s.Update(ctx, workshopID, SessionUpdateRequest{Status: status})
}

// SetQuestion replaces the current question and moves the session to question-display.
func (s *SessionService) SetQuestion(ctx context.Context, workshopID string, q models.Question) (*models.Session, error) {
	id, err := requireWorkshopID(workshopID)
	if err != nil {
		return nil, err
	}
	clean, err := cleanQuestion(q)
	if err != nil {
		return nil, err
	}
	st := models.StatusQuestionDisplay
	return s.put(ctx, id, models.SessionUpdate{Status: &st, CurrentQuestion: &clean})
}

func (s *SessionService) put(ctx context.Context, id string, u models.SessionUpdate) (*models.Session, error) {
	ctx, span := startSpan(ctx, "session.put", id)
	sess, err := s.store.Put(ctx, id, u)
	endSpan(span, err)
	if err != nil {
		return nil, classify(err)
	}
	s.log.WithFields(logrus.Fields{"workshop_id": id, "status": sess.Status, "version": sess.Version}).Info("workshop updated")
	return sess, nil
}

func cleanQuestion(q models.Question) (models.Question, error) {
	q.Text = strings.TrimSpace(q.Text)
	q.Theme = strings.ToLower(strings.TrimSpace(q.Theme))
	if q.Text == "" {
		return q, NewInvalidError("question text required")
	}
	if q.Theme == "" {
		q.Theme = "custom"
		q.Custom = true
	}
	return q, nil
}
