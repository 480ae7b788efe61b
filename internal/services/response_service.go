package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/Huddle/internal/models"
)

// SubmitRequest carries a response whose scores are already on canonical ranges.
type SubmitRequest struct {
	WorkshopID string
	Response   models.Response
}

// ResponseService appends structured responses to a session. It does not
// check that the participant joined or that a question is showing.
type ResponseService struct {
	store       SessionRepository
	log         logrus.FieldLogger
	now         func() time.Time
	idGenerator func() string
}

func NewResponseService(store SessionRepository, log logrus.FieldLogger) *ResponseService {
	return &ResponseService{
		store:       store,
		log:         orDiscard(log),
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: uuid.NewString,
	}
}

func (s *ResponseService) Submit(ctx context.Context, req SubmitRequest) (*models.Response, error) {
	id, err := requireWorkshopID(req.WorkshopID)
	if err != nil {
		return nil, err
	}
	r := req.Response
	r.ParticipantID = strings.TrimSpace(r.ParticipantID)
	r.ParticipantName = strings.TrimSpace(r.ParticipantName)
	if r.ParticipantID == "" {
		return nil, NewInvalidError("participant id required")
	}
	if r.ParticipantRole == "" {
		r.ParticipantRole = models.RoleMember
	}
	if r.Solution != nil && strings.TrimSpace(r.Solution.Action) == "" && len(r.Solution.Tags) == 0 {
		r.Solution = nil
	}
	r.ID = s.idGenerator()
	r.Gap = r.ComputeGap()
	r.SubmittedAt = s.now()

	ctx, span := startSpan(ctx, "session.respond", id)
	err = s.store.AppendResponse(ctx, id, r)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"workshop_id": id, "participant_id": r.ParticipantID, "response_id": r.ID, "gap": r.Gap}).Info("response submitted")
	return &r, nil
}
