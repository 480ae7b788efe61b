package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/Huddle/internal/models"
)

// JoinRequest carries an already-normalized participant.
type JoinRequest struct {
	WorkshopID  string
	Participant models.Participant
}

type JoinResult struct {
	ParticipantID string `json:"participantId"`
	Joined        bool   `json:"joined"`
}

type JoinService struct {
	store SessionRepository
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewJoinService(store SessionRepository, log logrus.FieldLogger) *JoinService {
	return &JoinService{
		store: store,
		log:   orDiscard(log),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Join inserts the participant unless one with the same id already joined.
// A repeat join is a logged no-op, not an error.
func (s *JoinService) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	id, err := requireWorkshopID(req.WorkshopID)
	if err != nil {
		return nil, err
	}
	p := req.Participant
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" || p.Name == "" {
		return nil, NewInvalidError("missing name or id")
	}
	if p.Role == "" {
		p.Role = models.RoleMember
	}
	if p.Stance.CurrentMode == "" {
		p.Stance.CurrentMode = models.ModeExplorer
	}
	p.JoinedAt = s.now()

	ctx, span := startSpan(ctx, "session.join", id)
	added, err := s.store.AppendParticipant(ctx, id, p)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	fields := logrus.Fields{"workshop_id": id, "participant_id": p.ID}
	if !added {
		s.log.WithFields(fields).Info("participant already joined")
	} else {
		s.log.WithFields(fields).Info("participant joined")
	}
	return &JoinResult{ParticipantID: p.ID, Joined: added}, nil
}
