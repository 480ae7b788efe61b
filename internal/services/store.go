package services

import (
	"context"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/soaringjerry/Huddle/internal/models"
)

// SessionRepository is the single authoritative session store. The in-memory
// and SQL backends are interchangeable behind it.
type SessionRepository interface {
	// Get returns the session, creating it in preparation if it does not exist.
	Get(ctx context.Context, workshopID string) (*models.Session, error)
	// Put shallow-merges u and validates any status change atomically with the write.
	Put(ctx context.Context, workshopID string, u models.SessionUpdate) (*models.Session, error)
	// AppendParticipant reports false when the participant id is already present.
	AppendParticipant(ctx context.Context, workshopID string, p models.Participant) (bool, error)
	AppendResponse(ctx context.Context, workshopID string, r models.Response) error
	List(ctx context.Context) ([]models.SessionSummary, error)
}

var tracer = otel.Tracer("github.com/soaringjerry/Huddle/internal/services")

func startSpan(ctx context.Context, name, workshopID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("workshop.id", workshopID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func orDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func requireWorkshopID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", NewInvalidError("workshop id required")
	}
	return id, nil
}
