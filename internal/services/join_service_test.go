package services

import (
	"context"
	"testing"
	"time"

	"github.com/soaringjerry/Huddle/internal/models"
)

func TestJoinIsIdempotentByParticipantID(t *testing.T) {
	store := newStubSessionStore()
	svc := NewJoinService(store, nil)
	ctx := context.Background()
	p := models.Participant{ID: "p1", Name: "Ana", Role: models.RoleManager, Stance: models.DefaultStance()}

	first, err := svc.Join(ctx, JoinRequest{WorkshopID: "w1", Participant: p})
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	if !first.Joined || first.ParticipantID != "p1" {
		t.Fatalf("unexpected first result %+v", first)
	}
	p.Name = "Ana renamed"
	second, err := svc.Join(ctx, JoinRequest{WorkshopID: "w1", Participant: p})
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if second.Joined {
		t.Fatalf("repeat join should report joined=false")
	}
	sess, _ := store.Get(ctx, "w1")
	if len(sess.Participants) != 1 {
		t.Fatalf("participants = %d, want 1", len(sess.Participants))
	}
	if sess.Participants[0].Name != "Ana" {
		t.Fatalf("original participant should be kept, got %q", sess.Participants[0].Name)
	}
}

func TestJoinRequiresNameAndID(t *testing.T) {
	svc := NewJoinService(newStubSessionStore(), nil)
	cases := []models.Participant{
		{ID: "p1"},
		{Name: "Ana"},
		{ID: "  ", Name: "Ana"},
	}
	for _, p := range cases {
		_, err := svc.Join(context.Background(), JoinRequest{WorkshopID: "w1", Participant: p})
		se, ok := AsServiceError(err)
		if !ok || se.Code != ErrorInvalid || se.Message != "missing name or id" {
			t.Fatalf("participant %+v: expected invalid error, got %v", p, err)
		}
	}
}

func TestJoinFillsDefaults(t *testing.T) {
	store := newStubSessionStore()
	svc := NewJoinService(store, nil)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	if _, err := svc.Join(context.Background(), JoinRequest{WorkshopID: "w1", Participant: models.Participant{ID: "p9", Name: "Bo"}}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	sess, _ := store.Get(context.Background(), "w1")
	got := sess.Participants[0]
	if got.Role != models.RoleMember || got.Stance.CurrentMode != models.ModeExplorer {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if !got.JoinedAt.Equal(at) {
		t.Fatalf("joinedAt = %v, want %v", got.JoinedAt, at)
	}
	if sess.Version != 1 {
		t.Fatalf("version = %d, want 1", sess.Version)
	}
}
