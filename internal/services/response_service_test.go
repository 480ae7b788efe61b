package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/soaringjerry/Huddle/internal/models"
)

func TestSubmitAppendsWithUniqueIDs(t *testing.T) {
	store := newStubSessionStore()
	svc := NewResponseService(store, nil)
	ctx := context.Background()
	received := time.Now().UTC()

	const n = 5
	for i := 0; i < n; i++ {
		_, err := svc.Submit(ctx, SubmitRequest{WorkshopID: "w1", Response: models.Response{
			ParticipantID:   fmt.Sprintf("p%d", i),
			ParticipantName: "someone",
			AsIs:            models.AsIs{Fact: "slow reviews", Score: 3},
			ToBe:            models.ToBe{Will: "same-day reviews", Score: 8},
		}})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	sess, _ := store.Get(ctx, "w1")
	if len(sess.Responses) != n {
		t.Fatalf("responses = %d, want %d", len(sess.Responses), n)
	}
	seen := map[string]bool{}
	for i, r := range sess.Responses {
		if r.ID == "" || seen[r.ID] {
			t.Fatalf("response %d has empty or duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
		if r.SubmittedAt.Before(received) {
			t.Fatalf("submittedAt %v before receipt %v", r.SubmittedAt, received)
		}
		if r.ParticipantID != fmt.Sprintf("p%d", i) {
			t.Fatalf("order broken at %d: %q", i, r.ParticipantID)
		}
	}
}

func TestSubmitRecomputesGap(t *testing.T) {
	svc := NewResponseService(newStubSessionStore(), nil)
	cases := []struct{ asIs, toBe, want int }{
		{3, 8, 5},
		{6, 6, 0},
		{9, 4, -5},
	}
	for _, tc := range cases {
		r, err := svc.Submit(context.Background(), SubmitRequest{WorkshopID: "w1", Response: models.Response{
			ParticipantID: "p1",
			AsIs:          models.AsIs{Score: tc.asIs},
			ToBe:          models.ToBe{Score: tc.toBe},
			Gap:           99,
		}})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if r.Gap != tc.want {
			t.Fatalf("gap(%d,%d) = %d, want %d", tc.asIs, tc.toBe, r.Gap, tc.want)
		}
	}
}

func TestSubmitNormalizesOptionalParts(t *testing.T) {
	store := newStubSessionStore()
	svc := NewResponseService(store, nil)
	svc.idGenerator = func() string { return "r-fixed" }

	r, err := svc.Submit(context.Background(), SubmitRequest{WorkshopID: "w1", Response: models.Response{
		ParticipantID: " p1 ",
		Solution:      &models.Solution{Action: "  "},
	}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if r.ID != "r-fixed" || r.ParticipantID != "p1" {
		t.Fatalf("unexpected ids %+v", r)
	}
	if r.Solution != nil {
		t.Fatalf("empty solution should be dropped")
	}
	if r.ParticipantRole != models.RoleMember {
		t.Fatalf("role = %q", r.ParticipantRole)
	}
}

func TestSubmitRequiresParticipant(t *testing.T) {
	svc := NewResponseService(newStubSessionStore(), nil)
	_, err := svc.Submit(context.Background(), SubmitRequest{WorkshopID: "w1"})
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorInvalid {
		t.Fatalf("expected invalid, got %v", err)
	}
	_, err = svc.Submit(context.Background(), SubmitRequest{Response: models.Response{ParticipantID: "p1"}})
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorInvalid {
		t.Fatalf("expected invalid for missing workshop, got %v", err)
	}
}
