package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/soaringjerry/Huddle/internal/models"
)

var errStubStorage = errors.New("stub storage down")

type stubSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	fail     bool
	puts     int
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: map[string]*models.Session{}}
}

func (s *stubSessionStore) load(id string) *models.Session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = models.NewSession(id, time.Unix(0, 0).UTC())
		s.sessions[id] = sess
	}
	return sess
}

func (s *stubSessionStore) Get(_ context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errStubStorage
	}
	return s.load(id).Clone(), nil
}

func (s *stubSessionStore) Put(_ context.Context, id string, u models.SessionUpdate) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errStubStorage
	}
	s.puts++
	sess := s.load(id)
	staged := sess.Clone()
	if err := staged.Apply(u, time.Unix(int64(s.puts), 0).UTC()); err != nil {
		return nil, err
	}
	s.sessions[id] = staged
	return staged.Clone(), nil
}

func (s *stubSessionStore) AppendParticipant(_ context.Context, id string, p models.Participant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return false, errStubStorage
	}
	sess := s.load(id)
	if sess.HasParticipant(p.ID) {
		return false, nil
	}
	sess.Participants = append(sess.Participants, p)
	sess.Touch(p.JoinedAt)
	return true, nil
}

func (s *stubSessionStore) AppendResponse(_ context.Context, id string, r models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStubStorage
	}
	sess := s.load(id)
	sess.Responses = append(sess.Responses, r)
	sess.Touch(r.SubmittedAt)
	return nil
}

func (s *stubSessionStore) List(_ context.Context) ([]models.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SessionSummary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Summary())
	}
	return out, nil
}

var _ SessionRepository = (*stubSessionStore)(nil)

type stubCompleter struct {
	out   string
	err   error
	calls int
	user  string
	block bool
}

func (c *stubCompleter) CompleteJSON(ctx context.Context, _, user string) (string, error) {
	c.calls++
	c.user = user
	if c.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return c.out, c.err
}
