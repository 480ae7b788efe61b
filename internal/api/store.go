package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/soaringjerry/Huddle/internal/models"
	"github.com/soaringjerry/Huddle/internal/services"
)

type workshopEntry struct {
	mu   sync.Mutex
	sess *models.Session
}

// memoryStore keeps sessions in process. The top-level lock guards only the
// map; each workshop has its own mutex so workshops never contend.
type memoryStore struct {
	mu        sync.RWMutex
	workshops map[string]*workshopEntry
	now       func() time.Time
}

var _ services.SessionRepository = (*memoryStore)(nil)

func newMemoryStore() *memoryStore {
	return &memoryStore{
		workshops: map[string]*workshopEntry{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewMemoryStore returns the in-process SessionRepository.
func NewMemoryStore() services.SessionRepository {
	return newMemoryStore()
}

func (s *memoryStore) entry(id string) *workshopEntry {
	s.mu.RLock()
	e, ok := s.workshops[id]
	s.mu.RUnlock()
	if ok {
		return e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.workshops[id]; ok {
		return e
	}
	e = &workshopEntry{sess: models.NewSession(id, s.now())}
	s.workshops[id] = e
	return e
}

func (s *memoryStore) Get(_ context.Context, workshopID string) (*models.Session, error) {
	e := s.entry(workshopID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Clone(), nil
}

func (s *memoryStore) Put(_ context.Context, workshopID string, u models.SessionUpdate) (*models.Session, error) {
	e := s.entry(workshopID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.sess.Apply(u, s.now()); err != nil {
		return nil, err
	}
	return e.sess.Clone(), nil
}

func (s *memoryStore) AppendParticipant(_ context.Context, workshopID string, p models.Participant) (bool, error) {
	e := s.entry(workshopID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess.HasParticipant(p.ID) {
		return false, nil
	}
	e.sess.Participants = append(e.sess.Participants, p)
	e.sess.Touch(p.JoinedAt)
	return true, nil
}

func (s *memoryStore) AppendResponse(_ context.Context, workshopID string, r models.Response) error {
	e := s.entry(workshopID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sess.Responses = append(e.sess.Responses, r)
	e.sess.Touch(r.SubmittedAt)
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]models.SessionSummary, error) {
	s.mu.RLock()
	entries := make([]*workshopEntry, 0, len(s.workshops))
	for _, e := range s.workshops {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]models.SessionSummary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.sess.Summary())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
