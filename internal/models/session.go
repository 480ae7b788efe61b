package models

import (
	"fmt"
	"time"
)

// Session is the single shared record of a workshop. Version increases with
// every committed mutation and backs the ETag served to polling clients.
type Session struct {
	ID              string          `json:"id"`
	Status          Status          `json:"status"`
	CurrentQuestion *Question       `json:"currentQuestion"`
	Participants    []Participant   `json:"participants"`
	Responses       []Response      `json:"responses"`
	Analysis        *AnalysisResult `json:"analysis"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:           id,
		Status:       StatusPreparation,
		Participants: []Participant{},
		Responses:    []Response{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// SessionUpdate is a shallow partial update; nil fields are preserved.
type SessionUpdate struct {
	Status          *Status
	CurrentQuestion *Question
	ClearQuestion   bool
	Analysis        *AnalysisResult
}

func (u SessionUpdate) Empty() bool {
	return u.Status == nil && u.CurrentQuestion == nil && !u.ClearQuestion && u.Analysis == nil
}

// Apply merges u into s. The question is applied before the status so a
// single update can set a question and enter question-display.
func (s *Session) Apply(u SessionUpdate, now time.Time) error {
	next := s.Status
	if u.Status != nil {
		next = *u.Status
	}
	question := s.CurrentQuestion
	if u.ClearQuestion {
		question = nil
	}
	if u.CurrentQuestion != nil {
		q := *u.CurrentQuestion
		question = &q
	}
	staged := *s
	staged.CurrentQuestion = question
	if err := staged.CheckTransition(next); err != nil {
		return err
	}
	s.CurrentQuestion = question
	s.Status = next
	if u.Analysis != nil {
		a := *u.Analysis
		s.Analysis = &a
	}
	s.Touch(now)
	return nil
}

// Touch records a committed mutation.
func (s *Session) Touch(now time.Time) {
	s.Version++
	s.UpdatedAt = now
}

func (s *Session) HasParticipant(id string) bool {
	for _, p := range s.Participants {
		if p.ID == id {
			return true
		}
	}
	return false
}

// ETag is the strong validator for the current version of the session.
func (s *Session) ETag() string {
	return fmt.Sprintf("%q", fmt.Sprintf("%s-%d", s.ID, s.Version))
}

func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:               s.ID,
		Status:           s.Status,
		ParticipantCount: len(s.Participants),
		ResponseCount:    len(s.Responses),
		UpdatedAt:        s.UpdatedAt,
	}
}

// Clone returns a deep copy safe to hand out of a locked store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.CurrentQuestion != nil {
		q := *s.CurrentQuestion
		out.CurrentQuestion = &q
	}
	out.Participants = append(make([]Participant, 0, len(s.Participants)), s.Participants...)
	out.Responses = make([]Response, 0, len(s.Responses))
	for _, r := range s.Responses {
		out.Responses = append(out.Responses, r.clone())
	}
	if s.Analysis != nil {
		a := *s.Analysis
		a.KeyThemes = append([]string(nil), s.Analysis.KeyThemes...)
		a.Insights = append([]string(nil), s.Analysis.Insights...)
		a.Recommendations = append([]string(nil), s.Analysis.Recommendations...)
		a.TopTags = append([]TagCount(nil), s.Analysis.TopTags...)
		out.Analysis = &a
	}
	return &out
}

func (r Response) clone() Response {
	out := r
	if r.Solution != nil {
		sol := *r.Solution
		sol.Tags = append([]string(nil), r.Solution.Tags...)
		out.Solution = &sol
	}
	if r.Hero != nil {
		h := *r.Hero
		out.Hero = &h
	}
	if r.Vulnerability != nil {
		v := *r.Vulnerability
		out.Vulnerability = &v
	}
	return out
}
