package models

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the workshop stage shown to every client.
type Status string

const (
	StatusPreparation     Status = "preparation"
	StatusStanceReview    Status = "stance-review"
	StatusThemeSelection  Status = "theme-selection"
	StatusQuestionDisplay Status = "question-display"
	StatusAnalysis        Status = "analysis"
	StatusSummary         Status = "summary"
)

// Statuses is the stage sequence a workshop moves through.
var Statuses = []Status{
	StatusPreparation,
	StatusStanceReview,
	StatusThemeSelection,
	StatusQuestionDisplay,
	StatusAnalysis,
	StatusSummary,
}

// ErrUnknownStatus is returned by ParseStatus for values outside Statuses.
var ErrUnknownStatus = errors.New("unknown status")

// allowedNext: every stage may be re-entered and may advance to its successor.
var allowedNext = func() map[Status]map[Status]struct{} {
	out := make(map[Status]map[Status]struct{}, len(Statuses))
	for i, st := range Statuses {
		next := map[Status]struct{}{st: {}}
		if i+1 < len(Statuses) {
			next[Statuses[i+1]] = struct{}{}
		}
		out[st] = next
	}
	return out
}()

func ParseStatus(s string) (Status, error) {
	v := Status(strings.TrimSpace(s))
	if _, ok := allowedNext[v]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return v, nil
}

// Next returns the successor stage, if any.
func (s Status) Next() (Status, bool) {
	for i, st := range Statuses {
		if st == s && i+1 < len(Statuses) {
			return Statuses[i+1], true
		}
	}
	return "", false
}

// CanTransition consults the transition table only; guards live on Session.
func CanTransition(from, to Status) bool {
	next, ok := allowedNext[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

type InvalidTransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

func AsInvalidTransition(err error) (*InvalidTransitionError, bool) {
	var it *InvalidTransitionError
	if errors.As(err, &it) {
		return it, true
	}
	return nil, false
}

// CheckTransition validates moving s to the given status, including the
// stage guards that depend on session content. Guards hold for re-entry too,
// so a session cannot stay in a stage whose content was removed.
func (s *Session) CheckTransition(to Status) error {
	if !CanTransition(s.Status, to) {
		return &InvalidTransitionError{From: s.Status, To: to}
	}
	switch to {
	case StatusStanceReview:
		if len(s.Participants) == 0 {
			return &InvalidTransitionError{From: s.Status, To: to, Reason: "no participants have joined"}
		}
	case StatusQuestionDisplay:
		if s.CurrentQuestion == nil {
			return &InvalidTransitionError{From: s.Status, To: to, Reason: "no question selected"}
		}
	}
	return nil
}
