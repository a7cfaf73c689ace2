package store

import "github.com/stemsi/testdesk/internal/model"

// LookupStatus is the outcome of a test lookup.
type LookupStatus string

const (
	LookupNotFound LookupStatus = "not_found"
	LookupClosed   LookupStatus = "closed"
	LookupOpen     LookupStatus = "open"
)

// LookupResult carries the found test and its answers in stored order.
type LookupResult struct {
	Status  LookupStatus
	Test    model.Test
	Answers []string
}

// Lookup finds id in the loaded list only. Inactive tests report closed and
// expose nothing.
func (s *Store) Lookup(id int) LookupResult {
	t, ok := s.FindTest(id)
	if !ok {
		return LookupResult{Status: LookupNotFound}
	}
	if !t.IsActive {
		return LookupResult{Status: LookupClosed}
	}
	return LookupResult{Status: LookupOpen, Test: t, Answers: t.Answers.Values()}
}
