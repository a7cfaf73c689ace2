// Package form holds the add/edit test drafts behind the dashboard forms.
package form

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/stemsi/testdesk/internal/model"
)

// Draft is the editable state of an add or edit form. Count stays a string
// so half-typed input survives a re-render.
type Draft struct {
	ID      int
	Name    string
	Count   string
	Answers []string
	Active  bool
	Private bool
}

// NewDraft returns an empty add-form draft. New tests start active.
func NewDraft() Draft {
	return Draft{Active: true, Answers: []string{}}
}

// DraftFromTest pre-populates an edit form. Answers come back in natural order
// whichever way they were stored.
func DraftFromTest(t model.Test) Draft {
	answers := t.Answers.Values()
	count := t.TestCount
	if count == 0 {
		count = len(answers)
	}
	return Draft{
		ID:      t.ID,
		Name:    t.Name,
		Count:   strconv.Itoa(count),
		Answers: answers,
		Active:  t.IsActive,
		Private: t.IsPrivate,
	}
}

// DraftFromInput converts a JSON API body into a draft.
func DraftFromInput(in model.TestInput) Draft {
	d := Draft{
		Name:    in.Name,
		Count:   strconv.Itoa(in.TestCount),
		Answers: append([]string{}, in.Answers...),
		Active:  true,
	}
	if in.IsActive != nil {
		d.Active = *in.IsActive
	}
	if in.IsPrivate != nil {
		d.Private = *in.IsPrivate
	}
	return d
}

// ParseDraft reads posted form fields: name, count, repeated answer,
// is_active and is_private checkboxes.
func ParseDraft(values url.Values) Draft {
	return Draft{
		Name:    values.Get("name"),
		Count:   strings.TrimSpace(values.Get("count")),
		Answers: append([]string{}, values["answer"]...),
		Active:  checked(values.Get("is_active")),
		Private: checked(values.Get("is_private")),
	}
}

func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// MaxCount is the largest number of questions a test may declare.
const MaxCount = 500

// ParseCount returns the declared count and whether it is a non-negative
// integer.
func ParseCount(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Resize sets the declared count and fits the answers to it. Existing values
// keep their positions, new slots are empty, extras are dropped. Input that is
// not a non-negative integer, or is above MaxCount, empties the list but is
// kept as typed.
func (d *Draft) Resize(raw string) {
	d.Count = raw
	n, ok := ParseCount(raw)
	if !ok || n > MaxCount {
		d.Answers = []string{}
		return
	}
	resized := make([]string, n)
	copy(resized, d.Answers)
	d.Answers = resized
}

// AnswerList numbers the answers from 1 in form order.
func (d Draft) AnswerList() model.AnswerList {
	return model.NewAnswerList(d.Answers)
}

// CreateRequest builds the POST /tests body. Call Validate first.
func (d Draft) CreateRequest(owner model.ChatID) model.CreateTestRequest {
	n, _ := ParseCount(d.Count)
	private := d.Private
	return model.CreateTestRequest{
		Name:        strings.TrimSpace(d.Name),
		OwnerChatID: owner,
		TestCount:   n,
		Answers:     d.AnswerList(),
		IsPrivate:   &private,
	}
}

// UpdateRequest builds the PUT /tests/{id} body. Call Validate first.
func (d Draft) UpdateRequest(owner model.ChatID) model.UpdateTestRequest {
	n, _ := ParseCount(d.Count)
	return model.UpdateTestRequest{
		Name:        strings.TrimSpace(d.Name),
		OwnerChatID: owner,
		TestCount:   n,
		Answers:     d.AnswerList(),
		IsActive:    d.Active,
		IsPrivate:   d.Private,
	}
}
