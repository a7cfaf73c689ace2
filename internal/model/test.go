package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Answer is a single positional key value within a test.
type Answer struct {
	ID     int    `json:"id"`
	Answer string `json:"answer"`
}

// AnswerList is the serialized answer key of a test.
type AnswerList []Answer

// NewAnswerList numbers values from 1 in the given order.
func NewAnswerList(values []string) AnswerList {
	list := make(AnswerList, len(values))
	for i, v := range values {
		list[i] = Answer{ID: i + 1, Answer: v}
	}
	return list
}

// UnmarshalJSON accepts an array, a string holding an encoded array, or null.
func (l *AnswerList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if b[0] == '"' {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return err
		}
		if inner == "" {
			*l = nil
			return nil
		}
		b = []byte(inner)
	}
	var items []Answer
	if err := json.Unmarshal(b, &items); err != nil {
		return fmt.Errorf("answers_json: %w", err)
	}
	*l = items
	return nil
}

// Ordered returns a copy sorted by ascending id. Lists stored reversed with
// descending ids come back in natural order.
func (l AnswerList) Ordered() AnswerList {
	out := make(AnswerList, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Values returns the answer strings in natural order.
func (l AnswerList) Values() []string {
	ordered := l.Ordered()
	values := make([]string, len(ordered))
	for i, a := range ordered {
		values[i] = a.Answer
	}
	return values
}

// Test is a named quiz with a fixed number of positional answers.
type Test struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	OwnerChatID ChatID     `json:"owner_chat_id"`
	TestCount   int        `json:"test_count"`
	Answers     AnswerList `json:"answers_json"`
	Checked     int        `json:"checked"`
	IsActive    bool       `json:"is_active"`
	IsPrivate   bool       `json:"is_private"`
	IsDeleted   bool       `json:"is_deleted"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// CreateTestRequest is the body of POST /tests.
type CreateTestRequest struct {
	Name        string     `json:"name"`
	OwnerChatID ChatID     `json:"owner_chat_id"`
	TestCount   int        `json:"test_count"`
	Answers     AnswerList `json:"answers_json"`
	IsPrivate   *bool      `json:"is_private,omitempty"`
}

// WithDefaults fills optional fields. An unset private flag means public.
func (r CreateTestRequest) WithDefaults() CreateTestRequest {
	if r.IsPrivate == nil {
		private := false
		r.IsPrivate = &private
	}
	if r.Answers == nil {
		r.Answers = AnswerList{}
	}
	return r
}

// UpdateTestRequest is the body of PUT /tests/{id}. It replaces every
// editable field.
type UpdateTestRequest struct {
	Name        string     `json:"name"`
	OwnerChatID ChatID     `json:"owner_chat_id"`
	TestCount   int        `json:"test_count"`
	Answers     AnswerList `json:"answers_json"`
	IsActive    bool       `json:"is_active"`
	IsPrivate   bool       `json:"is_private"`
}

// UpdateFromTest copies the editable fields of t into a full-replace request.
func UpdateFromTest(t Test) UpdateTestRequest {
	return UpdateTestRequest{
		Name:        t.Name,
		OwnerChatID: t.OwnerChatID,
		TestCount:   t.TestCount,
		Answers:     t.Answers.Ordered(),
		IsActive:    t.IsActive,
		IsPrivate:   t.IsPrivate,
	}
}

// TestInput is the JSON body accepted by the dashboard's own API.
type TestInput struct {
	Name      string   `json:"name" binding:"required,max=255"`
	TestCount int      `json:"test_count" binding:"required,gt=0,lte=500"`
	Answers   []string `json:"answers" binding:"required,max=500"`
	IsActive  *bool    `json:"is_active"`
	IsPrivate *bool    `json:"is_private"`
}

// Envelope is the API's response wrapper.
type Envelope[T any] struct {
	Data T `json:"data"`
}
