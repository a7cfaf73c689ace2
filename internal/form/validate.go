package form

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/stemsi/testdesk/internal/model"
)

// Messages shown next to a form when the store call fails.
const (
	MsgAddFailed  = "Something went wrong while adding the test."
	MsgSaveFailed = "Something went wrong while saving the test."
)

// Error is a client-side validation failure. Field names the first rule that
// failed.
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Field + ": " + e.Message }

// submission mirrors Draft with the rules in the order they are checked.
type submission struct {
	Owner   string   `validate:"required"`
	Name    string   `validate:"notblank"`
	Count   string   `validate:"positive_int,max_count"`
	Answers []string `validate:"matches_count,dive,notblank"`
}

var fieldMessages = map[string]Error{
	"Owner":   {Field: "owner_chat_id", Message: "The owner's chat id was not found."},
	"Name":    {Field: "name", Message: "Please enter a test name."},
	"Count":   {Field: "count", Message: "The number of questions must be a positive whole number."},
	"Answers": {Field: "answers", Message: "Please fill in every answer field."},
}

var (
	countMismatch = Error{Field: "answers", Message: "The number of answers must match the number of questions."}
	countTooLarge = Error{Field: "count", Message: fmt.Sprintf("A test can have at most %d questions.", MaxCount)}
)

var validate = newValidator()

func newValidator() *govalidator.Validate {
	v := govalidator.New()
	_ = v.RegisterValidation("notblank", func(fl govalidator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("positive_int", func(fl govalidator.FieldLevel) bool {
		n, ok := ParseCount(fl.Field().String())
		return ok && n > 0
	})
	_ = v.RegisterValidation("max_count", func(fl govalidator.FieldLevel) bool {
		n, ok := ParseCount(fl.Field().String())
		return ok && n <= MaxCount
	})
	_ = v.RegisterValidation("matches_count", func(fl govalidator.FieldLevel) bool {
		count := fl.Parent().FieldByName("Count")
		if count.Kind() != reflect.String {
			return false
		}
		n, ok := ParseCount(count.String())
		return ok && fl.Field().Len() == n
	})
	return v
}

// Validate checks the draft before it may reach the store. The first failed
// rule wins: owner chat id, name, count, then answers.
func (d Draft) Validate(owner model.ChatID) *Error {
	err := validate.Struct(submission{
		Owner:   owner.String(),
		Name:    d.Name,
		Count:   d.Count,
		Answers: d.Answers,
	})
	if err == nil {
		return nil
	}

	var ve govalidator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return &Error{Field: "form", Message: err.Error()}
	}

	first := ve[0]
	switch first.Tag() {
	case "matches_count":
		e := countMismatch
		return &e
	case "max_count":
		e := countTooLarge
		return &e
	}
	// Element errors are reported as Answers[i].
	name := first.StructField()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	e, ok := fieldMessages[name]
	if !ok {
		return &Error{Field: strings.ToLower(name), Message: first.Error()}
	}
	return &e
}
