// Package contact handles the portfolio contact form: it validates a
// submission, renders the notification email and hands it to a mailer.
package contact

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Submission is what a visitor typed into the contact form.
type Submission struct {
	Name    string `json:"name" form:"name" validate:"required"`
	Email   string `json:"email" form:"email" validate:"required,email"`
	Subject string `json:"subject" form:"subject" validate:"required"`
	Message string `json:"message" form:"message" validate:"required"`
}

var (
	tagPattern = regexp.MustCompile(`<[^>]*>`)
	validate   = newValidator()
	emailRunes = "!#$%&'*+-=?^_`{|}~@.[]"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Sanitize strips markup and control characters and trims whitespace. The
// email keeps only the characters an address may contain.
func (s Submission) Sanitize() Submission {
	return Submission{
		Name:    sanitizeText(s.Name),
		Email:   sanitizeEmail(s.Email),
		Subject: sanitizeText(s.Subject),
		Message: sanitizeText(s.Message),
	}
}

func sanitizeText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func sanitizeEmail(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r > unicode.MaxASCII:
			return -1
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune(emailRunes, r):
			return r
		}
		return -1
	}, s)
}

// Validate reports ErrMissingField when any field is empty and
// ErrInvalidEmail when the address is malformed. Missing fields win.
func (s Submission) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return fieldError(ErrMissingField, fe.Field())
		}
	}
	return fieldError(ErrInvalidEmail, verrs[0].Field())
}
