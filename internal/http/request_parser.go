// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies may arrive as JSON, urlencoded forms (HTMX) or multipart forms
// (fetch with FormData).

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledger/internal/contact"
	"ledger/internal/core"
)

// maxBodyBytes caps every request body the parser reads.
const maxBodyBytes = 64 << 10

var ErrBodyTooLarge = errors.New("request body too large")

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = ErrBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON, multipart or urlencoded data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	mediaType, params, _ := mime.ParseMediaType(p.contentType)
	switch {
	case mediaType == "application/json" || p.body[0] == '{':
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
		}
		return p.err

	case mediaType == "multipart/form-data":
		form, err := multipart.NewReader(bytes.NewReader(p.body), params["boundary"]).ReadForm(maxBodyBytes)
		if err != nil {
			p.err = err
			return err
		}
		defer form.RemoveAll()
		p.formData = url.Values(form.Value)
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab, newline and carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// ParseContactSubmission reads the four contact fields. A body that cannot be
// read counts as missing fields.
func ParseContactSubmission(r *http.Request) (contact.Submission, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return contact.Submission{}, fmt.Errorf("%w: unreadable body: %v", contact.ErrMissingField, err)
	}
	return contact.Submission{
		Name:    p.Get("name"),
		Email:   p.Get("email"),
		Subject: p.Get("subject"),
		Message: p.Get("message"),
	}, nil
}

// ParseTransactionForm builds a validated transaction from the add form. An
// empty date means today.
func ParseTransactionForm(r *http.Request, now time.Time) (core.Transaction, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.Transaction{}, err
	}

	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, err
	}

	date := core.NewDate(now.Year(), int(now.Month()), now.Day())
	if v := p.Get("date"); v != "" {
		if date, err = core.ParseDate(v); err != nil {
			return core.Transaction{}, err
		}
	}

	tx := core.Transaction{
		Description: p.Get("description"),
		Amount:      amount,
		Category:    p.Get("category"),
		Date:        date,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// transactionErrorMessage maps a form error to the text shown to the user.
func transactionErrorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Invalid amount"
	case errors.Is(err, core.ErrInvalidDate):
		return "Invalid date"
	case errors.Is(err, core.ErrEmptyDescription):
		return "Description is required"
	case errors.Is(err, core.ErrEmptyCategory):
		return "Category is required"
	case errors.Is(err, ErrBodyTooLarge):
		return "Request too large"
	default:
		return "Invalid transaction: " + err.Error()
	}
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}
