package http

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"ledger/internal/contact"
	"ledger/internal/core"
)

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func multipartRequest(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRequestBodyParser_ContentTypes(t *testing.T) {
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		isJSON bool
	}{
		{
			name: "json",
			req: func(*testing.T) *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":" Jane ","age":42}`))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
			isJSON: true,
		},
		{
			name: "urlencoded",
			req: func(*testing.T) *http.Request {
				return formRequest(url.Values{"name": {" Jane "}, "age": {"42"}})
			},
		},
		{
			name: "multipart",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, map[string]string{"name": " Jane ", "age": "42"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRequestBodyParser(tt.req(t))
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if p.IsJSON() != tt.isJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.isJSON)
			}
			if got := p.Get("name"); got != "Jane" {
				t.Errorf("Get(name) = %q, want Jane", got)
			}
			if got := p.Get("age"); got != "42" {
				t.Errorf("Get(age) = %q, want 42", got)
			}
			if got := p.Get("missing"); got != "" {
				t.Errorf("Get(missing) = %q, want empty", got)
			}
		})
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Error("expected error for malformed JSON")
	}

	big := strings.Repeat("a", maxBodyBytes+10)
	req = formRequest(url.Values{"message": {big}})
	if err := NewRequestBodyParser(req).Parse(); !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("Parse() error = %v, want ErrBodyTooLarge", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("a\x00b\tc\nd\x1f"); got != "ab\tc\nd" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}

func TestParseContactSubmission(t *testing.T) {
	sub, err := ParseContactSubmission(multipartRequest(t, map[string]string{
		"name":    "Jane",
		"email":   "jane@example.com",
		"subject": "Hi",
		"message": "Hello there",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := contact.Submission{Name: "Jane", Email: "jane@example.com", Subject: "Hi", Message: "Hello there"}
	if sub != want {
		t.Errorf("got %+v, want %+v", sub, want)
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{broken`))
	req.Header.Set("Content-Type", "application/json")
	if _, err := ParseContactSubmission(req); !errors.Is(err, contact.ErrMissingField) {
		t.Errorf("error = %v, want ErrMissingField", err)
	}
}

func TestParseTransactionForm(t *testing.T) {
	now := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		form    url.Values
		wantErr error
		check   func(t *testing.T, tx core.Transaction)
	}{
		{
			name: "valid with date",
			form: url.Values{"description": {"Coffee"}, "amount": {"3,50"}, "category": {"food"}, "date": {"2023-06-06"}},
			check: func(t *testing.T, tx core.Transaction) {
				if tx.Amount.String() != "3.5" {
					t.Errorf("Amount = %s, want 3.5", tx.Amount)
				}
				if tx.Date.String() != "2023-06-06" {
					t.Errorf("Date = %s", tx.Date)
				}
			},
		},
		{
			name: "empty date means today",
			form: url.Values{"description": {"Salary"}, "amount": {"3000"}, "category": {"income"}},
			check: func(t *testing.T, tx core.Transaction) {
				if tx.Date.String() != "2024-03-09" {
					t.Errorf("Date = %s, want 2024-03-09", tx.Date)
				}
				if !tx.IsIncome() {
					t.Error("expected income")
				}
			},
		},
		{
			name:    "bad amount",
			form:    url.Values{"description": {"Coffee"}, "amount": {"-3"}, "category": {"food"}},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "bad date",
			form:    url.Values{"description": {"Coffee"}, "amount": {"3"}, "category": {"food"}, "date": {"06/06/2023"}},
			wantErr: core.ErrInvalidDate,
		},
		{
			name:    "missing description",
			form:    url.Values{"amount": {"3"}, "category": {"food"}},
			wantErr: core.ErrEmptyDescription,
		},
		{
			name:    "missing category",
			form:    url.Values{"description": {"Coffee"}, "amount": {"3"}},
			wantErr: core.ErrEmptyCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := ParseTransactionForm(formRequest(tt.form), now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if transactionErrorMessage(err) == "" {
					t.Error("empty error message")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, tx)
		})
	}
}

func TestRequireMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := RequirePOST(req)
	if resp == nil {
		t.Fatal("expected error response for GET")
	}
	w := httptest.NewRecorder()
	resp.Write(w)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", w.Code)
	}
	if w.Header().Get("Allow") != "POST" {
		t.Errorf("Allow = %q", w.Header().Get("Allow"))
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	if RequirePOST(req) != nil {
		t.Error("expected nil for POST")
	}
}
