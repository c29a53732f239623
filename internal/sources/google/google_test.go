package google

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"

	"ledger/internal/core"
)

type fakeSheet struct {
	mu       sync.Mutex
	rows     [][]interface{}
	appended [][]interface{}
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/v4/spreadsheets/sheet-1/values/"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"range":          "Transactions!A1:E10",
			"majorDimension": "ROWS",
			"values":         f.rows,
		})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.appended = append(f.appended, body.Values...)
		f.rows = append(f.rows, body.Values...)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-1",
			"updates":       map[string]any{"updatedRange": "Transactions!A4:E4"},
		})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, sheet *fakeSheet) *Client {
	t.Helper()
	srv := httptest.NewServer(sheet)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(),
		Config{SpreadsheetID: "sheet-1"},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return c
}

func sampleSheet() *fakeSheet {
	return &fakeSheet{rows: [][]interface{}{
		{"ID", "Description", "Amount", "Category", "Date"},
		{1, "Salary", 3000, "income", "2023-06-01"},
		{2, "Rent", "1000", "housing", "2023-06-01"},
	}}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNew_MissingCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/does/not/exist.json"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestClient_ListTransactions(t *testing.T) {
	c := newTestClient(t, sampleSheet())
	assert.Equal(t, defaultSheetName, c.sheetName)

	txs, err := c.ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "Salary", txs[0].Description)
	assert.True(t, txs[1].Amount.Equal(decimal.NewFromInt(1000)))

	summary := core.Summarize(txs)
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(2000)))
}

func TestClient_AppendTransaction(t *testing.T) {
	sheet := sampleSheet()
	c := newTestClient(t, sheet)

	got, err := c.AppendTransaction(context.Background(), core.Transaction{
		Description: "Coffee",
		Amount:      decimal.RequireFromString("3.50"),
		Category:    "food",
		Date:        core.NewDate(2023, 6, 6),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ID)

	require.Len(t, sheet.appended, 1)
	row := sheet.appended[0]
	assert.Equal(t, []interface{}{3.0, "Coffee", "3.5", "food", "2023-06-06"}, row)

	txs, err := c.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 3)
}

func TestClient_AppendRejectsInvalid(t *testing.T) {
	sheet := sampleSheet()
	c := newTestClient(t, sheet)

	_, err := c.AppendTransaction(context.Background(), core.Transaction{Description: "x"})
	assert.ErrorIs(t, err, core.ErrInvalidDate)
	assert.Empty(t, sheet.appended)
}
