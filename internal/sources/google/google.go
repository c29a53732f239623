package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"ledger/internal/core"
	"ledger/internal/sources"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetName = "Transactions"

var _ sources.TransactionStore = (*Client)(nil)

type Config struct {
	SpreadsheetID string
	// SheetName defaults to "Transactions".
	SheetName string
	// CredentialsFile is a service account key. When empty the
	// GOOGLE_APPLICATION_CREDENTIALS default credentials are used.
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger

	// serializes ID assignment across appends
	appendMu sync.Mutex
}

// New creates a Sheets client. Extra options are passed to the Sheets
// service after the credential options.
func New(ctx context.Context, cfg Config, logger *slog.Logger, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := newSheetsService(ctx, cfg.CredentialsFile, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}, nil
}

func newSheetsService(ctx context.Context, credentialsFile string, logger *slog.Logger, extra ...goption.ClientOption) (*gsheet.Service, error) {
	credentialsFile = strings.TrimSpace(credentialsFile)
	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}

	if credentialsFile != "" {
		logger.InfoContext(ctx, "Reading credentials from file", "path", credentialsFile)
		credentialsJSON, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		opts = append(opts, goption.WithCredentialsJSON(credentialsJSON))
	} else {
		logger.InfoContext(ctx, "No service account file, using application default credentials")
	}
	opts = append(opts, extra...)

	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

func (c *Client) dataRange() string {
	return fmt.Sprintf("%s!A:E", c.sheetName)
}

func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.dataRange()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	txs, skipped, err := parseTransactions(resp.Values)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		c.logger.WarnContext(ctx, "Skipped unreadable transaction rows", "sheet", c.sheetName, "skipped", skipped)
	}
	return txs, nil
}

// AppendTransaction writes tx as a new row. The sheet must already have its
// header row.
func (c *Client) AppendTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return core.Transaction{}, errors.New("sheets service not initialized")
	}

	c.appendMu.Lock()
	defer c.appendMu.Unlock()

	existing, err := c.ListTransactions(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = nextID(existing)

	rng := c.dataRange()
	vr := &gsheet.ValueRange{Values: [][]any{toRow(tx)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	if resp.Updates != nil {
		c.logger.InfoContext(ctx, "Transaction appended to sheet", "id", tx.ID, "range", resp.Updates.UpdatedRange)
	}
	return tx, nil
}

func nextID(txs []core.Transaction) int64 {
	var highest int64
	for _, tx := range txs {
		if tx.ID > highest {
			highest = tx.ID
		}
	}
	return highest + 1
}
