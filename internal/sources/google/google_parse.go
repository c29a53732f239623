package google

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// Column headers, matched case-insensitively.
var sheetHeaders = []string{"ID", "Description", "Amount", "Category", "Date"}

var ErrUnexpectedHeader = errors.New("unexpected transactions header")

// parseTransactions converts a values matrix (as returned by the Sheets API)
// into transactions. The first row must name the columns; ID is optional and
// defaults to the row number. Rows that cannot be read are skipped and
// counted.
func parseTransactions(values [][]interface{}) ([]core.Transaction, int, error) {
	out := make([]core.Transaction, 0, len(values))
	if len(values) == 0 {
		return out, 0, nil
	}
	headers := toStrings(values[0])
	cols := make(map[string]int, len(sheetHeaders))
	var missing []string
	for _, h := range sheetHeaders {
		cols[h] = indexOf(headers, h)
		if cols[h] == -1 && h != "ID" {
			missing = append(missing, h)
		}
	}
	colID, colDesc, colAmount, colCategory, colDate := cols["ID"], cols["Description"], cols["Amount"], cols["Category"], cols["Date"]
	if len(missing) > 0 {
		return nil, 0, fmt.Errorf("%w: missing %s; got headers=%v", ErrUnexpectedHeader, strings.Join(missing, ","), headers)
	}

	skipped := 0
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		amount, ok := parseCellAmount(safeGet(row, colAmount))
		if !ok {
			skipped++
			continue
		}
		date, err := parseCellDate(safeGet(row, colDate))
		if err != nil {
			skipped++
			continue
		}
		id := int64(i)
		if colID != -1 {
			if v, err := strconv.ParseFloat(safeGet(row, colID), 64); err == nil && v > 0 {
				id = int64(v)
			}
		}
		out = append(out, core.Transaction{
			ID:          id,
			Description: safeGet(row, colDesc),
			Amount:      amount,
			Category:    safeGet(row, colCategory),
			Date:        date,
		})
	}
	return out, skipped, nil
}

// toRow renders tx in sheetHeaders order.
func toRow(tx core.Transaction) []any {
	return []any{tx.ID, tx.Description, tx.Amount.String(), tx.Category, tx.Date.String()}
}

// parseCellAmount accepts user-typed amounts as well as the raw numbers
// returned with UNFORMATTED_VALUE.
func parseCellAmount(s string) (decimal.Decimal, bool) {
	if d, err := core.ParseAmount(s); err == nil {
		return d, true
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// serialEpoch is day zero of spreadsheet date serial numbers.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// parseCellDate accepts ISO dates typed as text and the serial numbers the
// API returns for real date cells. A fractional part (time of day) is dropped.
func parseCellDate(s string) (core.Date, error) {
	if d, err := core.ParseDate(s); err == nil {
		return d, nil
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || serial < 1 {
		return core.Date{}, core.ErrInvalidDate
	}
	return core.Date{Time: serialEpoch.AddDate(0, 0, int(serial))}, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
