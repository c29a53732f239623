// Package view turns ledger data into display models for the dashboard.
// Everything it needs is passed in through Options; it keeps no state.
package view

import (
	"ledger/internal/core"
	"ledger/internal/theme"
)

// DefaultPalette is cycled over the chart segments.
var DefaultPalette = []string{"#00b894", "#0984e3", "#6c5ce7", "#fdcb6e", "#e17055"}

// legend text colors per theme, matching --text-color in style.css
var legendColors = map[theme.Theme]string{
	theme.Light: "#2d3436",
	theme.Dark:  "#f5f6fa",
}

type Options struct {
	Theme          theme.Theme
	CurrencySymbol string
	Palette        []string
	// DateLayout is a Go time layout for transaction dates.
	DateLayout string
}

func DefaultOptions(t theme.Theme) Options {
	return Options{
		Theme:          t,
		CurrencySymbol: core.DefaultCurrencySymbol,
		Palette:        DefaultPalette,
		DateLayout:     "1/2/2006",
	}
}

type TransactionRow struct {
	ID          int64
	Description string
	Date        string
	Amount      string
	AmountClass string
	Category    string
}

type SummaryCards struct {
	Balance  string
	Income   string
	Expenses string
}

// Chart is the doughnut chart payload consumed by dashboard.js.
type Chart struct {
	Type            string    `json:"type"`
	Labels          []string  `json:"labels"`
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor"`
	LegendPosition  string    `json:"legendPosition"`
	LegendColor     string    `json:"legendColor"`
}

type Dashboard struct {
	Theme     theme.Theme
	ThemeIcon string
	Rows      []TransactionRow
	Cards     SummaryCards
	Chart     Chart
}

func Build(txs []core.Transaction, s core.Summary, opts Options) Dashboard {
	return Dashboard{
		Theme:     opts.Theme,
		ThemeIcon: opts.Theme.Icon(),
		Rows:      Rows(txs, opts),
		Cards:     Cards(s, opts),
		Chart:     BuildChart(s, opts),
	}
}

func Rows(txs []core.Transaction, opts Options) []TransactionRow {
	rows := make([]TransactionRow, 0, len(txs))
	for _, t := range txs {
		class := "negative"
		if t.IsIncome() {
			class = "positive"
		}
		date := ""
		if !t.Date.IsZero() {
			date = t.Date.Format(opts.DateLayout)
		}
		rows = append(rows, TransactionRow{
			ID:          t.ID,
			Description: t.Description,
			Date:        date,
			Amount:      core.FormatSigned(t.Amount, t.IsIncome(), opts.CurrencySymbol),
			AmountClass: class,
			Category:    t.Category,
		})
	}
	return rows
}

func Cards(s core.Summary, opts Options) SummaryCards {
	return SummaryCards{
		Balance:  core.FormatAmount(s.Balance, opts.CurrencySymbol),
		Income:   core.FormatAmount(s.TotalIncome, opts.CurrencySymbol),
		Expenses: core.FormatAmount(s.TotalExpenses, opts.CurrencySymbol),
	}
}

func BuildChart(s core.Summary, opts Options) Chart {
	palette := opts.Palette
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	c := Chart{
		Type:            "doughnut",
		Labels:          make([]string, 0, len(s.ExpensesByCategory)),
		Data:            make([]float64, 0, len(s.ExpensesByCategory)),
		BackgroundColor: make([]string, 0, len(s.ExpensesByCategory)),
		LegendPosition:  "right",
		LegendColor:     legendColors[opts.Theme],
	}
	if c.LegendColor == "" {
		c.LegendColor = legendColors[theme.Light]
	}
	for i, cat := range s.ExpensesByCategory {
		c.Labels = append(c.Labels, cat.Name)
		c.Data = append(c.Data, cat.Amount.InexactFloat64())
		c.BackgroundColor = append(c.BackgroundColor, palette[i%len(palette)])
	}
	return c
}
