package http

import (
	"errors"
	"html/template"
	"net/http"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/sources"
	"ledger/internal/view"
)

// handleDashboard renders the full dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	txs, err := s.listTransactions(r.Context())
	if err != nil {
		s.logError(r.Context(), "Failed to load transactions", err)
		http.Error(w, "failed to load transactions", http.StatusBadGateway)
		return
	}

	opts := view.DefaultOptions(s.resolveTheme(r))
	s.render(w, r, "dashboard.html", view.Build(txs, s.summarize(txs), opts))
}

// handleSummaryJSON returns the aggregate with decimal amounts as strings.
func (s *Server) handleSummaryJSON(w http.ResponseWriter, r *http.Request) {
	txs, err := s.listTransactions(r.Context())
	if err != nil {
		s.logError(r.Context(), "Failed to load transactions", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to load transactions"})
		return
	}
	writeJSON(w, http.StatusOK, s.summarize(txs))
}

// handleChartJSON returns the doughnut payload for the current theme.
func (s *Server) handleChartJSON(w http.ResponseWriter, r *http.Request) {
	txs, err := s.listTransactions(r.Context())
	if err != nil {
		s.logError(r.Context(), "Failed to load transactions", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to load transactions"})
		return
	}
	opts := view.DefaultOptions(s.resolveTheme(r))
	writeJSON(w, http.StatusOK, view.BuildChart(s.summarize(txs), opts))
}

func (s *Server) handleTransactionsPartial(w http.ResponseWriter, r *http.Request) {
	txs, err := s.listTransactions(r.Context())
	if err != nil {
		s.logError(r.Context(), "Failed to load transactions", err)
		ErrorResponse(http.StatusBadGateway, "Failed to load transactions").Write(w)
		return
	}
	opts := view.DefaultOptions(s.resolveTheme(r))
	s.render(w, r, "transactions", view.Rows(txs, opts))
}

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	txs, err := s.listTransactions(r.Context())
	if err != nil {
		s.logError(r.Context(), "Failed to load transactions", err)
		ErrorResponse(http.StatusBadGateway, "Failed to load summary").Write(w)
		return
	}
	opts := view.DefaultOptions(s.resolveTheme(r))
	s.render(w, r, "summary", view.Cards(s.summarize(txs), opts))
}

// handleCreateTransaction appends a transaction from the add form.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	tx, err := ParseTransactionForm(r, s.now())
	if err != nil {
		UnprocessableEntityError(transactionErrorMessage(err)).Write(w)
		return
	}

	ctx := r.Context()
	saved, err := s.store.AppendTransaction(ctx, tx)
	switch {
	case errors.Is(err, sources.ErrReadOnly):
		MethodNotAllowedError("GET").
			TriggerErrorNotification("This data source is read-only").
			Write(w)
		return
	case err != nil:
		s.logError(ctx, "Transaction append failed", err,
			applog.FieldDescription, tx.Description,
			applog.FieldAmount, tx.Amount.String())
		InternalServerError("Failed to save transaction").Write(w)
		return
	}

	s.metrics.TransactionAppended()
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogTransactionCreated(ctx, saved.ID, saved.Description, saved.Amount.String(), saved.Category)

	NewHTMXResponse().
		TriggerTransactionCreated(saved.ID).
		TriggerSummaryRefresh().
		TriggerFormReset().
		TriggerSuccessNotification("Transaction added").
		BodyHTML(`<div class="success">Added ` +
			template.HTMLEscapeString(saved.Description) + ` (` +
			template.HTMLEscapeString(core.FormatSigned(saved.Amount, saved.IsIncome(), core.DefaultCurrencySymbol)) +
			`)</div>`).
		Write(w)
}

// handleThemeToggle flips and stores the theme, answering with the new
// toggle icon.
func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	next := s.resolveTheme(r).Toggle()
	s.themes.Set(w, next)

	NewHTMXResponse().
		TriggerThemeChanged(next.String(), next.Icon()).
		BodyHTML(`<i class="fas ` + next.Icon() + `"></i>`).
		Write(w)
}
