package http

import (
	"net/http"

	"ledger/internal/contact"
	applog "ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/theme"
	"ledger/internal/view"
)

// handlePortfolio renders the portfolio page. The stored theme wins, then
// the browser's color-scheme hint.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	t := theme.ResolvePreferred(s.themes, r, s.defaultTheme)
	data := view.BuildPortfolio(view.DefaultProjects(), r.URL.Query().Get("filter"), t, s.now().Year())
	w.Header().Set("Accept-CH", "Sec-CH-Prefers-Color-Scheme")
	s.render(w, r, "portfolio.html", data)
}

// handleContact accepts a contact form post. Every outcome is answered with
// the same JSON shape.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, contact.StatusCode(contact.ErrUnsupportedMethod), contact.NewResponse(contact.ErrUnsupportedMethod))
		return
	}
	if s.contact == nil {
		writeJSON(w, contact.StatusCode(contact.ErrDelivery), contact.NewResponse(contact.ErrDelivery))
		return
	}

	ctx := r.Context()
	sub, err := ParseContactSubmission(r)
	if err != nil {
		s.metrics.ContactSubmission(metrics.OutcomeInvalid)
	} else {
		var receipt contact.Receipt
		receipt, err = s.contact.Submit(ctx, sub)
		if err == nil {
			applog.FromContext(ctx).InfoContext(ctx, "Contact message accepted",
				applog.FieldSubmissionID, receipt.ID,
				"status", receipt.Status)
		}
	}
	writeJSON(w, contact.StatusCode(err), contact.NewResponse(err))
}
