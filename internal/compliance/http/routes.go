package compliancehttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/revtax/internal/shared"
)

// MountRoutes registers the report, deadline and alert endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	exportLimiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(tooManyRequests),
	)
	checkLimiter := httprate.Limit(3, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(tooManyRequests),
	)

	r.Get("/reports/revenue/tax", h.handleSummary)
	r.Get("/taxes/deadline", h.handleDeadline)
	r.Group(func(gr chi.Router) {
		gr.Use(exportLimiter)
		gr.Get("/reports/revenue/csv", h.handleCSV)
		gr.Get("/reports/revenue/pdf", h.handlePDF)
	})
	r.With(checkLimiter).Post("/taxes/alerts/check", h.handleAlertCheck)
}

func rateLimitKey(r *http.Request) (string, error) {
	if ownerID, err := shared.OwnerFromContext(r.Context()); err == nil {
		return "owner:" + strconv.FormatInt(ownerID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func tooManyRequests(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}
