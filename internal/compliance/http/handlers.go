package compliancehttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/revtax/internal/alerts"
	"github.com/odyssey-erp/revtax/internal/compliance"
	"github.com/odyssey-erp/revtax/internal/compliance/export"
	"github.com/odyssey-erp/revtax/internal/platform/httpx"
	"github.com/odyssey-erp/revtax/internal/revenue"
	"github.com/odyssey-erp/revtax/internal/shared"
	"github.com/odyssey-erp/revtax/internal/tax"
	"github.com/odyssey-erp/revtax/report"
)

const requestTimeout = 10 * time.Second

// Service is the compliance contract used by the handler.
type Service interface {
	ComputeRevenueSummary(ctx context.Context, spec revenue.PeriodSpec) (compliance.Summary, error)
	ComputeDeadline(ctx context.Context, spec revenue.PeriodSpec) (tax.Deadline, error)
	CheckAndDispatchAlerts(ctx context.Context, spec revenue.PeriodSpec) ([]alerts.Threshold, error)
	Now() time.Time
	Location() *time.Location
}

// PDFRenderer converts HTML to PDF bytes.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

var errorMappings = []httpx.ErrorMapping{
	{Target: shared.ErrOwnerMissing, Status: http.StatusUnauthorized, Title: "Unauthorized"},
	{Target: shared.ErrInvalidToken, Status: http.StatusUnauthorized, Title: "Unauthorized"},
	{Target: revenue.ErrInvalidInput, Status: http.StatusBadRequest, Title: "Invalid Input", Expose: true},
	{Target: revenue.ErrValidation, Status: http.StatusUnprocessableEntity, Title: "Invalid Order Data", Expose: true},
	{Target: tax.ErrConfiguration, Status: http.StatusUnprocessableEntity, Title: "Tax Configuration Missing", Expose: true},
	{Target: report.ErrNotConfigured, Status: http.StatusServiceUnavailable, Title: "PDF Export Unavailable"},
}

// Handler serves the revenue and tax endpoints.
type Handler struct {
	logger   *slog.Logger
	service  Service
	pdf      PDFRenderer
	validate *validator.Validate
	csvPool  sync.Pool
}

// NewHandler constructs the compliance HTTP handler. pdf may be nil.
func NewHandler(logger *slog.Logger, service Service, pdf PDFRenderer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:   logger,
		service:  service,
		pdf:      pdf,
		validate: validator.New(),
	}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

type periodQuery struct {
	Period  string `validate:"required,oneof=day month quarter year"`
	DateRef string `validate:"omitempty,datetime=2006-01-02"`
}

type alertCheckResponse struct {
	Fired    []string     `json:"fired"`
	Deadline tax.Deadline `json:"deadline"`
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	spec, ok := h.parseSpec(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summary, err := h.service.ComputeRevenueSummary(ctx, spec)
	if err != nil {
		h.respondError(w, "compute summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleDeadline(w http.ResponseWriter, r *http.Request) {
	spec, ok := h.parseSpec(w, r)
	if !ok {
		return
	}
	deadline, err := h.service.ComputeDeadline(r.Context(), spec)
	if err != nil {
		h.respondError(w, "compute deadline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, deadline)
}

func (h *Handler) handleAlertCheck(w http.ResponseWriter, r *http.Request) {
	spec, ok := h.parseSpec(w, r)
	if !ok {
		return
	}
	// Reminders always concern the upcoming deadline; date_ref does not apply.
	spec.Reference = h.service.Now()
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	fired, err := h.service.CheckAndDispatchAlerts(ctx, spec)
	if err != nil {
		h.respondError(w, "dispatch alerts", err)
		return
	}
	deadline, err := h.service.ComputeDeadline(ctx, spec)
	if err != nil {
		h.respondError(w, "compute deadline", err)
		return
	}
	resp := alertCheckResponse{Fired: make([]string, 0, len(fired)), Deadline: deadline}
	for _, threshold := range fired {
		resp.Fired = append(resp.Fired, threshold.Label)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	spec, ok := h.parseSpec(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summary, err := h.service.ComputeRevenueSummary(ctx, spec)
	if err != nil {
		h.respondError(w, "compute summary", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()
	if err := export.WriteSummaryCSV(buf, summary); err != nil {
		h.respondError(w, "write csv", err)
		return
	}
	if err := httpx.Attachment(w, "text/csv; charset=utf-8", exportFilename(summary.Period, "csv"), buf.Bytes()); err != nil {
		h.logger.Error("stream csv", slog.Any("error", err))
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.respondError(w, "pdf exporter", report.ErrNotConfigured)
		return
	}
	spec, ok := h.parseSpec(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summary, err := h.service.ComputeRevenueSummary(ctx, spec)
	if err != nil {
		h.respondError(w, "compute summary", err)
		return
	}
	data := export.ReportData{Summary: summary, GeneratedAt: h.service.Now()}
	if deadline, err := h.service.ComputeDeadline(ctx, spec); err == nil {
		data.Deadline = &deadline
	}
	html, err := export.RenderReportHTML(data)
	if err != nil {
		h.respondError(w, "render report", err)
		return
	}
	pdfBytes, err := h.pdf.RenderHTML(ctx, html)
	if err != nil {
		h.respondError(w, "render pdf", err)
		return
	}
	if err := httpx.Attachment(w, "application/pdf", exportFilename(summary.Period, "pdf"), pdfBytes); err != nil {
		h.logger.Error("stream pdf", slog.Any("error", err))
	}
}

// parseSpec validates the period query. It writes the error response itself
// and reports false when the request must stop.
func (h *Handler) parseSpec(w http.ResponseWriter, r *http.Request) (revenue.PeriodSpec, bool) {
	query := periodQuery{
		Period:  strings.ToLower(strings.TrimSpace(r.URL.Query().Get("period"))),
		DateRef: strings.TrimSpace(r.URL.Query().Get("date_ref")),
	}
	if query.Period == "" {
		query.Period = string(revenue.PeriodMonth)
	}
	if err := h.validate.Struct(query); err != nil {
		fields := make([]string, 0)
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fieldErr.Field()), fieldErr.Tag()))
			}
		}
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", strings.Join(fields, "; "))
		return revenue.PeriodSpec{}, false
	}
	spec, err := revenue.ParsePeriodSpec(query.Period, query.DateRef, h.service.Now(), h.service.Location())
	if err != nil {
		h.respondError(w, "parse period", err)
		return revenue.PeriodSpec{}, false
	}
	return spec, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err, errorMappings...)
}

func exportFilename(period, ext string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '-'
	}, period)
	return fmt.Sprintf("revenue-%s.%s", safe, ext)
}
