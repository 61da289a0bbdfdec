package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/errors"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/observability"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/services"
)

// Version is reported by the health endpoint and the version command.
var Version = "1.0.0"

const cacheControl = "private, max-age=60"

type APIHandlers struct {
	analytics *services.Analytics
	narrative *services.NarrativeService
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, narrative *services.NarrativeService, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		narrative: narrative,
		logger:    logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) respond(w http.ResponseWriter, r *http.Request, data any) {
	headers := map[string]string{"Cache-Control": cacheControl}
	if err := errors.WriteSuccessWithHeaders(w, data, headers); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write response", "error", err)
	}
}

// filter parses the selections in the query. On failure it has already
// answered 400 and ok is false.
func (h *APIHandlers) filter(w http.ResponseWriter, r *http.Request) (f models.FilterState, ok bool) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return f, false
	}
	return f, true
}

func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	h.respond(w, r, h.analytics.Options(f))
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	h.respond(w, r, h.analytics.KPI(f))
}

func (h *APIHandlers) HandleRoutes(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	limit, err := limitFromQuery(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, services.TopRoutes(h.analytics.Routes(f), limit))
}

func (h *APIHandlers) HandleTimeSeries(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	h.respond(w, r, h.analytics.TimeSeries(f))
}

func (h *APIHandlers) HandleIndicators(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	h.respond(w, r, h.analytics.Indicators(f))
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	h.respond(w, r, h.analytics.Dashboard(f))
}

func (h *APIHandlers) HandleRouteHistory(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	route, err := routeFromQuery(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, map[string]any{
		"route":   route,
		"history": h.analytics.RouteHistory(route, f),
	})
}

type narrativeResponse struct {
	Text      string `json:"text"`
	Indicator string `json:"indicator,omitempty"`
	Enabled   bool   `json:"enabled"`
}

// ClientIDHeader scopes narrative requests on the JSON API. A newer request
// carrying the same id makes an older in-flight one answer 409; requests
// without the header never conflict.
const ClientIDHeader = "X-Client-ID"

// HandleNarrative answers general insights for the filter in the query, or
// an indicator explanation when ?indicator= names one.
func (h *APIHandlers) HandleNarrative(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	indicator := r.URL.Query().Get("indicator")
	text, err := generateNarrative(r, h.analytics, h.narrative, r.Header.Get(ClientIDHeader), f, indicator)
	switch {
	case stderrors.Is(err, services.ErrStaleNarrative):
		h.fail(w, r, errors.Conflict("A newer narrative request replaced this one"))
		return
	case err != nil:
		h.fail(w, r, err)
		return
	}
	if err := errors.WriteSuccess(w, narrativeResponse{Text: text, Indicator: indicator, Enabled: h.narrative.Enabled()}); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write response", "error", err)
	}
}

// generateNarrative is shared by the JSON and SSE narrative endpoints.
// caller scopes staleness to one client.
func generateNarrative(r *http.Request, analytics *services.Analytics, narrative *services.NarrativeService, caller string, f models.FilterState, indicator string) (string, error) {
	working := analytics.WorkingSet(f)
	kpi := services.ComputeKPI(working)
	routes := services.ComputeRoutes(working)

	if indicator == "" {
		return narrative.GeneralInsights(r.Context(), caller, services.NewNarrativeSummary(kpi, routes, f))
	}

	req, err := services.IndicatorFor(indicator, services.ComputeIndicators(kpi, routes), kpi, routes)
	if err != nil {
		return "", errors.InvalidField("indicator", err)
	}
	return narrative.IndicatorInsight(r.Context(), caller, req)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.analytics.Stats()
	stats["narrative_enabled"] = h.narrative.Enabled()

	errors.WriteSuccess(w, stats)
}
