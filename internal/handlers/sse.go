package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/errors"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/observability"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/services"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/ui/templates"
)

const narrativeLoading = "Gerando análise..."

// SSEHandlers drive the page through datastar. Filter state lives in the
// browser as signals; each request reads it, applies at most one action and
// patches the fragments and signals back.
type SSEHandlers struct {
	analytics *services.Analytics
	narrative *services.NarrativeService
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, narrative *services.NarrativeService, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		narrative: narrative,
		logger:    logger,
	}
}

func (h *SSEHandlers) readSignals(w http.ResponseWriter, r *http.Request) (templates.Signals, bool) {
	var signals templates.Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "Invalid signals"), observability.GetRequestID(r.Context()))
		return signals, false
	}
	signals.Filters = signals.Filters.WithYears(signals.Filters.Years...).
		WithMonths(signals.Filters.Months...).
		WithOrigins(signals.Filters.Origins...).
		WithDestinations(signals.Filters.Destinations...)
	return signals, true
}

func (h *SSEHandlers) patch(sse *datastar.ServerSentEventGenerator, r *http.Request, components ...templ.Component) error {
	for _, c := range components {
		html, err := templates.ToString(r.Context(), c)
		if err != nil {
			return err
		}
		if err := sse.PatchElements(html); err != nil {
			return err
		}
	}
	return nil
}

// sendDashboard patches every fragment for f plus the route history when a
// route is open, then writes the normalised filter back to the signals.
func (h *SSEHandlers) sendDashboard(w http.ResponseWriter, r *http.Request, signals templates.Signals) {
	d := h.analytics.Dashboard(signals.Filters)
	sse := datastar.NewSSE(w, r)

	components := []templ.Component{
		templates.FilterPanel(d),
		templates.KPICards(d),
		templates.IndicatorCards(d.Indicators),
		templates.TimeSeries(d.TimeSeries),
		templates.RouteTable(d.Routes),
	}
	if signals.Route.Origin != "" && signals.Route.Destination != "" {
		components = append(components, templates.RouteHistory(signals.Route, h.analytics.RouteHistory(signals.Route, signals.Filters)))
	}

	if err := h.patch(sse, r, components...); err != nil {
		h.logger.ErrorContext(r.Context(), "patch dashboard", "error", err)
		return
	}
	if err := sse.MarshalAndPatchSignals(map[string]any{"filters": signals.Filters}); err != nil {
		h.logger.ErrorContext(r.Context(), "patch filter signals", "error", err)
	}
}

func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	signals, ok := h.readSignals(w, r)
	if !ok {
		return
	}
	h.sendDashboard(w, r, signals)
}

func (h *SSEHandlers) applyAction(w http.ResponseWriter, r *http.Request, action services.FilterAction) {
	signals, ok := h.readSignals(w, r)
	if !ok {
		return
	}

	next, err := h.analytics.Apply(signals.Filters, action)
	if err != nil {
		errors.WriteError(w, h.logger, errors.ValidationWrap(err, "Invalid filter action"), observability.GetRequestID(r.Context()))
		return
	}
	signals.Filters = next
	h.sendDashboard(w, r, signals)
}

func (h *SSEHandlers) HandleToggle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.applyAction(w, r, services.FilterAction{
		Kind:      services.ActionToggle,
		Dimension: models.Dimension(q.Get("dim")),
		Value:     q.Get("value"),
	})
}

func (h *SSEHandlers) HandleSelectAll(w http.ResponseWriter, r *http.Request) {
	h.applyAction(w, r, services.FilterAction{
		Kind:      services.ActionSelectAll,
		Dimension: models.Dimension(r.URL.Query().Get("dim")),
	})
}

// HandleClear clears one dimension, or every dimension when ?dim= is absent.
func (h *SSEHandlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	dim := r.URL.Query().Get("dim")
	if dim == "" {
		h.applyAction(w, r, services.FilterAction{Kind: services.ActionReset})
		return
	}
	h.applyAction(w, r, services.FilterAction{Kind: services.ActionClear, Dimension: models.Dimension(dim)})
}

func (h *SSEHandlers) HandleRouteHistory(w http.ResponseWriter, r *http.Request) {
	route, err := routeFromQuery(r.URL.Query())
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}
	signals, ok := h.readSignals(w, r)
	if !ok {
		return
	}

	sse := datastar.NewSSE(w, r)
	history := h.analytics.RouteHistory(route, signals.Filters)
	if err := h.patch(sse, r, templates.RouteHistory(route, history)); err != nil {
		h.logger.ErrorContext(r.Context(), "patch route history", "error", err)
		return
	}
	if err := sse.MarshalAndPatchSignals(map[string]any{"route": route}); err != nil {
		h.logger.ErrorContext(r.Context(), "patch route signals", "error", err)
	}
}

// HandleNarrative streams a loading state, then the generated text. When a
// newer narrative request from the same session supersedes this one the
// stream ends without a final patch.
func (h *SSEHandlers) HandleNarrative(w http.ResponseWriter, r *http.Request) {
	signals, ok := h.readSignals(w, r)
	if !ok {
		return
	}
	indicator := r.URL.Query().Get("indicator")
	enabled := h.narrative.Enabled()

	sse := datastar.NewSSE(w, r)
	if enabled {
		if err := h.patch(sse, r, templates.Narrative(narrativeLoading, enabled)); err != nil {
			h.logger.ErrorContext(r.Context(), "patch narrative", "error", err)
			return
		}
	}

	text, err := generateNarrative(r, h.analytics, h.narrative, signals.Session, signals.Filters, indicator)
	switch {
	case stderrors.Is(err, services.ErrStaleNarrative):
		h.logger.DebugContext(r.Context(), "dropping stale narrative", "indicator", indicator)
		return
	case err != nil:
		h.logger.WarnContext(r.Context(), "narrative failed", "indicator", indicator, "error", err)
		text = services.NarrativeUnavailable
	}

	if err := h.patch(sse, r, templates.Narrative(text, enabled)); err != nil {
		h.logger.ErrorContext(r.Context(), "patch narrative", "error", err)
	}
}
