// Package templates renders the dashboard page and the fragments patched
// into it over SSE. Every fragment carries a stable element id so datastar
// can morph it in place.
//
// Markup lives in templates.templ; run `templ generate` after editing it.
package templates

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/google/uuid"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/services"
)

// MaxRouteRows is the number of routes shown in the ranking table.
const MaxRouteRows = 10

var dimensionLabels = map[models.Dimension]string{
	models.DimensionYear:        "Ano",
	models.DimensionMonth:       "Mês",
	models.DimensionOrigin:      "Origem",
	models.DimensionDestination: "Destino",
}

// Signals is the client-side state datastar sends back with every request.
// Session identifies the browser tab so narrative requests from different
// tabs never supersede each other.
type Signals struct {
	Filters models.FilterState `json:"filters"`
	Route   models.RouteKey    `json:"route"`
	Session string             `json:"session"`
}

// action builds a datastar GET expression. Query values are URL encoded, so
// they cannot break out of the quoted string.
func action(path string, query url.Values) string {
	return "@get('" + path + "?" + query.Encode() + "')"
}

func toggleAction(d models.Dimension, value string) string {
	return action("/sse/filter/toggle", url.Values{"dim": {string(d)}, "value": {value}})
}

func allAction(d models.Dimension) string {
	return action("/sse/filter/all", url.Values{"dim": {string(d)}})
}

func clearAction(d models.Dimension) string {
	return action("/sse/filter/clear", url.Values{"dim": {string(d)}})
}

func historyAction(origin, destination string) string {
	return action("/sse/route-history", url.Values{"origin": {origin}, "destination": {destination}})
}

func indicatorAction(name string) string {
	return action("/sse/narrative", url.Values{"indicator": {name}})
}

type bar struct {
	Label     string
	Value     string
	Height    int
	Projected bool
}

func (b bar) style() string {
	return fmt.Sprintf("height: %d%%", b.Height)
}

// Dashboard renders the full page with the initial state of every fragment.
// Each render starts a new client session.
func Dashboard(d models.Dashboard, narrativeEnabled bool) templ.Component {
	text := ""
	if !narrativeEnabled {
		text = services.NarrativeNotConfigured
	}
	signals := Signals{Filters: d.Filter, Session: uuid.NewString()}
	return page(d, signals, text, narrativeEnabled)
}

// bars scales real and projected values against the largest one so the
// chart needs no client-side code.
func bars(points []models.ChartPoint) []bar {
	var peak float64
	for _, p := range points {
		peak = max(peak, p.Real, p.Projected)
	}

	out := make([]bar, 0, len(points))
	for _, p := range points {
		value, projected := p.Real, false
		if p.Projected > 0 && p.Real == 0 {
			value, projected = p.Projected, true
		}
		height := 0
		if peak > 0 {
			height = int(value / peak * 100)
		}
		out = append(out, bar{
			Label:     p.Label,
			Value:     services.FormatBRL(value),
			Height:    height,
			Projected: projected,
		})
	}
	return out
}

// ToString renders a component into a string for SSE patches.
func ToString(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}
