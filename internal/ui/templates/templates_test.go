package templates

import (
	"context"
	"encoding/json"
	"html"
	"regexp"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/services"
)

func toHTML(t *testing.T, c templ.Component) string {
	t.Helper()
	html, err := ToString(context.Background(), c)
	require.NoError(t, err)
	return html
}

func TestKPICards_Scope(t *testing.T) {
	kpi := models.KPI{TotalBilling: 1234.5, TotalIssuances: 1200, TotalReceipts: 99, AverageTicket: 1.03}

	tests := []struct {
		scope    models.CardScope
		contains []string
		absent   string
	}{
		{models.CardScopeAll, []string{"Faturamento Total", "R$ 1.234,50", "1.200", "Ticket Médio"}, "(Origem)"},
		{models.CardScopeOrigin, []string{"Faturamento (Origem)", "Emissões"}, "Recebimentos"},
		{models.CardScopeDestination, []string{"Faturamento (Destino)", "R$ 99,00"}, "Emissões"},
	}

	for _, tt := range tests {
		t.Run(string(tt.scope), func(t *testing.T) {
			html := toHTML(t, KPICards(models.Dashboard{KPI: kpi, CardScope: tt.scope}))
			assert.Contains(t, html, `id="kpis"`)
			for _, s := range tt.contains {
				assert.Contains(t, html, s)
			}
			assert.NotContains(t, html, tt.absent)
		})
	}
}

func TestFilterPanel(t *testing.T) {
	global := models.Options{Years: []int{2023, 2024}, Origins: []string{"A & B", "C"}}
	dependent := models.Options{Years: []int{2024}, Origins: []string{"A & B"}}
	f := models.FilterState{}.WithOrigins("C")
	d := models.Dashboard{Pills: services.BuildPills(global, dependent, f), WorkingSetSize: 1500}

	html := toHTML(t, FilterPanel(d))

	assert.Contains(t, html, `id="filters"`)
	assert.Contains(t, html, "A &amp; B", "values are escaped")
	assert.Contains(t, html, `class="pill selected"`)
	assert.Contains(t, html, " disabled ", "unavailable 2023 pill is disabled")
	assert.Contains(t, html, "1.500 registros")
	assert.Contains(t, html, "/sse/filter/toggle?dim=origin")
}

func TestFilterPanel_QuotedActions(t *testing.T) {
	global := models.Options{Origins: []string{"Belém, PA", "O'Hara"}}
	d := models.Dashboard{Pills: services.BuildPills(global, global, models.FilterState{})}

	raw := toHTML(t, FilterPanel(d))
	body := html.UnescapeString(raw)

	assert.NotContains(t, raw, "O'Hara", "apostrophes are escaped in markup")
	assert.Contains(t, body, `data-on:click="@get('/sse/filter/toggle?dim=origin&value=Bel%C3%A9m%2C+PA')"`)
	assert.Contains(t, body, `@get('/sse/filter/toggle?dim=origin&value=O%27Hara')`)
	assert.Contains(t, body, `@get('/sse/filter/all?dim=origin')`)
	assert.Contains(t, body, `@get('/sse/filter/clear?dim=origin')`)
}

func TestTimeSeries(t *testing.T) {
	points := []models.ChartPoint{
		{Label: "Jan/24", Real: 500},
		{Label: "Fev/24", Projected: 1000},
	}

	html := toHTML(t, TimeSeries(points))

	assert.Contains(t, html, `height: 50%`)
	assert.Contains(t, html, `class="bar projected"`)
	assert.Contains(t, html, "R$ 1.000,00")

	empty := toHTML(t, TimeSeries(nil))
	assert.Contains(t, empty, "Sem dados")
}

func TestRouteTable_LimitsRows(t *testing.T) {
	routes := make([]models.RouteData, 15)
	for i := range routes {
		routes[i] = models.RouteData{Origin: "O", Destination: "D", Billing: float64(100 - i), Volume: 1}
	}

	html := toHTML(t, RouteTable(routes))

	assert.Equal(t, MaxRouteRows, strings.Count(html, "<tr data-on:click"))
	assert.Contains(t, html, "/sse/route-history?destination=D")
}

func TestRouteHistory(t *testing.T) {
	route := models.RouteKey{Origin: "São Luís", Destination: "Teresina"}

	html := toHTML(t, RouteHistory(route, []models.RouteHistoryPoint{{Label: "Jan/24", Billing: 1500, Volume: 2, AverageTicket: 750}}))
	assert.Contains(t, html, `id="route-history"`)
	assert.Contains(t, html, "São Luís → Teresina")
	assert.Contains(t, html, "R$ 750,00")

	assert.Contains(t, toHTML(t, RouteHistory(route, nil)), "Sem histórico")
	assert.Contains(t, toHTML(t, RouteHistory(models.RouteKey{}, nil)), "Selecione uma rota")
}

func TestDashboard_Page(t *testing.T) {
	d := models.Dashboard{Filter: models.FilterState{}.WithYears(2024)}

	html := toHTML(t, Dashboard(d, false))

	assert.Contains(t, html, "<title>Painel de Faturamento</title>")
	assert.Contains(t, html, `data-init="@get('/sse/dashboard')"`)
	assert.Contains(t, html, services.NarrativeNotConfigured)
	assert.NotContains(t, html, "Gerar insights")
	for _, id := range []string{"filters", "kpis", "indicators", "timeseries", "routes", "route-history", "narrative"} {
		assert.Contains(t, html, `id="`+id+`"`)
	}
}

var signalsAttr = regexp.MustCompile(`data-signals="([^"]*)"`)

func TestDashboard_SessionPerPage(t *testing.T) {
	d := models.Dashboard{Filter: models.FilterState{}.WithYears(2024)}

	sessionOf := func() Signals {
		m := signalsAttr.FindStringSubmatch(toHTML(t, Dashboard(d, true)))
		require.Len(t, m, 2)
		var s Signals
		require.NoError(t, json.Unmarshal([]byte(html.UnescapeString(m[1])), &s))
		return s
	}

	first, second := sessionOf(), sessionOf()
	assert.Equal(t, []int{2024}, first.Filters.Years)
	assert.NotEmpty(t, first.Session)
	assert.NotEqual(t, first.Session, second.Session)
}

func TestRender_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ToString(ctx, Narrative("x", true))
	assert.ErrorIs(t, err, context.Canceled)
}
