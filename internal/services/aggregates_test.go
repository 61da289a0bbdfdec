package services

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
)

func TestComputeKPI(t *testing.T) {
	tests := []struct {
		name       string
		working    []models.Transaction
		wantTotal  float64
		wantIssued int
		wantTicket float64
	}{
		{"empty working set", nil, 0, 0, 0},
		{"zero issuances", []models.Transaction{record(2024, 1, "A", "B", 500, 0)}, 500, 0, 0},
		{"ticket is billing over issuances", []models.Transaction{
			record(2024, 1, "A", "B", 1000, 2),
			record(2024, 2, "A", "C", 500, 2),
		}, 1500, 4, 375},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kpi := ComputeKPI(tt.working)
			assert.InDelta(t, tt.wantTotal, kpi.TotalBilling, 1e-9)
			assert.Equal(t, tt.wantIssued, kpi.TotalIssuances)
			assert.InDelta(t, tt.wantTicket, kpi.AverageTicket, 1e-9)
		})
	}
}

func TestComputeRoutes_MergesSameRoute(t *testing.T) {
	working := []models.Transaction{
		record(2024, 1, "A", "B", 1000, 2),
		record(2024, 1, "A", "B", 500, 1),
	}

	routes := ComputeRoutes(working)
	require.Len(t, routes, 1)
	assert.Equal(t, models.RouteData{Origin: "A", Destination: "B", Billing: 1500, Volume: 3, AverageTicket: 500}, routes[0])
}

func TestComputeRoutes_RankingAndConservation(t *testing.T) {
	for _, f := range filterStates() {
		working := FilterTransactions(fixture(), f)
		kpi := ComputeKPI(working)
		routes := ComputeRoutes(working)

		var sum float64
		for _, r := range routes {
			sum += r.Billing
		}
		assert.InDelta(t, kpi.TotalBilling, sum, 1e-6, "route billing must add up to the KPI total")

		assert.True(t, slices.IsSortedFunc(routes, func(a, b models.RouteData) int {
			switch {
			case a.Billing > b.Billing:
				return -1
			case a.Billing < b.Billing:
				return 1
			}
			return 0
		}), "routes must be ranked by billing, highest first")
	}
}

func TestComputeRoutes_TieBreak(t *testing.T) {
	routes := ComputeRoutes([]models.Transaction{
		record(2024, 1, "B", "X", 100, 1),
		record(2024, 1, "A", "Z", 100, 1),
		record(2024, 1, "A", "Y", 100, 1),
	})

	require.Len(t, routes, 3)
	assert.Equal(t, "A", routes[0].Origin)
	assert.Equal(t, "Y", routes[0].Destination)
	assert.Equal(t, "Z", routes[1].Destination)
	assert.Equal(t, "B", routes[2].Origin)
}

func TestTopRoutes(t *testing.T) {
	routes := ComputeRoutes(fixture())

	assert.Len(t, TopRoutes(routes, 2), 2)
	assert.Len(t, TopRoutes(routes, 100), len(routes))
	assert.Len(t, TopRoutes(routes, -1), len(routes))
	assert.Empty(t, TopRoutes(routes, 0))
}

func TestComputeIndicators(t *testing.T) {
	working := []models.Transaction{
		record(2024, 1, "A", "B", 500, 1),
		record(2024, 1, "A", "C", 300, 1),
		record(2024, 1, "A", "D", 100, 1),
		record(2024, 1, "A", "E", 100, 1),
	}
	kpi := ComputeKPI(working)
	ind := ComputeIndicators(kpi, ComputeRoutes(working))

	assert.InDelta(t, 90.0, ind.Concentration, 1e-9)
	assert.InDelta(t, 250.0, ind.AverageTicket, 1e-9)
	assert.Equal(t, MoMGrowthPlaceholder, ind.MoMGrowth)

	empty := ComputeIndicators(ComputeKPI(nil), nil)
	assert.Zero(t, empty.Concentration)
	assert.Zero(t, empty.AverageTicket)
}

func TestComputeTimeSeries_ProjectionRollsOverYear(t *testing.T) {
	series := ComputeTimeSeries([]models.Transaction{
		record(2024, 10, "A", "B", 100, 1),
		record(2024, 11, "A", "B", 200, 1),
	})

	require.Len(t, series, 5)
	labels := make([]string, len(series))
	for i, p := range series {
		labels[i] = p.Label
	}
	assert.Equal(t, []string{"Out/24", "Nov/24", "Dez/24", "Jan/25", "Fev/25"}, labels)

	assert.Equal(t, 200.0, series[1].Real)
	assert.Zero(t, series[1].Projected)
	assert.Zero(t, series[2].Real)
	assert.InDelta(t, 925497.34, series[2].Projected, 1e-6)
	assert.InDelta(t, 925497.34*1.02, series[3].Projected, 1e-6)
	assert.InDelta(t, 925497.34*0.90, series[4].Projected, 1e-6)
}

func TestComputeTimeSeries_KeepsTrailingTwelveMonths(t *testing.T) {
	var working []models.Transaction
	for i := range 14 {
		year, month := addMonths(2023, 1, i)
		working = append(working, record(year, month, "A", "B", float64(i+1), 1))
	}
	slices.Reverse(working)

	series := ComputeTimeSeries(working)
	require.Len(t, series, historyWindow+projectionMonths)
	assert.Equal(t, "Mar/23", series[0].Label)
	assert.Equal(t, 3.0, series[0].Real)
	assert.Equal(t, "Fev/24", series[historyWindow-1].Label)

	keys := make([]string, len(series))
	for i, p := range series {
		keys[i] = p.SortKey
	}
	assert.True(t, slices.IsSorted(keys), "sort keys must order chronologically as strings")
}

func TestComputeTimeSeries_SumsWithinMonth(t *testing.T) {
	series := ComputeTimeSeries(fixture())

	require.Len(t, series, 5+projectionMonths)
	assert.Equal(t, "Jan/24", series[2].Label)
	assert.Equal(t, 1300.0, series[2].Real)
}

func TestComputeTimeSeries_Empty(t *testing.T) {
	series := ComputeTimeSeries(nil)
	assert.NotNil(t, series)
	assert.Empty(t, series)
}

func TestComputeRouteHistory_HonoursYearsOnly(t *testing.T) {
	records := []models.Transaction{
		record(2023, 5, "A", "B", 100, 1),
		record(2024, 1, "A", "B", 200, 2),
		record(2024, 1, "A", "B", 100, 1),
		record(2024, 3, "A", "B", 50, 1),
		record(2024, 3, "A", "C", 999, 1),
	}
	f := models.FilterState{}.WithYears(2024).WithMonths("Jan").WithOrigins("Z").WithDestinations("Y")

	history := ComputeRouteHistory(records, models.RouteKey{Origin: "A", Destination: "B"}, f.Years)

	require.Len(t, history, 2)
	assert.Equal(t, models.RouteHistoryPoint{SortKey: "2024-01", Label: "Jan/24", Billing: 300, Volume: 3, AverageTicket: 100}, history[0])
	assert.Equal(t, "2024-03", history[1].SortKey)
	assert.Equal(t, 50.0, history[1].Billing)
}

func TestComputeRouteHistory_AllYearsWhenUnselected(t *testing.T) {
	history := ComputeRouteHistory(fixture(), models.RouteKey{Origin: "São Luís", Destination: "Teresina"}, nil)

	require.Len(t, history, 2)
	assert.Equal(t, "Nov/23", history[0].Label)
	assert.Equal(t, "Jan/24", history[1].Label)
}

func TestComputeRouteHistory_UnknownRoute(t *testing.T) {
	history := ComputeRouteHistory(fixture(), models.RouteKey{Origin: "X", Destination: "Y"}, nil)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestEmptyStore_AllAggregatesAreZero(t *testing.T) {
	working := FilterTransactions(nil, models.FilterState{})

	assert.Equal(t, models.KPI{}, ComputeKPI(working))
	assert.Empty(t, ComputeRoutes(working))
	assert.Empty(t, ComputeTimeSeries(working))
	assert.Equal(t, models.Indicators{MoMGrowth: MoMGrowthPlaceholder}, ComputeIndicators(ComputeKPI(working), nil))
}

func TestScopeFor(t *testing.T) {
	var f models.FilterState
	assert.Equal(t, models.CardScopeAll, ScopeFor(f))
	assert.Equal(t, models.CardScopeOrigin, ScopeFor(f.WithOrigins("A")))
	assert.Equal(t, models.CardScopeDestination, ScopeFor(f.WithDestinations("B")))
	assert.Equal(t, models.CardScopeAll, ScopeFor(f.WithOrigins("A").WithDestinations("B")))
	assert.Equal(t, models.CardScopeAll, ScopeFor(f.WithYears(2024)))
}
