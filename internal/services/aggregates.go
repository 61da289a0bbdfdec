package services

import (
	"cmp"
	"slices"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
)

const (
	historyWindow     = 12
	projectionMonths  = 3
	concentrationTopN = 3

	// Placeholder forecast carried over from the dashboard's first release.
	// Future points do not depend on the history; only their labels do.
	projectionBase = 925497.34

	// MoMGrowthPlaceholder is reported as month-over-month growth. It is a
	// fixed figure, not a computation over the data.
	MoMGrowthPlaceholder = 2.4
)

var projectionFactors = [projectionMonths]float64{1, 1.02, 0.90}

func averageTicket(billing float64, volume int) float64 {
	if volume <= 0 {
		return 0
	}
	return billing / float64(volume)
}

// ComputeKPI sums billing, issuances and receipts over the working set.
func ComputeKPI(working []models.Transaction) models.KPI {
	var kpi models.KPI
	for _, tx := range working {
		kpi.TotalBilling += tx.Billing
		kpi.TotalIssuances += tx.Issuances
		kpi.TotalReceipts += tx.Receipts
	}
	kpi.AverageTicket = averageTicket(kpi.TotalBilling, kpi.TotalIssuances)
	return kpi
}

// ComputeRoutes groups the working set by route and ranks the groups by
// billing, highest first. Equal billing falls back to origin then
// destination so the ranking is reproducible. The full ranking is returned;
// callers slice the top N they need.
func ComputeRoutes(working []models.Transaction) []models.RouteData {
	groups := make(map[models.RouteKey]*models.RouteData)
	for _, tx := range working {
		key := tx.Route()
		g, ok := groups[key]
		if !ok {
			g = &models.RouteData{Origin: key.Origin, Destination: key.Destination}
			groups[key] = g
		}
		g.Billing += tx.Billing
		g.Volume += tx.Issuances
	}
	return sortRoutes(groups)
}

func sortRoutes(groups map[models.RouteKey]*models.RouteData) []models.RouteData {
	result := make([]models.RouteData, 0, len(groups))
	for _, r := range groups {
		r.AverageTicket = averageTicket(r.Billing, r.Volume)
		result = append(result, *r)
	}
	slices.SortFunc(result, func(a, b models.RouteData) int {
		if a.Billing > b.Billing {
			return -1
		}
		if a.Billing < b.Billing {
			return 1
		}
		if c := cmp.Compare(a.Origin, b.Origin); c != 0 {
			return c
		}
		return cmp.Compare(a.Destination, b.Destination)
	})
	return result
}

// TopRoutes returns at most n routes from a ranking.
func TopRoutes(routes []models.RouteData, n int) []models.RouteData {
	if n < 0 || len(routes) <= n {
		return routes
	}
	return routes[:n]
}

// ComputeIndicators derives the strategic ratios from the KPI record and the
// route ranking.
func ComputeIndicators(kpi models.KPI, routes []models.RouteData) models.Indicators {
	var top float64
	for _, r := range TopRoutes(routes, concentrationTopN) {
		top += r.Billing
	}
	var concentration float64
	if kpi.TotalBilling > 0 {
		concentration = top / kpi.TotalBilling * 100
	}
	return models.Indicators{
		Concentration: concentration,
		AverageTicket: kpi.AverageTicket,
		MoMGrowth:     MoMGrowthPlaceholder,
	}
}

type monthBucket struct {
	sortKey   string
	year      int
	month     string
	billing   float64
	issuances int
}

// bucketByMonth groups records by canonical sort key and returns the buckets
// in chronological order.
func bucketByMonth(records []models.Transaction) []*monthBucket {
	buckets := make(map[string]*monthBucket)
	for _, tx := range records {
		key := SortKey(tx.Year, tx.Month)
		b, ok := buckets[key]
		if !ok {
			b = &monthBucket{sortKey: key, year: tx.Year, month: tx.Month}
			buckets[key] = b
		}
		b.billing += tx.Billing
		b.issuances += tx.Issuances
	}

	result := make([]*monthBucket, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, b)
	}
	slices.SortFunc(result, func(a, b *monthBucket) int {
		return cmp.Compare(a.sortKey, b.sortKey)
	})
	return result
}

// ComputeTimeSeries returns up to twelve trailing months of billing followed
// by three projected months. An empty working set yields an empty series.
func ComputeTimeSeries(working []models.Transaction) []models.ChartPoint {
	if len(working) == 0 {
		return []models.ChartPoint{}
	}

	sorted := slices.Clone(working)
	slices.SortStableFunc(sorted, func(a, b models.Transaction) int {
		return a.Date.Compare(b.Date)
	})

	buckets := bucketByMonth(sorted)
	if len(buckets) > historyWindow {
		buckets = buckets[len(buckets)-historyWindow:]
	}

	series := make([]models.ChartPoint, 0, len(buckets)+projectionMonths)
	for _, b := range buckets {
		series = append(series, models.ChartPoint{
			SortKey: b.sortKey,
			Label:   MonthLabel(b.year, b.month),
			Real:    b.billing,
		})
	}

	last := buckets[len(buckets)-1]
	lastMonth := MonthIndex(last.month)
	for i, factor := range projectionFactors {
		year, month := addMonths(last.year, lastMonth, i+1)
		token := MonthToken(month)
		series = append(series, models.ChartPoint{
			SortKey:   SortKey(year, token),
			Label:     MonthLabel(year, token),
			Projected: projectionBase * factor,
		})
	}
	return series
}

// ComputeRouteHistory builds the monthly series of one route over the whole
// record store. Only the year selection is honoured; month, origin and
// destination selections do not apply here.
func ComputeRouteHistory(records []models.Transaction, route models.RouteKey, years []int) []models.RouteHistoryPoint {
	yearSet := newSet(years)
	matching := make([]models.Transaction, 0)
	for _, tx := range records {
		if tx.Route() == route && yearSet.allows(tx.Year) {
			matching = append(matching, tx)
		}
	}

	buckets := bucketByMonth(matching)
	history := make([]models.RouteHistoryPoint, 0, len(buckets))
	for _, b := range buckets {
		history = append(history, models.RouteHistoryPoint{
			SortKey:       b.sortKey,
			Label:         MonthLabel(b.year, b.month),
			Billing:       b.billing,
			Volume:        b.issuances,
			AverageTicket: averageTicket(b.billing, b.issuances),
		})
	}
	return history
}

// ScopeFor picks the stat card layout for the current selection.
func ScopeFor(f models.FilterState) models.CardScope {
	hasOrigins := len(f.Origins) > 0
	hasDestinations := len(f.Destinations) > 0
	switch {
	case hasOrigins && !hasDestinations:
		return models.CardScopeOrigin
	case hasDestinations && !hasOrigins:
		return models.CardScopeDestination
	default:
		return models.CardScopeAll
	}
}
