package services

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
)

// Analytics owns the record store and answers every dashboard query as a
// pure function of (records, filter). A new load replaces the store wholesale.
type Analytics struct {
	mu           sync.RWMutex
	records      []models.Transaction
	global       models.Options
	lastLoad     LoadResult
	lastModified time.Time
	logger       *slog.Logger
}

func NewAnalytics() *Analytics {
	return &Analytics{
		records: []models.Transaction{},
		global:  GlobalOptions(nil),
		logger:  slog.Default(),
	}
}

// SetData replaces the record store.
func (a *Analytics) SetData(data []models.Transaction) {
	records := slices.Clone(data)
	global := GlobalOptions(records)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = records
	a.global = global
	a.lastModified = time.Now()
}

// Load pulls the feed through the loader and installs the result.
func (a *Analytics) Load(ctx context.Context, loader *Loader) LoadResult {
	records, result := loader.Load(ctx)
	a.SetData(records)

	a.mu.Lock()
	a.lastLoad = result
	a.mu.Unlock()
	return result
}

func (a *Analytics) snapshot() ([]models.Transaction, models.Options) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.records, a.global
}

// Records returns the record store. The slice must not be modified.
func (a *Analytics) Records() []models.Transaction {
	records, _ := a.snapshot()
	return records
}

func (a *Analytics) WorkingSet(f models.FilterState) []models.Transaction {
	records, _ := a.snapshot()
	return FilterTransactions(records, f)
}

func (a *Analytics) Options(f models.FilterState) models.Options {
	records, _ := a.snapshot()
	return DependentOptions(records, f)
}

func (a *Analytics) GlobalOptions() models.Options {
	_, global := a.snapshot()
	return global
}

func (a *Analytics) KPI(f models.FilterState) models.KPI {
	return ComputeKPI(a.WorkingSet(f))
}

func (a *Analytics) Routes(f models.FilterState) []models.RouteData {
	return ComputeRoutes(a.WorkingSet(f))
}

func (a *Analytics) TimeSeries(f models.FilterState) []models.ChartPoint {
	return ComputeTimeSeries(a.WorkingSet(f))
}

func (a *Analytics) Indicators(f models.FilterState) models.Indicators {
	working := a.WorkingSet(f)
	return ComputeIndicators(ComputeKPI(working), ComputeRoutes(working))
}

// RouteHistory ignores every selection in f except years.
func (a *Analytics) RouteHistory(route models.RouteKey, f models.FilterState) []models.RouteHistoryPoint {
	records, _ := a.snapshot()
	return ComputeRouteHistory(records, route, f.Years)
}

// Dashboard computes every aggregate for f in one pass over a consistent
// view of the record store.
func (a *Analytics) Dashboard(f models.FilterState) models.Dashboard {
	records, global := a.snapshot()

	working := FilterTransactions(records, f)
	dependent := DependentOptions(records, f)
	kpi := ComputeKPI(working)
	routes := ComputeRoutes(working)

	return models.Dashboard{
		Filter:         f,
		Options:        dependent,
		GlobalOptions:  global,
		Pills:          BuildPills(global, dependent, f),
		WorkingSetSize: len(working),
		KPI:            kpi,
		Routes:         routes,
		TimeSeries:     ComputeTimeSeries(working),
		Indicators:     ComputeIndicators(kpi, routes),
		CardScope:      ScopeFor(f),
	}
}

// Apply runs a filter action against the current store.
func (a *Analytics) Apply(f models.FilterState, action FilterAction) (models.FilterState, error) {
	next, err := NextFilter(f, action, a.Options(f))
	if err != nil {
		return f, err
	}
	a.logger.Debug("filter changed", "action", action.Kind, "dimension", action.Dimension, "value", action.Value)
	return next, nil
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"record_count":   len(a.records),
		"last_processed": a.lastModified,
		"source":         a.lastLoad.Source,
		"fallback":       a.lastLoad.Fallback,
		"from_cache":     a.lastLoad.FromCache,
		"years":          len(a.global.Years),
		"origins":        len(a.global.Origins),
		"destinations":   len(a.global.Destinations),
	}
}
