package services

import (
	"context"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
)

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "feed*.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics()
	if a == nil {
		t.Fatal("NewAnalytics() returned nil")
	}
	if a.records == nil {
		t.Error("records should be initialized")
	}
	if a.logger == nil {
		t.Error("logger should be initialized")
	}
}

func TestAnalytics_SetData(t *testing.T) {
	a := NewAnalytics()
	data := fixture()

	a.SetData(data)

	if got := len(a.Records()); got != len(data) {
		t.Errorf("Expected %d records, got %d", len(data), got)
	}

	// The store owns its copy.
	data[0].Billing = 1e9
	if a.Records()[0].Billing == 1e9 {
		t.Error("SetData should copy the input slice")
	}

	global := a.GlobalOptions()
	if len(global.Years) != 2 || global.Years[0] != 2023 || global.Years[1] != 2024 {
		t.Errorf("Expected global years [2023 2024], got %v", global.Years)
	}
	if len(global.Origins) != 3 {
		t.Errorf("Expected 3 origins, got %v", global.Origins)
	}
}

func TestAnalytics_LoadFromCSV_ValidData(t *testing.T) {
	path := createTempCSV(t, "Data,Origem,Destino,Valor\n"+
		"15/01/2024,São Luís,Teresina,\"R$ 1.000,00\"\n"+
		"20/01/2024,São Luís,Teresina,500\n"+
		"03/02/2024,Caxias,Belém,\"250,50\"\n")

	source, err := NewSource(path, SourceOptions{})
	if err != nil {
		t.Fatal(err)
	}

	a := NewAnalytics()
	result := a.Load(context.Background(), NewLoader(source, LoaderConfig{}, quietLogger()))

	if result.Fallback {
		t.Fatal("Expected the CSV to load without falling back")
	}
	if result.Records != 3 {
		t.Errorf("Expected 3 records, got %d", result.Records)
	}

	kpi := a.KPI(models.FilterState{})
	if kpi.TotalBilling != 1750.5 {
		t.Errorf("Expected total billing 1750.5, got %v", kpi.TotalBilling)
	}

	routes := a.Routes(models.FilterState{})
	if len(routes) != 2 || routes[0].Origin != "São Luís" || routes[0].Billing != 1500 {
		t.Errorf("Unexpected routes: %+v", routes)
	}

	stats := a.Stats()
	if stats["record_count"] != 3 || stats["fallback"] != false || stats["source"] != path {
		t.Errorf("Unexpected stats: %v", stats)
	}
}

func TestAnalytics_LoadFromCSV_InvalidData(t *testing.T) {
	path := createTempCSV(t, "Data,Origem,Destino,Valor\nonly,three,cells\n")

	source, err := NewSource(path, SourceOptions{})
	if err != nil {
		t.Fatal(err)
	}

	a := NewAnalytics()
	result := a.Load(context.Background(), NewLoader(source, LoaderConfig{SampleSize: 5}, quietLogger()))

	if !result.Fallback {
		t.Error("Expected fallback to sample data")
	}
	if len(a.Records()) != 5 {
		t.Errorf("Expected 5 sample records, got %d", len(a.Records()))
	}
	if a.Stats()["fallback"] != true {
		t.Error("Stats should report the fallback")
	}
}

func TestAnalytics_Dashboard(t *testing.T) {
	a := NewAnalytics()
	a.SetData(fixture())

	f := models.FilterState{}.WithYears(2024).WithOrigins("São Luís")
	d := a.Dashboard(f)

	if d.WorkingSetSize != 2 {
		t.Errorf("Expected working set of 2, got %d", d.WorkingSetSize)
	}
	if d.KPI.TotalBilling != 1150 {
		t.Errorf("Expected billing 1150, got %v", d.KPI.TotalBilling)
	}
	if d.CardScope != models.CardScopeOrigin {
		t.Errorf("Expected origin scope, got %v", d.CardScope)
	}
	if len(d.Routes) != 2 {
		t.Errorf("Expected 2 routes, got %d", len(d.Routes))
	}
	if len(d.TimeSeries) != 2+projectionMonths {
		t.Errorf("Expected %d chart points, got %d", 2+projectionMonths, len(d.TimeSeries))
	}
	if len(d.GlobalOptions.Origins) != 3 {
		t.Errorf("Global options should ignore the filter, got %v", d.GlobalOptions.Origins)
	}
	// Origins are not narrowed by their own selection.
	if len(d.Options.Origins) != 3 {
		t.Errorf("Expected 3 origins available in 2024, got %v", d.Options.Origins)
	}

	kpi := a.KPI(f)
	if kpi != d.KPI {
		t.Errorf("Dashboard KPI %+v differs from KPI() %+v", d.KPI, kpi)
	}
}

func TestAnalytics_RouteHistory(t *testing.T) {
	a := NewAnalytics()
	a.SetData(fixture())

	route := models.RouteKey{Origin: "São Luís", Destination: "Teresina"}
	history := a.RouteHistory(route, models.FilterState{}.WithOrigins("Caxias").WithMonths("Mar"))
	if len(history) != 2 {
		t.Fatalf("Expected 2 months of history, got %d", len(history))
	}
	if history[0].Label != "Nov/23" || history[1].Label != "Jan/24" {
		t.Errorf("Unexpected history labels: %s, %s", history[0].Label, history[1].Label)
	}

	history = a.RouteHistory(route, models.FilterState{}.WithYears(2024))
	if len(history) != 1 || history[0].Billing != 1000 {
		t.Errorf("Expected a single 2024 month billing 1000, got %+v", history)
	}
}

func TestAnalytics_Apply(t *testing.T) {
	a := NewAnalytics()
	a.SetData(fixture())

	f := models.FilterState{}.WithYears(2023)
	next, err := a.Apply(f, FilterAction{Kind: ActionSelectAll, Dimension: models.DimensionOrigin})
	if err != nil {
		t.Fatal(err)
	}
	if len(next.Origins) != 1 || next.Origins[0] != "São Luís" {
		t.Errorf("Select all should pick only origins available in 2023, got %v", next.Origins)
	}

	if _, err := a.Apply(f, FilterAction{Kind: ActionToggle, Dimension: "weekday"}); err == nil {
		t.Error("Expected an error for an unknown dimension")
	}
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := NewAnalytics()
	a.SetData(fixture())

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			f := models.FilterState{}.WithYears(2023 + i%2)
			_ = a.Dashboard(f)
			_ = a.Options(f)
			_ = a.Indicators(f)
			_ = a.TimeSeries(f)
			if i%3 == 0 {
				a.SetData(fixture())
			}
		}()
	}
	wg.Wait()

	if len(a.Records()) != len(fixture()) {
		t.Errorf("Expected %d records after concurrent access", len(fixture()))
	}
}

func TestAnalytics_EmptyData(t *testing.T) {
	a := NewAnalytics()
	f := models.FilterState{}

	if got := a.KPI(f); got != (models.KPI{}) {
		t.Errorf("KPI() should be zero, got %+v", got)
	}
	if routes := a.Routes(f); len(routes) != 0 {
		t.Errorf("Routes() should return an empty slice, got length %d", len(routes))
	}
	if series := a.TimeSeries(f); len(series) != 0 {
		t.Errorf("TimeSeries() should return an empty slice, got length %d", len(series))
	}
	if ind := a.Indicators(f); ind.Concentration != 0 || ind.AverageTicket != 0 {
		t.Errorf("Indicators() should be zero apart from the growth placeholder, got %+v", ind)
	}
	if opts := a.Options(f); len(opts.Years)+len(opts.Months)+len(opts.Origins)+len(opts.Destinations) != 0 {
		t.Errorf("Options() should be empty, got %+v", opts)
	}
}

func benchmarkData(n int) []models.Transaction {
	origins := []string{"São Luís", "Imperatriz", "Caxias", "Timon", "Bacabal"}
	destinations := []string{"Teresina", "Belém", "Fortaleza", "Palmas"}

	data := make([]models.Transaction, n)
	for i := range data {
		data[i] = record(2023+i%2, i%12+1, origins[i%len(origins)], destinations[i%len(destinations)], float64(i%500)*10, 1)
		data[i].ID = strconv.Itoa(i)
	}
	return data
}

// Benchmark tests for performance validation
func BenchmarkAnalytics_Dashboard(b *testing.B) {
	a := NewAnalytics()
	a.SetData(benchmarkData(10000))
	f := models.FilterState{}.WithYears(2024).WithOrigins("São Luís", "Caxias")

	b.ResetTimer()
	for b.Loop() {
		_ = a.Dashboard(f)
	}
}

func BenchmarkAnalytics_Options(b *testing.B) {
	a := NewAnalytics()
	a.SetData(benchmarkData(10000))
	f := models.FilterState{}.WithMonths("Jan", "Fev").WithDestinations("Belém")

	b.ResetTimer()
	for b.Loop() {
		_ = a.Options(f)
	}
}
