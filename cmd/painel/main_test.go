package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/config"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/server"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/services"
)

func tx(id string, year, month int, origin, destination string, billing float64) models.Transaction {
	return models.Transaction{
		ID:          id,
		Year:        year,
		Month:       services.MonthToken(month),
		Origin:      origin,
		Destination: destination,
		Billing:     billing,
		Issuances:   1,
		Receipts:    billing,
		Date:        time.Date(year, time.Month(month), 10, 0, 0, 0, 0, time.UTC),
	}
}

// Test helper to create analytics with test data
func newTestAnalytics() *services.Analytics {
	a := services.NewAnalytics()
	a.SetData([]models.Transaction{
		tx("T001", 2024, 1, "A", "B", 1000),
		tx("T002", 2024, 2, "A", "B", 500),
		tx("T003", 2025, 3, "C", "D", 300),
	})
	return a
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer() *server.Server {
	logger := newTestLogger()
	analytics := newTestAnalytics()
	narrative := services.NewNarrativeService(nil, nil, time.Second, logger)
	templateHandlers := &server.TemplateHandlers{Dashboard: dashboardHandler(analytics, narrative)}
	return server.NewServer(analytics, narrative, logger, templateHandlers)
}

// Integration tests for HTTP routes
func TestServer_Routes(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		method         string
		path           string
		expectedStatus int
		contentType    string
	}{
		{"GET", "/", http.StatusOK, "text/html"},
		{"GET", "/api/options", http.StatusOK, "application/json"},
		{"GET", "/api/kpis?year=2024", http.StatusOK, "application/json"},
		{"GET", "/api/routes?limit=5", http.StatusOK, "application/json"},
		{"GET", "/api/timeseries", http.StatusOK, "application/json"},
		{"GET", "/api/indicators", http.StatusOK, "application/json"},
		{"GET", "/api/dashboard?origin=A", http.StatusOK, "application/json"},
		{"GET", "/api/route-history?origin=A&destination=B", http.StatusOK, "application/json"},
		{"POST", "/api/narrative", http.StatusOK, "application/json"},
		{"GET", "/health", http.StatusOK, "application/json"},
		{"GET", "/admin/stats", http.StatusOK, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, nil)

			srv.ServeHTTP(w, r)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}

			ct := w.Header().Get("Content-Type")
			if !strings.Contains(ct, tt.contentType) {
				t.Errorf("content-type = %q, want %q", ct, tt.contentType)
			}

			// Validate JSON responses
			if tt.contentType == "application/json" {
				var result any
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Errorf("invalid json: %v", err)
				}
			}
		})
	}
}

// Test JSON API responses
func TestServer_JSONResponse(t *testing.T) {
	srv := newTestServer()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/routes?limit=1", nil)
	srv.ServeHTTP(w, r)

	var response struct {
		Success bool               `json:"success"`
		Data    []models.RouteData `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if !response.Success {
		t.Error("expected success=true in response")
	}

	if len(response.Data) != 1 {
		t.Fatalf("expected 1 route, got %d", len(response.Data))
	}

	top := response.Data[0]
	if top.Origin != "A" || top.Destination != "B" {
		t.Errorf("top route = %s -> %s, want A -> B", top.Origin, top.Destination)
	}
	if top.Billing != 1500 || top.Volume != 2 || top.AverageTicket != 750 {
		t.Errorf("top route = %+v, want billing 1500, volume 2, ticket 750", top)
	}
}

// Test Server-Sent Events routes
func TestServer_SSERoutes(t *testing.T) {
	srv := newTestServer()

	sseRoutes := []string{
		"/sse/dashboard",
		"/sse/filter/toggle?dim=year&value=2024",
		"/sse/filter/all?dim=origin",
		"/sse/filter/clear?dim=month",
		"/sse/filter/clear",
		"/sse/route-history?origin=A&destination=B",
		"/sse/narrative",
	}

	for _, route := range sseRoutes {
		t.Run(route, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", route, nil)

			srv.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}

			// Check for SSE headers
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("content-type = %q, should contain 'text/event-stream'", ct)
			}

			if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
				t.Errorf("cache-control = %q, want 'no-cache'", cc)
			}
		})
	}
}

// Test health endpoint
func TestServer_HandleHealth(t *testing.T) {
	srv := newTestServer()

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	srv.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var response map[string]any
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode health JSON: %v", err)
	}

	if success, ok := response["success"].(bool); !ok || !success {
		t.Error("expected success=true in response")
	}

	healthData, ok := response["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected health data in response")
	}

	if status, ok := healthData["status"].(string); !ok || status != "healthy" {
		t.Errorf("health status = %v, want 'healthy'", healthData["status"])
	}

	if _, ok := healthData["timestamp"]; !ok {
		t.Error("health response should include timestamp")
	}
}

// Test error handling for invalid methods and malformed input
func TestServer_ErrorHandling(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"POST", "/api/kpis", http.StatusMethodNotAllowed},
		{"PUT", "/", http.StatusMethodNotAllowed},
		{"DELETE", "/health", http.StatusMethodNotAllowed},
		{"GET", "/api/narrative", http.StatusMethodNotAllowed},
		{"GET", "/api/kpis?year=abc", http.StatusBadRequest},
		{"GET", "/api/options?month=Foo", http.StatusBadRequest},
		{"GET", "/api/routes?limit=-1", http.StatusBadRequest},
		{"GET", "/api/route-history?origin=A", http.StatusBadRequest},
		{"POST", "/api/narrative?indicator=weather", http.StatusBadRequest},
		{"GET", "/sse/filter/toggle?dim=weekday&value=x", http.StatusBadRequest},
		{"GET", "/sse/filter/toggle?dim=year&value=abc", http.StatusBadRequest},
		{"GET", "/sse/route-history?destination=B", http.StatusBadRequest},
		{"GET", "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(tt.method, tt.path, nil)

			srv.ServeHTTP(w, r)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

// Test dashboard template rendering
func TestDashboardTemplate(t *testing.T) {
	analytics := newTestAnalytics()
	narrative := services.NewNarrativeService(nil, nil, time.Second, newTestLogger())

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)

	dashboardHandler(analytics, narrative)(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	body := w.Body.String()
	expectedComponents := []string{
		"Painel de Faturamento",
		`id="filters"`,
		`id="kpis"`,
		`id="indicators"`,
		`id="timeseries"`,
		`id="routes"`,
		`id="route-history"`,
		`id="narrative"`,
		"R$ 1.800,00",
		services.NarrativeNotConfigured,
	}

	for _, component := range expectedComponents {
		if !strings.Contains(body, component) {
			t.Errorf("dashboard should contain '%s'", component)
		}
	}
}

func TestRenderReport(t *testing.T) {
	analytics := newTestAnalytics()
	f := models.FilterState{}.WithYears(2024)

	var out bytes.Buffer
	if err := renderReport(&out, analytics.Dashboard(f), 10); err != nil {
		t.Fatalf("renderReport() failed: %v", err)
	}

	body := out.String()
	for _, want := range []string{
		"Filtros: Ano 2024",
		"R$ 1.500,00",
		"R$ 750,00",
		"Jan/24",
		"Fev/24",
		"projeção",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("report should contain %q\n%s", want, body)
		}
	}
	if strings.Contains(body, "R$ 300,00") {
		t.Error("report should not include routes outside the filter")
	}
}

func TestReportOptions_Filter(t *testing.T) {
	opts := &reportOptions{
		years:   []int{2024, 2024},
		months:  []string{"jan", "Feb"},
		origins: []string{"A"},
	}

	f, err := opts.filter()
	if err != nil {
		t.Fatalf("filter() failed: %v", err)
	}
	if len(f.Years) != 1 || f.Years[0] != 2024 {
		t.Errorf("years = %v, want [2024]", f.Years)
	}
	if strings.Join(f.Months, ",") != "Jan,Fev" {
		t.Errorf("months = %v, want [Jan Fev]", f.Months)
	}

	opts.months = []string{"Smarch"}
	if _, err := opts.filter(); err == nil {
		t.Error("filter() should reject unknown months")
	}
}

func TestReportCmd_PlaceNamesKeepCommas(t *testing.T) {
	cmd := reportCmd()
	err := cmd.Flags().Parse([]string{
		"--origin", "Belém, PA",
		"--origin", "São Luís",
		"--destination", "Teresina, PI",
		"--month", "Jan,Fev",
	})
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	origins, err := cmd.Flags().GetStringArray("origin")
	if err != nil {
		t.Fatal(err)
	}
	if len(origins) != 2 || origins[0] != "Belém, PA" || origins[1] != "São Luís" {
		t.Errorf("origins = %q, want [\"Belém, PA\" \"São Luís\"]", origins)
	}
	destinations, err := cmd.Flags().GetStringArray("destination")
	if err != nil {
		t.Fatal(err)
	}
	if len(destinations) != 1 || destinations[0] != "Teresina, PI" {
		t.Errorf("destinations = %q, want [\"Teresina, PI\"]", destinations)
	}
	months, err := cmd.Flags().GetStringSlice("month")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(months, "|") != "Jan|Fev" {
		t.Errorf("months = %q, want [Jan Fev]", months)
	}
}

func TestNewNarrativeService_WithoutKey(t *testing.T) {
	svc := newNarrativeService(context.Background(), config.NarrativeConfig{
		Timeout: time.Second,
		RPS:     1,
		Burst:   1,
	}, newTestLogger())

	if svc.Enabled() {
		t.Error("narrative should be disabled without an API key")
	}

	text, err := svc.GeneralInsights(context.Background(), "", services.NarrativeSummary{})
	if err != nil {
		t.Fatalf("GeneralInsights() failed: %v", err)
	}
	if text != services.NarrativeNotConfigured {
		t.Errorf("text = %q, want %q", text, services.NarrativeNotConfigured)
	}
}

func TestLoadAnalytics_FallsBackToSample(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() failed: %v", err)
	}
	cfg.Feed.Source = t.TempDir() + "/missing.csv"
	cfg.Feed.CacheDir = ""
	cfg.Feed.SampleSize = 7

	analytics, err := loadAnalytics(context.Background(), cfg, newTestLogger())
	if err != nil {
		t.Fatalf("loadAnalytics() failed: %v", err)
	}
	if got := len(analytics.Records()); got != 7 {
		t.Errorf("records = %d, want 7 sample records", got)
	}
}
