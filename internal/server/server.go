package server

import (
	"log/slog"
	"net/http"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/handlers"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(analytics *services.Analytics, narrative *services.NarrativeService, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, narrative, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, narrative, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/options", s.apiHandlers.HandleOptions)
	s.mux.HandleFunc("GET /api/kpis", s.apiHandlers.HandleKPIs)
	s.mux.HandleFunc("GET /api/routes", s.apiHandlers.HandleRoutes)
	s.mux.HandleFunc("GET /api/timeseries", s.apiHandlers.HandleTimeSeries)
	s.mux.HandleFunc("GET /api/indicators", s.apiHandlers.HandleIndicators)
	s.mux.HandleFunc("GET /api/dashboard", s.apiHandlers.HandleDashboard)
	s.mux.HandleFunc("GET /api/route-history", s.apiHandlers.HandleRouteHistory)
	s.mux.HandleFunc("POST /api/narrative", s.apiHandlers.HandleNarrative)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/dashboard", s.sseHandlers.HandleDashboard)
	s.mux.HandleFunc("GET /sse/filter/toggle", s.sseHandlers.HandleToggle)
	s.mux.HandleFunc("GET /sse/filter/all", s.sseHandlers.HandleSelectAll)
	s.mux.HandleFunc("GET /sse/filter/clear", s.sseHandlers.HandleClear)
	s.mux.HandleFunc("GET /sse/route-history", s.sseHandlers.HandleRouteHistory)
	s.mux.HandleFunc("GET /sse/narrative", s.sseHandlers.HandleNarrative)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
