package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
)

const (
	DefaultNarrativeModel = "gemini-2.5-flash"

	NarrativeNotConfigured = "API Key não configurada."
	NarrativeUnavailable   = "Análise indisponível."
	NarrativeEmpty         = "Não foi possível gerar insights no momento."

	narrativeTopRoutes = 5
)

// ErrStaleNarrative is returned when the same caller started a newer request
// before this one finished. Callers drop the result.
var ErrStaleNarrative = errors.New("narrative superseded by a newer request")

// TextGenerator produces free text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator is the TextGenerator backed by the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if model == "" {
		model = DefaultNarrativeModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

// NarrativeSummary is the pre-aggregated context handed to the model.
type NarrativeSummary struct {
	KPI          models.KPI
	TopRoutes    []models.RouteData
	Origins      []string
	Destinations []string
}

// NewNarrativeSummary trims the route ranking to the routes the prompt uses.
func NewNarrativeSummary(kpi models.KPI, routes []models.RouteData, f models.FilterState) NarrativeSummary {
	return NarrativeSummary{
		KPI:          kpi,
		TopRoutes:    TopRoutes(routes, narrativeTopRoutes),
		Origins:      f.Origins,
		Destinations: f.Destinations,
	}
}

// Text renders the summary as plain text.
func (s NarrativeSummary) Text() string {
	origins, destinations := "Todas", "Todos"
	if len(s.Origins) > 0 {
		origins = strings.Join(s.Origins, ", ")
	}
	if len(s.Destinations) > 0 {
		destinations = strings.Join(s.Destinations, ", ")
	}

	var b strings.Builder
	b.WriteString("Contexto do Painel de Faturamento:\n")
	fmt.Fprintf(&b, "- Faturamento Total: %s\n", FormatBRL(s.KPI.TotalBilling))
	fmt.Fprintf(&b, "- Emissões Totais: %d\n", s.KPI.TotalIssuances)
	fmt.Fprintf(&b, "- Ticket Médio: %s\n", FormatBRL(s.KPI.AverageTicket))
	fmt.Fprintf(&b, "- Origem Selecionada: %s\n", origins)
	fmt.Fprintf(&b, "- Destino Selecionado: %s\n", destinations)
	b.WriteString("\nTop Rotas por Faturamento:\n")
	for _, r := range s.TopRoutes {
		fmt.Fprintf(&b, "%s -> %s: %s\n", r.Origin, r.Destination, FormatBRL(r.Billing))
	}
	return b.String()
}

// IndicatorRequest asks for an explanation of one strategic indicator.
type IndicatorRequest struct {
	Name        string
	Value       string
	Description string
	Context     string
}

// IndicatorContext describes the dataset for an indicator explanation.
func IndicatorContext(kpi models.KPI, routes []models.RouteData) string {
	top := "nenhuma"
	if len(routes) > 0 {
		top = routes[0].Origin + " -> " + routes[0].Destination
	}
	return fmt.Sprintf("Faturamento Total da empresa: %s. A empresa tem %d rotas ativas. Top Rota atual: %s.",
		FormatBRL(kpi.TotalBilling), len(routes), top)
}

// NarrativeService asks the text generator for commentary. It never fails
// with an error except ErrStaleNarrative; every other failure is reported
// through one of the fixed unavailable messages.
//
// Staleness is tracked per caller: a request only supersedes earlier
// in-flight requests made under the same caller id. An empty caller id is
// never superseded.
type NarrativeService struct {
	generator TextGenerator
	limiter   *rate.Limiter
	timeout   time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	seq    uint64
	latest map[string]uint64
}

// NewNarrativeService builds the service. A nil generator means no API key
// is configured.
func NewNarrativeService(generator TextGenerator, limiter *rate.Limiter, timeout time.Duration, logger *slog.Logger) *NarrativeService {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NarrativeService{
		generator: generator,
		limiter:   limiter,
		timeout:   timeout,
		logger:    logger,
		latest:    make(map[string]uint64),
	}
}

func (s *NarrativeService) Enabled() bool {
	return s.generator != nil
}

// GeneralInsights comments on the filtered dashboard. caller identifies the
// client the answer is for.
func (s *NarrativeService) GeneralInsights(ctx context.Context, caller string, summary NarrativeSummary) (string, error) {
	prompt := "Atue como um analista de dados sênior especializado em logística e finanças.\n" +
		"Analise os seguintes dados do painel de faturamento.\n" +
		"Forneça 3 insights breves e estratégicos sobre o desempenho, identificando padrões, " +
		"oportunidades de crescimento ou anomalias.\n" +
		"Use formatação markdown simples. Seja direto e profissional.\n\n" +
		summary.Text()
	return s.run(ctx, caller, "general", prompt)
}

func (s *NarrativeService) IndicatorInsight(ctx context.Context, caller string, req IndicatorRequest) (string, error) {
	prompt := fmt.Sprintf("Você é um consultor estratégico de logística. O usuário clicou no indicador %q que está com o valor %q.\n\n"+
		"Descrição do indicador: %s\n"+
		"Contexto Adicional: %s\n\n"+
		"1. Explique em linguagem simples o que esse indicador significa para uma transportadora.\n"+
		"2. Analise se este valor é bom, ruim ou neutro (considere benchmarks gerais de logística).\n"+
		"3. Dê uma sugestão de ação prática para melhorar ou manter esse número.\n\n"+
		"Seja conciso (máximo 100 palavras). Use Markdown.",
		req.Name, req.Value, req.Description, req.Context)
	return s.run(ctx, caller, "indicator", prompt)
}

func (s *NarrativeService) run(ctx context.Context, caller, kind, prompt string) (string, error) {
	if s.generator == nil {
		return NarrativeNotConfigured, nil
	}

	token := s.begin(caller)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn("narrative rate limited", "kind", kind, "error", err)
			return s.settle(caller, token, NarrativeUnavailable)
		}
	}

	start := time.Now()
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("narrative generation failed", "kind", kind, "error", err)
		return s.settle(caller, token, NarrativeUnavailable)
	}
	s.logger.Debug("narrative generated", "kind", kind, "duration", time.Since(start))

	if strings.TrimSpace(text) == "" {
		return s.settle(caller, token, NarrativeEmpty)
	}
	return s.settle(caller, token, text)
}

// begin records a new request for caller and returns its token.
func (s *NarrativeService) begin(caller string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if caller != "" {
		s.latest[caller] = s.seq
	}
	return s.seq
}

// settle returns text unless caller started a newer request meanwhile. The
// caller's entry is dropped once its latest request settles, so older
// requests still in flight find no entry and are stale too.
func (s *NarrativeService) settle(caller string, token uint64, text string) (string, error) {
	if caller == "" {
		return text, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[caller] != token {
		return "", ErrStaleNarrative
	}
	delete(s.latest, caller)
	return text, nil
}

// pending reports how many callers have a request in flight.
func (s *NarrativeService) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.latest)
}
