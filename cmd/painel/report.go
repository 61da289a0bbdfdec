package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/observability"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/services"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginBottom(1)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

type reportOptions struct {
	years        []int
	months       []string
	origins      []string
	destinations []string
	limit        int
}

func reportCmd() *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard for a filter to the terminal",
		Long: `Load the feed, apply the given selections and print KPIs, strategic
indicators, the route ranking and the monthly series.

Repeat a flag to select several values. --year and --month also accept a
comma-separated list; place names may contain commas, so --origin and
--destination take one value per flag:

  painel report --year 2024 --month Jan,Fev --origin "São Luís" --origin "Belém, PA"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, opts)
		},
	}

	cmd.Flags().IntSliceVar(&opts.years, "year", nil, "years to include")
	cmd.Flags().StringSliceVar(&opts.months, "month", nil, "months to include (Jan, Fev, ... Dez)")
	cmd.Flags().StringArrayVar(&opts.origins, "origin", nil, "origin to include (repeatable)")
	cmd.Flags().StringArrayVar(&opts.destinations, "destination", nil, "destination to include (repeatable)")
	cmd.Flags().IntVar(&opts.limit, "limit", 10, "number of routes to list")

	return cmd
}

func (o *reportOptions) filter() (models.FilterState, error) {
	months := make([]string, 0, len(o.months))
	for _, m := range o.months {
		token, ok := services.NormalizeMonth(m)
		if !ok {
			return models.FilterState{}, fmt.Errorf("unknown month %q", m)
		}
		months = append(months, token)
	}

	var f models.FilterState
	return f.WithYears(o.years...).
		WithMonths(months...).
		WithOrigins(o.origins...).
		WithDestinations(o.destinations...), nil
}

func runReport(cmd *cobra.Command, opts *reportOptions) error {
	f, err := opts.filter()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logger)

	analytics, err := loadAnalytics(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	return renderReport(cmd.OutOrStdout(), analytics.Dashboard(f), opts.limit)
}

func renderReport(out io.Writer, d models.Dashboard, limit int) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Painel de Faturamento"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(describeFilter(d.Filter)))
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Indicadores"))
	b.WriteString("\n")
	writeField(&b, "Registros", services.FormatCount(d.WorkingSetSize))
	writeField(&b, "Faturamento Total", services.FormatBRL(d.KPI.TotalBilling))
	writeField(&b, "Emissões", services.FormatCount(d.KPI.TotalIssuances))
	writeField(&b, "Recebimentos", services.FormatBRL(d.KPI.TotalReceipts))
	writeField(&b, "Ticket Médio", services.FormatBRL(d.KPI.AverageTicket))
	writeField(&b, "Concentração Top 3", services.FormatPercent(d.Indicators.Concentration))
	writeField(&b, "Crescimento MoM", "+"+services.FormatPercent(d.Indicators.MoMGrowth))
	b.WriteString("\n")

	if _, err := io.WriteString(out, b.String()); err != nil {
		return err
	}

	if err := writeRoutes(out, services.TopRoutes(d.Routes, limit)); err != nil {
		return err
	}
	return writeSeries(out, d.TimeSeries)
}

func writeField(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-20s", label)), valueStyle.Render(value))
}

func writeRoutes(out io.Writer, routes []models.RouteData) error {
	fmt.Fprintln(out, sectionStyle.Render("Top Rotas"))
	if len(routes) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("  nenhuma rota para os filtros selecionados"))
		fmt.Fprintln(out)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  #\tOrigem\tDestino\tFaturamento\tVolume\tTicket Médio")
	for i, r := range routes {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\t%s\t%s\n",
			i+1, r.Origin, r.Destination,
			services.FormatBRL(r.Billing), services.FormatCount(r.Volume), services.FormatBRL(r.AverageTicket))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return nil
}

func writeSeries(out io.Writer, series []models.ChartPoint) error {
	fmt.Fprintln(out, sectionStyle.Render("Faturamento Mensal"))
	if len(series) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("  sem dados"))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, p := range series {
		if p.Projected > 0 && p.Real == 0 {
			fmt.Fprintf(w, "  %s\t%s\t%s\n", p.Label, services.FormatBRL(p.Projected), mutedStyle.Render("projeção"))
			continue
		}
		fmt.Fprintf(w, "  %s\t%s\t\n", p.Label, services.FormatBRL(p.Real))
	}
	return w.Flush()
}

func describeFilter(f models.FilterState) string {
	if f.IsEmpty() {
		return "Filtros: nenhum"
	}

	var parts []string
	if len(f.Years) > 0 {
		years := make([]string, len(f.Years))
		for i, y := range f.Years {
			years[i] = fmt.Sprint(y)
		}
		parts = append(parts, "Ano "+strings.Join(years, ", "))
	}
	if len(f.Months) > 0 {
		parts = append(parts, "Mês "+strings.Join(f.Months, ", "))
	}
	if len(f.Origins) > 0 {
		parts = append(parts, "Origem "+strings.Join(f.Origins, ", "))
	}
	if len(f.Destinations) > 0 {
		parts = append(parts, "Destino "+strings.Join(f.Destinations, ", "))
	}
	return "Filtros: " + strings.Join(parts, " · ")
}
