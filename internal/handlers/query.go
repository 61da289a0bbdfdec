package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/errors"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/services"
)

// filterFromQuery reads the four selections from repeated query parameters,
// e.g. ?year=2024&year=2025&origin=SLZ. Blank values are ignored.
func filterFromQuery(q url.Values) (models.FilterState, error) {
	var f models.FilterState

	var years []int
	for _, v := range nonBlank(q["year"]) {
		year, err := services.ParseYear(v)
		if err != nil {
			return f, errors.InvalidField("year", err)
		}
		years = append(years, year)
	}

	var months []string
	for _, v := range nonBlank(q["month"]) {
		month, ok := services.NormalizeMonth(v)
		if !ok {
			return f, errors.InvalidField("month", fmt.Errorf("unknown month %q", v))
		}
		months = append(months, month)
	}

	return f.WithYears(years...).
		WithMonths(months...).
		WithOrigins(nonBlank(q["origin"])...).
		WithDestinations(nonBlank(q["destination"])...), nil
}

func routeFromQuery(q url.Values) (models.RouteKey, error) {
	route := models.RouteKey{
		Origin:      strings.TrimSpace(q.Get("origin")),
		Destination: strings.TrimSpace(q.Get("destination")),
	}
	if route.Origin == "" {
		return route, errors.InvalidField("origin", fmt.Errorf("origin is required"))
	}
	if route.Destination == "" {
		return route, errors.InvalidField("destination", fmt.Errorf("destination is required"))
	}
	return route, nil
}

// limitFromQuery returns -1 when no limit was given.
func limitFromQuery(q url.Values) (int, error) {
	raw := strings.TrimSpace(q.Get("limit"))
	if raw == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.InvalidField("limit", fmt.Errorf("limit must be a non-negative integer, got %q", raw))
	}
	return n, nil
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
