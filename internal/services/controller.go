package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
)

type ActionKind string

const (
	ActionToggle    ActionKind = "toggle"
	ActionSelectAll ActionKind = "all"
	ActionClear     ActionKind = "clear"
	ActionReset     ActionKind = "reset"
)

// FilterAction is one user gesture on the filter panel.
type FilterAction struct {
	Kind      ActionKind
	Dimension models.Dimension
	Value     string
}

// NextFilter is the only way filter state changes: it takes the current
// snapshot and an action and returns the next snapshot. available must be
// the dependent options for current; it is consulted by ActionSelectAll.
func NextFilter(current models.FilterState, action FilterAction, available models.Options) (models.FilterState, error) {
	next := current.Clone()

	if action.Kind == ActionReset {
		return models.FilterState{}, nil
	}
	if _, err := models.ParseDimension(string(action.Dimension)); err != nil {
		return current, err
	}

	switch action.Kind {
	case ActionToggle:
		return toggle(next, action.Dimension, action.Value)
	case ActionClear:
		return clearDimension(next, action.Dimension), nil
	case ActionSelectAll:
		return selectAllAvailable(next, action.Dimension, available), nil
	default:
		return current, fmt.Errorf("unknown filter action %q", action.Kind)
	}
}

// ParseYear validates a year value from user input.
func ParseYear(value string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid year %q", value)
	}
	return year, nil
}

// canonicalMonth accepts canonical tokens and aliases; anything else is kept
// verbatim so malformed tokens present in the data can still be selected.
func canonicalMonth(value string) string {
	if tok, ok := NormalizeMonth(value); ok {
		return tok
	}
	return strings.TrimSpace(value)
}

func toggle(f models.FilterState, dim models.Dimension, value string) (models.FilterState, error) {
	switch dim {
	case models.DimensionYear:
		year, err := ParseYear(value)
		if err != nil {
			return f, err
		}
		f.Years = toggleValue(f.Years, year)
	case models.DimensionMonth:
		f.Months = toggleValue(f.Months, canonicalMonth(value))
	case models.DimensionOrigin:
		f.Origins = toggleValue(f.Origins, value)
	case models.DimensionDestination:
		f.Destinations = toggleValue(f.Destinations, value)
	}
	return f, nil
}

func toggleValue[T comparable](selected []T, value T) []T {
	if i := slices.Index(selected, value); i >= 0 {
		return slices.Delete(selected, i, i+1)
	}
	return append(selected, value)
}

func clearDimension(f models.FilterState, dim models.Dimension) models.FilterState {
	switch dim {
	case models.DimensionYear:
		f.Years = nil
	case models.DimensionMonth:
		f.Months = nil
	case models.DimensionOrigin:
		f.Origins = nil
	case models.DimensionDestination:
		f.Destinations = nil
	}
	return f
}

// selectAllAvailable mirrors the "all" pill: when every available value is
// already selected the dimension is cleared, otherwise the selection becomes
// exactly the available values.
func selectAllAvailable(f models.FilterState, dim models.Dimension, available models.Options) models.FilterState {
	switch dim {
	case models.DimensionYear:
		f.Years = selectAll(f.Years, available.Years)
	case models.DimensionMonth:
		f.Months = selectAll(f.Months, available.Months)
	case models.DimensionOrigin:
		f.Origins = selectAll(f.Origins, available.Origins)
	case models.DimensionDestination:
		f.Destinations = selectAll(f.Destinations, available.Destinations)
	}
	return f
}

func selectAll[T comparable](selected, available []T) []T {
	chosen := newSet(selected)
	allSelected := true
	for _, v := range available {
		if _, ok := chosen[v]; !ok {
			allSelected = false
			break
		}
	}
	if allSelected {
		return nil
	}
	return slices.Clone(available)
}
