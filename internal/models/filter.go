package models

import (
	"fmt"
	"slices"
)

// Dimension names one of the four filterable fields.
type Dimension string

const (
	DimensionYear        Dimension = "year"
	DimensionMonth       Dimension = "month"
	DimensionOrigin      Dimension = "origin"
	DimensionDestination Dimension = "destination"
)

// Dimensions lists every filter dimension in display order.
var Dimensions = []Dimension{DimensionYear, DimensionMonth, DimensionOrigin, DimensionDestination}

func ParseDimension(s string) (Dimension, error) {
	d := Dimension(s)
	if !slices.Contains(Dimensions, d) {
		return "", fmt.Errorf("unknown filter dimension %q", s)
	}
	return d, nil
}

// FilterState is an immutable snapshot of the four selection sets. An empty
// selection leaves its dimension unconstrained. Values are treated as sets;
// the With* methods return copies and never modify the receiver.
type FilterState struct {
	Years        []int    `json:"years"`
	Months       []string `json:"months"`
	Origins      []string `json:"origins"`
	Destinations []string `json:"destinations"`
}

func (f FilterState) IsEmpty() bool {
	return len(f.Years) == 0 && len(f.Months) == 0 && len(f.Origins) == 0 && len(f.Destinations) == 0
}

func (f FilterState) WithYears(years ...int) FilterState {
	f.Years = dedupe(years)
	return f
}

func (f FilterState) WithMonths(months ...string) FilterState {
	f.Months = dedupe(months)
	return f
}

func (f FilterState) WithOrigins(origins ...string) FilterState {
	f.Origins = dedupe(origins)
	return f
}

func (f FilterState) WithDestinations(destinations ...string) FilterState {
	f.Destinations = dedupe(destinations)
	return f
}

// Clone returns a deep copy so callers can hand the snapshot to other
// goroutines without sharing backing arrays.
func (f FilterState) Clone() FilterState {
	return FilterState{
		Years:        slices.Clone(f.Years),
		Months:       slices.Clone(f.Months),
		Origins:      slices.Clone(f.Origins),
		Destinations: slices.Clone(f.Destinations),
	}
}

func dedupe[T comparable](values []T) []T {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[T]struct{}, len(values))
	out := make([]T, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

type Options struct {
	Years        []int    `json:"years"`
	Months       []string `json:"months"`
	Origins      []string `json:"origins"`
	Destinations []string `json:"destinations"`
}

// Pill is the render state of one selectable option. A selected value that
// is no longer available stays selected and enabled so it can be cleared.
type Pill struct {
	Value     string `json:"value"`
	Selected  bool   `json:"selected"`
	Available bool   `json:"available"`
	Enabled   bool   `json:"enabled"`
}

type PillGroup struct {
	Dimension Dimension `json:"dimension"`
	Pills     []Pill    `json:"pills"`
}
