package services

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
)

type set[T comparable] map[T]struct{}

func newSet[T comparable](values []T) set[T] {
	if len(values) == 0 {
		return nil
	}
	s := make(set[T], len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// allows reports membership; a nil set places no constraint.
func (s set[T]) allows(v T) bool {
	if s == nil {
		return true
	}
	_, ok := s[v]
	return ok
}

// predicate is a compiled filter state. The excluded dimension is left
// unconstrained, which is how dependent options stay independent of their
// own selection.
type predicate struct {
	years        set[int]
	months       set[string]
	origins      set[string]
	destinations set[string]
}

func newPredicate(f models.FilterState, exclude models.Dimension) predicate {
	p := predicate{
		years:        newSet(f.Years),
		months:       newSet(f.Months),
		origins:      newSet(f.Origins),
		destinations: newSet(f.Destinations),
	}
	switch exclude {
	case models.DimensionYear:
		p.years = nil
	case models.DimensionMonth:
		p.months = nil
	case models.DimensionOrigin:
		p.origins = nil
	case models.DimensionDestination:
		p.destinations = nil
	}
	return p
}

func (p predicate) match(tx models.Transaction) bool {
	return p.years.allows(tx.Year) &&
		p.months.allows(tx.Month) &&
		p.origins.allows(tx.Origin) &&
		p.destinations.allows(tx.Destination)
}

func (p predicate) apply(records []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(records))
	for _, tx := range records {
		if p.match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// FilterTransactions returns the working set: records satisfying every
// non-empty dimension of f at once.
func FilterTransactions(records []models.Transaction, f models.FilterState) []models.Transaction {
	return newPredicate(f, "").apply(records)
}

// DependentOptions computes, per dimension, the values still reachable once
// the other three selections are applied. Each dimension gets its own pass.
func DependentOptions(records []models.Transaction, f models.FilterState) models.Options {
	return models.Options{
		Years:        distinctYears(newPredicate(f, models.DimensionYear).apply(records)),
		Months:       distinctMonths(newPredicate(f, models.DimensionMonth).apply(records)),
		Origins:      distinctStrings(newPredicate(f, models.DimensionOrigin).apply(records), originOf),
		Destinations: distinctStrings(newPredicate(f, models.DimensionDestination).apply(records), destinationOf),
	}
}

// GlobalOptions lists every distinct value per dimension, ignoring filters.
func GlobalOptions(records []models.Transaction) models.Options {
	return models.Options{
		Years:        distinctYears(records),
		Months:       distinctMonths(records),
		Origins:      distinctStrings(records, originOf),
		Destinations: distinctStrings(records, destinationOf),
	}
}

func originOf(tx models.Transaction) string      { return tx.Origin }
func destinationOf(tx models.Transaction) string { return tx.Destination }

func distinctYears(records []models.Transaction) []int {
	seen := make(set[int])
	out := []int{}
	for _, tx := range records {
		if _, ok := seen[tx.Year]; !ok {
			seen[tx.Year] = struct{}{}
			out = append(out, tx.Year)
		}
	}
	slices.Sort(out)
	return out
}

func distinctMonths(records []models.Transaction) []string {
	out := distinctStrings(records, func(tx models.Transaction) string { return tx.Month })
	slices.SortStableFunc(out, compareMonths)
	return out
}

func compareMonths(a, b string) int {
	if c := cmp.Compare(MonthIndex(a), MonthIndex(b)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

func distinctStrings(records []models.Transaction, field func(models.Transaction) string) []string {
	seen := make(set[string])
	out := []string{}
	for _, tx := range records {
		v := field(tx)
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

// BuildPills merges global options, dependent options and the current
// selection into render state for every dimension.
func BuildPills(global, dependent models.Options, f models.FilterState) []models.PillGroup {
	return []models.PillGroup{
		{Dimension: models.DimensionYear, Pills: pills(itoaAll(global.Years), itoaAll(dependent.Years), itoaAll(f.Years), compareYears)},
		{Dimension: models.DimensionMonth, Pills: pills(global.Months, dependent.Months, f.Months, compareMonths)},
		{Dimension: models.DimensionOrigin, Pills: pills(global.Origins, dependent.Origins, f.Origins, cmp.Compare[string])},
		{Dimension: models.DimensionDestination, Pills: pills(global.Destinations, dependent.Destinations, f.Destinations, cmp.Compare[string])},
	}
}

func pills(global, available, selected []string, order func(a, b string) int) []models.Pill {
	availableSet := newSet(available)
	selectedSet := newSet(selected)

	values := slices.Clone(global)
	seen := make(set[string], len(global)+len(selected))
	for _, v := range global {
		seen[v] = struct{}{}
	}
	for _, v := range selected {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			values = append(values, v)
		}
	}
	slices.SortStableFunc(values, order)

	out := make([]models.Pill, 0, len(values))
	for _, v := range values {
		_, isAvailable := availableSet[v]
		_, isSelected := selectedSet[v]
		out = append(out, models.Pill{
			Value:     v,
			Selected:  isSelected,
			Available: isAvailable,
			Enabled:   isAvailable || isSelected,
		})
	}
	return out
}

func compareYears(a, b string) int {
	x, _ := strconv.Atoi(a)
	y, _ := strconv.Atoi(b)
	return cmp.Compare(x, y)
}

func itoaAll(values []int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.Itoa(v)
	}
	return out
}
