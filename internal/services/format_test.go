package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "R$ 0,00"},
		{1.5, "R$ 1,50"},
		{999.999, "R$ 1.000,00"},
		{1234.56, "R$ 1.234,56"},
		{925497.34, "R$ 925.497,34"},
		{1234567.891, "R$ 1.234.567,89"},
		{-42, "R$ -42,00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBRL(tt.in))
	}
}

func TestFormatPercentAndCount(t *testing.T) {
	assert.Equal(t, "42,5%", FormatPercent(42.5))
	assert.Equal(t, "2,4%", FormatPercent(MoMGrowthPlaceholder))
	assert.Equal(t, "100,0%", FormatPercent(100))
	assert.Equal(t, "0", FormatCount(0))
	assert.Equal(t, "1.234", FormatCount(1234))
	assert.Equal(t, "12.345.678", FormatCount(12345678))
}

func TestMonths(t *testing.T) {
	assert.Equal(t, 1, MonthIndex("Jan"))
	assert.Equal(t, 12, MonthIndex("Dez"))
	assert.Equal(t, 0, MonthIndex("Foo"))
	assert.Equal(t, "Fev", MonthToken(2))
	assert.Empty(t, MonthToken(13))

	for input, want := range map[string]string{"jan": "Jan", " FEV ": "Fev", "Feb": "Fev", "may": "Mai", "DEC": "Dez", "set": "Set"} {
		got, ok := NormalizeMonth(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}
	_, ok := NormalizeMonth("Smarch")
	assert.False(t, ok)

	assert.Equal(t, "2024-03", SortKey(2024, "Mar"))
	assert.Equal(t, "2024-00", SortKey(2024, "Foo"), "unknown tokens sort before January")
	assert.Equal(t, "Nov/24", MonthLabel(2024, "Nov"))
	assert.Equal(t, "Jan/05", MonthLabel(2005, "Jan"))

	year, month := addMonths(2024, 11, 2)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 1, month)
}
