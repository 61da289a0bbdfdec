package services

import (
	"time"

	"github.com/decexpressosaoluiz-blip/painel-faturamento/internal/models"
)

func record(year, month int, origin, destination string, billing float64, issuances int) models.Transaction {
	return models.Transaction{
		ID:          origin + destination + SortKey(year, MonthToken(month)),
		Year:        year,
		Month:       MonthToken(month),
		Origin:      origin,
		Destination: destination,
		Billing:     billing,
		Issuances:   issuances,
		Receipts:    billing,
		Date:        time.Date(year, time.Month(month), 15, 0, 0, 0, 0, time.UTC),
	}
}

// fixture spans two years, three origins and three destinations.
func fixture() []models.Transaction {
	return []models.Transaction{
		record(2023, 11, "São Luís", "Teresina", 800, 2),
		record(2023, 12, "São Luís", "Belém", 400, 1),
		record(2024, 1, "São Luís", "Teresina", 1000, 2),
		record(2024, 1, "Imperatriz", "Teresina", 300, 1),
		record(2024, 2, "Imperatriz", "Fortaleza", 250, 1),
		record(2024, 3, "Caxias", "Belém", 900, 3),
		record(2024, 3, "São Luís", "Fortaleza", 150, 1),
	}
}
