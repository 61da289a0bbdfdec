package models

import "time"

type Transaction struct {
	ID          string
	Year        int
	Month       string
	Origin      string
	Destination string
	Billing     float64
	Issuances   int
	Receipts    float64
	Date        time.Time
}

// RouteKey identifies a route. Records with the same origin and destination
// belong to the same route regardless of any other field.
type RouteKey struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

func (t Transaction) Route() RouteKey {
	return RouteKey{Origin: t.Origin, Destination: t.Destination}
}

type KPI struct {
	TotalBilling   float64 `json:"total_billing"`
	TotalIssuances int     `json:"total_issuances"`
	TotalReceipts  float64 `json:"total_receipts"`
	AverageTicket  float64 `json:"average_ticket"`
}

type RouteData struct {
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	Billing       float64 `json:"billing"`
	Volume        int     `json:"volume"`
	AverageTicket float64 `json:"average_ticket"`
}

type ChartPoint struct {
	SortKey   string  `json:"sort_key,omitempty"`
	Label     string  `json:"name"`
	Real      float64 `json:"real"`
	Projected float64 `json:"projected"`
}

type RouteHistoryPoint struct {
	SortKey       string  `json:"sort_key"`
	Label         string  `json:"name"`
	Billing       float64 `json:"billing"`
	Volume        int     `json:"volume"`
	AverageTicket float64 `json:"average_ticket"`
}

type Indicators struct {
	Concentration float64 `json:"concentration"`
	AverageTicket float64 `json:"average_ticket"`
	MoMGrowth     float64 `json:"mom_growth"`
}
