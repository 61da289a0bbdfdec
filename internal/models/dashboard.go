package models

// CardScope selects which stat cards the dashboard shows for the current
// origin/destination selection.
type CardScope string

const (
	CardScopeAll         CardScope = "all"
	CardScopeOrigin      CardScope = "origin"
	CardScopeDestination CardScope = "destination"
)

// Dashboard is a read-only snapshot of every aggregate for one filter state.
type Dashboard struct {
	Filter         FilterState  `json:"filter"`
	Options        Options      `json:"options"`
	GlobalOptions  Options      `json:"global_options"`
	Pills          []PillGroup  `json:"pills"`
	WorkingSetSize int          `json:"working_set_size"`
	KPI            KPI          `json:"kpi"`
	Routes         []RouteData  `json:"routes"`
	TimeSeries     []ChartPoint `json:"time_series"`
	Indicators     Indicators   `json:"indicators"`
	CardScope      CardScope    `json:"card_scope"`
}
