package types

import (
	"time"
)

// NormalizedRow is one usage record after mapping and pricing
type NormalizedRow struct {
	ID        string                 `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Units     float64                `json:"units"`
	Cost      float64                `json:"cost"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// DryRunResult is the preview produced from a manifest and a sample payload.
// Rows is truncated to the preview limit; the totals cover every record.
type DryRunResult struct {
	RunID       string          `json:"runId"`
	Rows        []NormalizedRow `json:"rows"`
	TotalUnits  float64         `json:"totalUnits"`
	DailyCost   float64         `json:"dailyCost"`
	MonthlyCost float64         `json:"monthlyCost"`
	Currency    string          `json:"currency"`
	UnitName    string          `json:"unitName,omitempty"`
	SampleCount int             `json:"sampleCount"`
	NextCursor  string          `json:"nextCursor,omitempty"`
	Issues      []ManifestError `json:"issues,omitempty"`
}

// UsageBreakdown aggregates rows sharing one metadata value
type UsageBreakdown struct {
	Label     string  `json:"label"`
	Value     string  `json:"value"`
	RowCount  int     `json:"rowCount"`
	Units     float64 `json:"units"`
	Cost      float64 `json:"cost"`
	CostShare float64 `json:"costShare"`
}

// ConnectionRecord is what the surrounding application stores once a
// connector is accepted. It is only built here, never persisted.
type ConnectionRecord struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	Environment string    `json:"environment"`
	Status      string    `json:"status"`
	MaskedKey   string    `json:"maskedKey"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BatchResult is the outcome of one payload file in a batch dry-run
type BatchResult struct {
	Path   string        `json:"path"`
	Result *DryRunResult `json:"result,omitempty"`
	Err    error         `json:"-"`
	Error  string        `json:"error,omitempty"`
}

// DailyUsage aggregates rows that fall on the same calendar day
type DailyUsage struct {
	Date     string  `json:"date"`
	RowCount int     `json:"rowCount"`
	Units    float64 `json:"units"`
	Cost     float64 `json:"cost"`
}
