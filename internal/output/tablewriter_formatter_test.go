package output

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/sdpower/connector-go/internal/calculator"
	"github.com/sdpower/connector-go/internal/manifest"
	"github.com/sdpower/connector-go/internal/pricing"
	"github.com/sdpower/connector-go/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(t *testing.T) Report {
	t.Helper()
	calc := calculator.New(pricing.NewService(), calculator.Options{
		Now:   func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
		NewID: func() string { return "run-1" },
	})
	m := manifest.Default()
	normalized, err := calc.Normalize(m, manifest.SamplePayload())
	require.NoError(t, err)
	result := calc.Summarize(m, normalized)

	return Report{
		Provider:  m.Slug,
		Result:    result,
		Tiers:     pricing.TierBreakdown(result.TotalUnits, m.Pricing),
		Breakdown: calc.Breakdown(normalized.Rows, "model"),
		Daily:     calc.DailyTotals(normalized.Rows),
	}
}

func TestFormatDryRun_Table(t *testing.T) {
	out, err := NewFormatter(FormatterOptions{Format: "table", NoColor: true}).FormatDryRun(sampleReport(t))
	require.NoError(t, err)

	assert.Contains(t, out, "Universal Connector Dry Run - notion-ai")
	assert.Contains(t, out, "evt_001")
	assert.Contains(t, out, "notion-gpt-large")
	assert.Contains(t, strings.ToLower(out), "3 of 3 rows")
	assert.Contains(t, out, "Monthly estimate (×30)")
	assert.Contains(t, out, "$0.62")
	assert.Contains(t, out, "evt_004")
	assert.Contains(t, out, "Pricing at total sample volume")
	assert.Contains(t, out, "2024")
	assert.NotContains(t, out, "Note:")
	assert.NotContains(t, out, "\033[")
}

func TestFormatDryRun_TierTableNotesPerRecordPricing(t *testing.T) {
	limit := 100.0
	policy := types.PricingSpec{
		Template: types.TemplateTiered,
		Currency: "USD",
		Tiers: []types.PricingTier{
			{UpToUnits: &limit, Rate: 1},
			{Rate: 0.5},
		},
	}
	var rows []types.NormalizedRow
	for _, id := range []string{"a", "b", "c"} {
		rows = append(rows, types.NormalizedRow{
			ID:       id,
			Units:    60,
			Cost:     pricing.Cost(60, policy),
			Metadata: map[string]interface{}{},
		})
	}
	report := Report{
		Result: &types.DryRunResult{
			RunID:       "r",
			Rows:        rows,
			TotalUnits:  180,
			DailyCost:   180,
			MonthlyCost: 5400,
			Currency:    "USD",
			SampleCount: 3,
		},
		Tiers: pricing.TierBreakdown(180, policy),
	}

	out, err := NewFormatter(FormatterOptions{Format: "table", NoColor: true}).FormatDryRun(report)
	require.NoError(t, err)
	assert.Contains(t, out, "140.0000")
	assert.Contains(t, out, "daily cost ($180.00) prices each record separately")
	assert.Contains(t, out, "would cost $140.00")
}

func TestFormatDryRun_ColorWrapsBorders(t *testing.T) {
	out, err := NewFormatter(FormatterOptions{Format: "table"}).FormatDryRun(sampleReport(t))
	require.NoError(t, err)
	assert.Contains(t, out, "\033[90m")
}

func TestFormatDryRun_JSON(t *testing.T) {
	out, err := NewFormatter(FormatterOptions{Format: "json"}).FormatDryRun(sampleReport(t))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "run-1", decoded["runId"])
	assert.Equal(t, "USD", decoded["currency"])
	assert.Equal(t, float64(3), decoded["sampleCount"])
	assert.Len(t, decoded["rows"], 3)
	assert.Equal(t, "evt_004", decoded["nextCursor"])
}

func TestFormatDryRun_JSONNonFinite(t *testing.T) {
	report := Report{Result: &types.DryRunResult{
		RunID: "r",
		Rows: []types.NormalizedRow{
			{ID: "a", Units: math.NaN(), Cost: math.NaN(), Metadata: map[string]interface{}{}},
		},
		TotalUnits:  math.NaN(),
		DailyCost:   math.NaN(),
		MonthlyCost: math.Inf(1),
		Currency:    "USD",
		SampleCount: 1,
	}}

	out, err := NewFormatter(FormatterOptions{Format: "json"}).FormatDryRun(report)
	require.NoError(t, err)
	assert.Contains(t, out, `"totalUnits": null`)
	assert.Contains(t, out, `"monthlyCost": null`)
	assert.Contains(t, out, `"units": null`)
}

func TestFormatDryRun_CSV(t *testing.T) {
	out, err := NewFormatter(FormatterOptions{Format: "csv"}).FormatDryRun(sampleReport(t))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "id,timestamp,units,cost,model,project", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "evt_001,2024-06-01T08:00:00Z,2.1,0.0042"))
	assert.True(t, strings.HasSuffix(lines[1], ",notion-gpt-small,prod-docs"))
}

func TestFormatDryRun_YAML(t *testing.T) {
	out, err := NewFormatter(FormatterOptions{Format: "yaml"}).FormatDryRun(sampleReport(t))
	require.NoError(t, err)
	assert.Contains(t, out, "runId: run-1")
	assert.Contains(t, out, "sampleCount: 3")
}

func TestFormatBatch(t *testing.T) {
	report := sampleReport(t)
	results := []types.BatchResult{
		{Path: "/tmp/good.json", Result: report.Result},
		{Path: "/tmp/bad.json", Error: "No events found at the records path"},
	}

	out, err := NewFormatter(FormatterOptions{NoColor: true}).FormatBatch(results)
	require.NoError(t, err)
	assert.Contains(t, out, "good.json")
	assert.Contains(t, out, "No events found at the records path")
	assert.Contains(t, out, "1 succeeded, 1 failed")

	out, err = NewFormatter(FormatterOptions{Format: "csv"}).FormatBatch(results)
	require.NoError(t, err)
	assert.Contains(t, out, "/tmp/bad.json,,,,,,No events found at the records path")
}

func TestFormatConnection(t *testing.T) {
	record := manifest.ConnectionPreview(manifest.Default(), time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))

	out, err := NewFormatter(FormatterOptions{NoColor: true}).FormatConnection(record)
	require.NoError(t, err)
	assert.Contains(t, out, "Notion AI usage . prod")
	assert.Contains(t, out, "X-Notion-Key: Bearer ***")

	out, err = NewFormatter(FormatterOptions{Format: "json"}).FormatConnection(record)
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "connector-notion-ai-1717228800000"`)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$0.62", FormatMoney(0.618, "USD"))
	assert.Equal(t, "$0.00", FormatMoney(0, ""))
	assert.Equal(t, "-$1.50", FormatMoney(-1.5, "usd"))
	assert.Equal(t, "12.35 EUR", FormatMoney(12.345, "eur"))
	assert.Equal(t, "n/a", FormatMoney(math.NaN(), "USD"))
}

func TestFormatFixed(t *testing.T) {
	assert.Equal(t, "1,234,567.890", formatFixed(1234567.89, 3))
	assert.Equal(t, "-1,000.00", formatFixed(-1000, 2))
	assert.Equal(t, "999", formatFixed(999, 0))
	assert.Equal(t, "n/a", formatFixed(math.Inf(-1), 2))
}
