package calculator

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sdpower/connector-go/internal/jsonpath"
	"github.com/sdpower/connector-go/internal/logging"
	"github.com/sdpower/connector-go/internal/types"
	"go.uber.org/zap"
)

const (
	// DefaultPreviewLimit is how many rows a dry-run result carries
	DefaultPreviewLimit = 5

	// MonthlyMultiplier projects one sample day onto a month
	MonthlyMultiplier = 30

	timestampLayout = "2006-01-02T15:04:05.000Z"
)

type PricingService interface {
	Cost(units float64, policy types.PricingSpec) float64
}

// Options tune a Calculator. Zero values pick the defaults.
type Options struct {
	// Now supplies the fallback timestamp for records without one
	Now func() time.Time
	// NewID names each dry-run
	NewID        func() string
	PreviewLimit int
	// Strict fails the run on the first record that needs a fallback value
	Strict bool
}

type Calculator struct {
	pricingService PricingService
	options        Options
}

// Normalization holds every row of a run, before preview truncation
type Normalization struct {
	Rows       []types.NormalizedRow
	Issues     []types.ManifestError
	NextCursor string
}

func New(pricingService PricingService, opts Options) *Calculator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.PreviewLimit <= 0 {
		opts.PreviewLimit = DefaultPreviewLimit
	}
	return &Calculator{
		pricingService: pricingService,
		options:        opts,
	}
}

// DryRun maps a sample payload through a manifest and prices it.
func (c *Calculator) DryRun(manifest types.Manifest, rawPayload string) (*types.DryRunResult, error) {
	normalized, err := c.Normalize(manifest, rawPayload)
	if err != nil {
		return nil, err
	}
	return c.Summarize(manifest, normalized), nil
}

// Normalize parses the payload, locates the records array and maps every
// record to a priced row.
func (c *Calculator) Normalize(manifest types.Manifest, rawPayload string) (*Normalization, error) {
	doc, err := jsonpath.ParseString(rawPayload)
	if err != nil {
		return nil, types.PayloadParseError{Err: err}
	}

	recordsPath := manifest.Mapping.RecordsPath
	records, ok := jsonpath.Resolve(doc, recordsPath)
	if !ok {
		return nil, types.RecordsPathError{Path: recordsPath, Found: "missing"}
	}
	if records.Kind() != jsonpath.Array {
		return nil, types.RecordsPathError{Path: recordsPath, Found: records.Kind().String()}
	}
	if records.Len() == 0 {
		return nil, types.EmptyRecordsError{Path: recordsPath}
	}

	// One fallback timestamp per run keeps rows of the same run consistent.
	fallbackTimestamp := c.options.Now().UTC().Format(timestampLayout)

	normalized := &Normalization{
		Rows: make([]types.NormalizedRow, 0, records.Len()),
	}
	for i, record := range records.Items() {
		row, issues := c.normalizeRecord(manifest, i, record, fallbackTimestamp)
		if len(issues) > 0 {
			if c.options.Strict {
				return nil, issues[0]
			}
			normalized.Issues = append(normalized.Issues, issues...)
		}
		normalized.Rows = append(normalized.Rows, row)
	}

	pagination := manifest.Endpoint.Pagination
	if pagination.Strategy == types.PaginationCursor && pagination.NextCursorPath != "" {
		if cursor, ok := jsonpath.Lookup(doc, pagination.NextCursorPath); ok {
			normalized.NextCursor = jsonpath.ToString(cursor)
		}
	}

	logging.Debug("normalized sample payload",
		zap.String("provider", manifest.Slug),
		zap.Int("records", len(normalized.Rows)),
		zap.Int("issues", len(normalized.Issues)))

	return normalized, nil
}

func (c *Calculator) normalizeRecord(manifest types.Manifest, index int, record jsonpath.Value, fallbackTimestamp string) (types.NormalizedRow, []types.ManifestError) {
	mapping := manifest.Mapping
	var issues []types.ManifestError
	missing := func(field, path string) {
		if path == "" {
			return
		}
		issues = append(issues, types.ManifestError{
			Index:   index,
			Field:   field,
			Message: fmt.Sprintf("%s %q did not resolve", field, path),
		})
	}

	row := types.NormalizedRow{
		ID:        fmt.Sprintf("row-%d", index+1),
		Timestamp: fallbackTimestamp,
		Metadata:  make(map[string]interface{}, len(mapping.MetadataPaths)),
	}

	if v, ok := jsonpath.Lookup(record, mapping.IDPath); ok {
		row.ID = jsonpath.ToString(v)
	} else {
		missing("idPath", mapping.IDPath)
	}

	if v, ok := jsonpath.Lookup(record, mapping.TimestampPath); ok {
		row.Timestamp = jsonpath.ToString(v)
	} else {
		missing("timestampPath", mapping.TimestampPath)
	}

	if v, ok := jsonpath.Lookup(record, mapping.UsagePath); ok {
		row.Units = jsonpath.ToNumber(v)
		if math.IsNaN(row.Units) {
			issues = append(issues, types.ManifestError{
				Index:   index,
				Field:   "usagePath",
				Message: fmt.Sprintf("usage value %s is not numeric", jsonpath.ToString(v)),
			})
		}
	} else {
		missing("usagePath", mapping.UsagePath)
	}

	for label, path := range mapping.MetadataPaths {
		row.Metadata[label] = metadataValue(record, path)
	}

	row.Cost = c.pricingService.Cost(row.Units, manifest.Pricing)
	return row, issues
}

// metadataValue keeps scalars as-is; arrays and objects become compact JSON.
func metadataValue(record jsonpath.Value, path string) interface{} {
	v, ok := jsonpath.Lookup(record, path)
	if !ok {
		return nil
	}
	switch v.Kind() {
	case jsonpath.Array, jsonpath.Object:
		return jsonpath.ToString(v)
	}
	return v.Interface()
}

// Summarize aggregates every normalized row and keeps the preview slice.
func (c *Calculator) Summarize(manifest types.Manifest, normalized *Normalization) *types.DryRunResult {
	result := &types.DryRunResult{
		RunID:       c.options.NewID(),
		Currency:    manifest.Pricing.CurrencyCode(),
		UnitName:    manifest.Pricing.UnitName,
		SampleCount: len(normalized.Rows),
		NextCursor:  normalized.NextCursor,
		Issues:      normalized.Issues,
	}

	for _, row := range normalized.Rows {
		result.TotalUnits += row.Units
		result.DailyCost += row.Cost
	}
	result.MonthlyCost = result.DailyCost * MonthlyMultiplier

	preview := normalized.Rows
	if len(preview) > c.options.PreviewLimit {
		preview = preview[:c.options.PreviewLimit]
	}
	result.Rows = append([]types.NormalizedRow(nil), preview...)

	return result
}

// Breakdown groups rows by one metadata label, most expensive group first.
// Rows without the label are grouped under "(none)".
func (c *Calculator) Breakdown(rows []types.NormalizedRow, label string) []types.UsageBreakdown {
	groups := make(map[string]*types.UsageBreakdown)
	var totalCost float64

	for _, row := range rows {
		key := "(none)"
		if v, ok := row.Metadata[label]; ok && v != nil {
			key = formatMetadata(v)
		}

		group, exists := groups[key]
		if !exists {
			group = &types.UsageBreakdown{Label: label, Value: key}
			groups[key] = group
		}
		group.RowCount++
		group.Units += row.Units
		group.Cost += row.Cost
		totalCost += row.Cost
	}

	breakdown := make([]types.UsageBreakdown, 0, len(groups))
	for _, group := range groups {
		if totalCost > 0 {
			group.CostShare = group.Cost / totalCost
		}
		breakdown = append(breakdown, *group)
	}

	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Cost != breakdown[j].Cost {
			return breakdown[i].Cost > breakdown[j].Cost
		}
		return breakdown[i].Value < breakdown[j].Value
	})

	return breakdown
}

func formatMetadata(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return jsonpath.FormatNumber(val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	}
	return fmt.Sprint(v)
}

// DailyTotals groups rows by the calendar day of their timestamp (UTC),
// oldest first. Timestamps that do not parse are grouped under "unknown".
func (c *Calculator) DailyTotals(rows []types.NormalizedRow) []types.DailyUsage {
	days := make(map[string]*types.DailyUsage)
	for _, row := range rows {
		date := dateKey(row.Timestamp)
		day, exists := days[date]
		if !exists {
			day = &types.DailyUsage{Date: date}
			days[date] = day
		}
		day.RowCount++
		day.Units += row.Units
		day.Cost += row.Cost
	}

	totals := make([]types.DailyUsage, 0, len(days))
	for _, day := range days {
		totals = append(totals, *day)
	}
	sort.Slice(totals, func(i, j int) bool {
		// "unknown" sorts after every date
		if (totals[i].Date == "unknown") != (totals[j].Date == "unknown") {
			return totals[j].Date == "unknown"
		}
		return totals[i].Date < totals[j].Date
	})
	return totals
}

func dateKey(timestamp string) string {
	if t, err := time.Parse(time.RFC3339Nano, timestamp); err == nil {
		return t.UTC().Format("2006-01-02")
	}
	if len(timestamp) >= 10 {
		if t, err := time.Parse("2006-01-02", timestamp[:10]); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return "unknown"
}
