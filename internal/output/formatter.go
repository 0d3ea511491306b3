package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sdpower/connector-go/internal/jsonpath"
	"github.com/sdpower/connector-go/internal/pricing"
	"github.com/sdpower/connector-go/internal/types"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Formatter struct {
	options FormatterOptions
}

type FormatterOptions struct {
	Format  string // "table", "json", "csv", "yaml"
	NoColor bool
}

// Report is everything a dry-run command prints
type Report struct {
	Provider  string
	Result    *types.DryRunResult
	Tiers     []pricing.TierLine
	Breakdown []types.UsageBreakdown
	Daily     []types.DailyUsage
}

func NewFormatter(opts FormatterOptions) *Formatter {
	if opts.Format == "" {
		opts.Format = "table"
	}
	return &Formatter{options: opts}
}

func (f *Formatter) FormatDryRun(report Report) (string, error) {
	switch f.options.Format {
	case "json":
		return f.FormatJSON(newReportView(report))
	case "yaml":
		return f.FormatYAML(newReportView(report))
	case "csv":
		return f.FormatCSV(rowsCSV(report.Result.Rows))
	default:
		return NewTableWriterFormatter(f.options.NoColor).FormatDryRun(report), nil
	}
}

func (f *Formatter) FormatBatch(results []types.BatchResult) (string, error) {
	switch f.options.Format {
	case "json":
		return f.FormatJSON(newBatchView(results))
	case "yaml":
		return f.FormatYAML(newBatchView(results))
	case "csv":
		return f.FormatCSV(batchCSV(results))
	default:
		return NewTableFormatter(f.options.NoColor).FormatBatch(results), nil
	}
}

func (f *Formatter) FormatConnection(record types.ConnectionRecord) (string, error) {
	switch f.options.Format {
	case "json":
		return f.FormatJSON(record)
	case "yaml":
		return f.FormatYAML(record)
	case "csv":
		return f.FormatCSV([][]string{
			{"id", "provider", "environment", "status", "masked_key", "display_name", "created_at"},
			{record.ID, record.Provider, record.Environment, record.Status, record.MaskedKey, record.DisplayName,
				record.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00")},
		})
	default:
		return NewTableFormatter(f.options.NoColor).FormatConnection(record), nil
	}
}

func (f *Formatter) FormatJSON(data interface{}) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (f *Formatter) FormatYAML(data interface{}) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (f *Formatter) FormatCSV(data [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func rowsCSV(rows []types.NormalizedRow) [][]string {
	labels := metadataLabels(rows)
	header := append([]string{"id", "timestamp", "units", "cost"}, labels...)
	data := [][]string{header}
	for _, row := range rows {
		record := []string{row.ID, row.Timestamp, jsonpath.FormatNumber(row.Units), jsonpath.FormatNumber(row.Cost)}
		for _, label := range labels {
			record = append(record, metadataCell(row.Metadata[label]))
		}
		data = append(data, record)
	}
	return data
}

func batchCSV(results []types.BatchResult) [][]string {
	data := [][]string{{"path", "records", "total_units", "daily_cost", "monthly_cost", "currency", "error"}}
	for _, res := range results {
		if res.Result == nil {
			data = append(data, []string{res.Path, "", "", "", "", "", res.Error})
			continue
		}
		r := res.Result
		data = append(data, []string{
			res.Path,
			fmt.Sprint(r.SampleCount),
			jsonpath.FormatNumber(r.TotalUnits),
			jsonpath.FormatNumber(r.DailyCost),
			jsonpath.FormatNumber(r.MonthlyCost),
			r.Currency,
			"",
		})
	}
	return data
}

// metadataLabels returns every metadata label seen in rows, sorted
func metadataLabels(rows []types.NormalizedRow) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, row := range rows {
		for label := range row.Metadata {
			if !seen[label] {
				seen[label] = true
				labels = append(labels, label)
			}
		}
	}
	sort.Strings(labels)
	return labels
}

func metadataCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
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

// Number encodes NaN and infinities as null, which encoding/json rejects.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (n Number) MarshalYAML() (interface{}, error) {
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, nil
	}
	return v, nil
}

type rowView struct {
	ID        string                 `json:"id" yaml:"id"`
	Timestamp string                 `json:"timestamp" yaml:"timestamp"`
	Units     Number                 `json:"units" yaml:"units"`
	Cost      Number                 `json:"cost" yaml:"cost"`
	Metadata  map[string]interface{} `json:"metadata" yaml:"metadata"`
}

type tierView struct {
	Tier      int     `json:"tier" yaml:"tier"`
	UpToUnits *Number `json:"upToUnits" yaml:"upToUnits"`
	Rate      Number  `json:"rate" yaml:"rate"`
	Units     Number  `json:"units" yaml:"units"`
	Subtotal  string  `json:"subtotal" yaml:"subtotal"`
	Overflow  bool    `json:"overflow,omitempty" yaml:"overflow,omitempty"`
}

type breakdownView struct {
	Label     string `json:"label" yaml:"label"`
	Value     string `json:"value" yaml:"value"`
	RowCount  int    `json:"rowCount" yaml:"rowCount"`
	Units     Number `json:"units" yaml:"units"`
	Cost      Number `json:"cost" yaml:"cost"`
	CostShare Number `json:"costShare" yaml:"costShare"`
}

type dailyView struct {
	Date     string `json:"date" yaml:"date"`
	RowCount int    `json:"rowCount" yaml:"rowCount"`
	Units    Number `json:"units" yaml:"units"`
	Cost     Number `json:"cost" yaml:"cost"`
}

type resultView struct {
	RunID       string                `json:"runId" yaml:"runId"`
	Provider    string                `json:"provider,omitempty" yaml:"provider,omitempty"`
	Rows        []rowView             `json:"rows" yaml:"rows"`
	TotalUnits  Number                `json:"totalUnits" yaml:"totalUnits"`
	DailyCost   Number                `json:"dailyCost" yaml:"dailyCost"`
	MonthlyCost Number                `json:"monthlyCost" yaml:"monthlyCost"`
	Currency    string                `json:"currency" yaml:"currency"`
	UnitName    string                `json:"unitName,omitempty" yaml:"unitName,omitempty"`
	SampleCount int                   `json:"sampleCount" yaml:"sampleCount"`
	NextCursor  string                `json:"nextCursor,omitempty" yaml:"nextCursor,omitempty"`
	Issues      []types.ManifestError `json:"issues,omitempty" yaml:"issues,omitempty"`
	Tiers       []tierView            `json:"tiers,omitempty" yaml:"tiers,omitempty"`
	Breakdown   []breakdownView       `json:"breakdown,omitempty" yaml:"breakdown,omitempty"`
	Daily       []dailyView           `json:"daily,omitempty" yaml:"daily,omitempty"`
}

func newResultView(r *types.DryRunResult) *resultView {
	if r == nil {
		return nil
	}
	view := &resultView{
		RunID:       r.RunID,
		Rows:        make([]rowView, 0, len(r.Rows)),
		TotalUnits:  Number(r.TotalUnits),
		DailyCost:   Number(r.DailyCost),
		MonthlyCost: Number(r.MonthlyCost),
		Currency:    r.Currency,
		UnitName:    r.UnitName,
		SampleCount: r.SampleCount,
		NextCursor:  r.NextCursor,
		Issues:      r.Issues,
	}
	for _, row := range r.Rows {
		view.Rows = append(view.Rows, rowView{
			ID:        row.ID,
			Timestamp: row.Timestamp,
			Units:     Number(row.Units),
			Cost:      Number(row.Cost),
			Metadata:  row.Metadata,
		})
	}
	return view
}

func newReportView(report Report) *resultView {
	view := newResultView(report.Result)
	view.Provider = report.Provider
	for _, line := range report.Tiers {
		tv := tierView{
			Tier:     line.Index + 1,
			Rate:     Number(line.Rate),
			Units:    Number(line.Units),
			Subtotal: line.Subtotal.String(),
			Overflow: line.Overflow,
		}
		if line.UpToUnits != nil {
			upTo := Number(*line.UpToUnits)
			tv.UpToUnits = &upTo
		}
		view.Tiers = append(view.Tiers, tv)
	}
	for _, b := range report.Breakdown {
		view.Breakdown = append(view.Breakdown, breakdownView{
			Label:     b.Label,
			Value:     b.Value,
			RowCount:  b.RowCount,
			Units:     Number(b.Units),
			Cost:      Number(b.Cost),
			CostShare: Number(b.CostShare),
		})
	}
	for _, d := range report.Daily {
		view.Daily = append(view.Daily, dailyView{
			Date:     d.Date,
			RowCount: d.RowCount,
			Units:    Number(d.Units),
			Cost:     Number(d.Cost),
		})
	}
	return view
}

type batchView struct {
	Path   string      `json:"path" yaml:"path"`
	Result *resultView `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string      `json:"error,omitempty" yaml:"error,omitempty"`
}

func newBatchView(results []types.BatchResult) []batchView {
	views := make([]batchView, 0, len(results))
	for _, res := range results {
		views = append(views, batchView{
			Path:   res.Path,
			Result: newResultView(res.Result),
			Error:  res.Error,
		})
	}
	return views
}

// FormatMoney renders an amount with two decimals, "$" for USD and a
// trailing currency code otherwise.
func FormatMoney(amount float64, currency string) string {
	return formatAmount(amount, currency, 2)
}

func formatAmount(amount float64, currency string, places int32) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "n/a"
	}
	value := decimal.NewFromFloat(amount).StringFixed(places)
	switch strings.ToUpper(currency) {
	case "USD", "":
		if strings.HasPrefix(value, "-") {
			return "-$" + value[1:]
		}
		return "$" + value
	}
	return value + " " + strings.ToUpper(currency)
}

// formatFixed rounds to the given number of places with thousand separators
func formatFixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	s := decimal.NewFromFloat(v).StringFixed(places)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, frac = s[:dot], s[dot:]
	}
	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteRune(',')
		}
		grouped.WriteRune(digit)
	}
	return sign + grouped.String() + frac
}
