package output

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/sdpower/connector-go/internal/calculator"
	"github.com/sdpower/connector-go/internal/jsonpath"
	"github.com/sdpower/connector-go/internal/pricing"
	"github.com/sdpower/connector-go/internal/types"
	"github.com/shopspring/decimal"
)

// TableWriterFormatter renders dry-run reports as bordered tables
type TableWriterFormatter struct {
	noColor bool
}

func NewTableWriterFormatter(noColor bool) *TableWriterFormatter {
	return &TableWriterFormatter{noColor: noColor}
}

func (f *TableWriterFormatter) newTable(buf *bytes.Buffer, align tw.Align) *tablewriter.Table {
	return tablewriter.NewTable(buf,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: align},
			},
		}),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
}

func (f *TableWriterFormatter) FormatDryRun(report Report) string {
	result := report.Result
	var output strings.Builder

	title := "Universal Connector Dry Run"
	if report.Provider != "" {
		title += " - " + report.Provider
	}
	output.WriteString(NewTableFormatter(f.noColor).titleBox(title))
	output.WriteString("\n\n")

	output.WriteString(f.formatRows(result))
	output.WriteString("\n")
	output.WriteString(f.formatSummary(result))

	if len(report.Tiers) > 0 {
		output.WriteString("\n")
		output.WriteString(f.formatTiers(report.Tiers, result))
	}
	if len(report.Breakdown) > 0 {
		output.WriteString("\n")
		output.WriteString(f.formatBreakdown(report.Breakdown, result.Currency))
	}
	if len(report.Daily) > 0 {
		output.WriteString("\n")
		output.WriteString(f.formatDaily(report.Daily, result.Currency))
	}
	if len(result.Issues) > 0 {
		output.WriteString("\n")
		output.WriteString(f.formatIssues(result.Issues))
	}

	return output.String()
}

func (f *TableWriterFormatter) formatRows(result *types.DryRunResult) string {
	var buf bytes.Buffer
	table := f.newTable(&buf, tw.AlignRight)

	labels := metadataLabels(result.Rows)
	unitHeader := "Units\n"
	if result.UnitName != "" {
		unitHeader = "Units\n(" + result.UnitName + ")"
	}
	header := []string{"ID\n", "Timestamp\n", unitHeader, "Cost\n(" + result.Currency + ")"}
	for _, label := range labels {
		header = append(header, strings.Title(label)+"\n")
	}
	table.Header(header)

	for _, row := range result.Rows {
		cells := []string{
			row.ID,
			row.Timestamp,
			formatFixed(row.Units, 3),
			formatFixed(row.Cost, 4),
		}
		for _, label := range labels {
			cell := metadataCell(row.Metadata[label])
			if cell == "" {
				cell = "-"
			}
			cells = append(cells, cell)
		}
		table.Append(cells)
	}

	footer := []string{
		"Total",
		fmt.Sprintf("%d of %d rows", len(result.Rows), result.SampleCount),
		formatFixed(result.TotalUnits, 3),
		formatFixed(result.DailyCost, 4),
	}
	for range labels {
		footer = append(footer, "")
	}
	table.Footer(footer)

	table.Render()
	return f.colorize(buf.String())
}

func (f *TableWriterFormatter) formatSummary(result *types.DryRunResult) string {
	var buf bytes.Buffer
	table := f.newTable(&buf, tw.AlignLeft)
	table.Header([]string{"Summary", ""})

	units := formatFixed(result.TotalUnits, 2)
	if result.UnitName != "" {
		units += " × " + result.UnitName
	}
	table.Append([]string{"Records in sample", fmt.Sprint(result.SampleCount)})
	table.Append([]string{"Total units", units})
	table.Append([]string{"Daily cost", FormatMoney(result.DailyCost, result.Currency)})
	table.Append([]string{
		fmt.Sprintf("Monthly estimate (×%d)", calculator.MonthlyMultiplier),
		FormatMoney(result.MonthlyCost, result.Currency),
	})
	if result.NextCursor != "" {
		table.Append([]string{"Next cursor", result.NextCursor})
	}
	table.Append([]string{"Run", result.RunID})

	table.Render()
	return f.colorize(buf.String())
}

// formatTiers shows how the whole sample volume falls into the pricing bands.
// Daily cost prices every record on its own, so the two totals only agree
// when no record crosses a band boundary.
func (f *TableWriterFormatter) formatTiers(lines []pricing.TierLine, result *types.DryRunResult) string {
	currency := result.Currency
	var buf bytes.Buffer
	table := f.newTable(&buf, tw.AlignRight)
	table.Header([]string{"Tier\n", "Up To\n", "Rate\n", "Units\n", "Subtotal\n(" + currency + ")"})

	for _, line := range lines {
		tier := fmt.Sprint(line.Index + 1)
		upTo := "∞"
		if line.Overflow {
			tier = "overflow"
			upTo = "-"
		} else if line.UpToUnits != nil {
			upTo = formatFixed(*line.UpToUnits, 0)
		}
		table.Append([]string{
			tier,
			upTo,
			jsonpath.FormatNumber(line.Rate),
			formatFixed(line.Units, 3),
			line.Subtotal.StringFixed(4),
		})
	}
	combined := pricing.Total(lines)
	table.Footer([]string{"Total", "", "", "", combined.StringFixed(4)})

	table.Render()
	out := "Pricing at total sample volume\n" + f.colorize(buf.String())
	if note := tierNote(combined, result.DailyCost, currency); note != "" {
		out += note + "\n"
	}
	return out
}

// tierNote explains a combined-volume total that differs from the daily cost
func tierNote(combined decimal.Decimal, dailyCost float64, currency string) string {
	if math.IsNaN(dailyCost) || math.IsInf(dailyCost, 0) {
		return ""
	}
	if combined.Round(4).Equal(decimal.NewFromFloat(dailyCost).Round(4)) {
		return ""
	}
	return fmt.Sprintf("Note: daily cost (%s) prices each record separately; "+
		"pricing the combined volume would cost %s.",
		FormatMoney(dailyCost, currency),
		FormatMoney(combined.InexactFloat64(), currency))
}

func (f *TableWriterFormatter) formatBreakdown(breakdown []types.UsageBreakdown, currency string) string {
	var buf bytes.Buffer
	table := f.newTable(&buf, tw.AlignRight)
	table.Header([]string{strings.Title(breakdown[0].Label) + "\n", "Rows\n", "Units\n", "Cost\n(" + currency + ")", "Share\n"})

	for _, group := range breakdown {
		table.Append([]string{
			group.Value,
			fmt.Sprint(group.RowCount),
			formatFixed(group.Units, 3),
			formatFixed(group.Cost, 4),
			formatPercent(group.CostShare),
		})
	}

	table.Render()
	return f.colorize(buf.String())
}

func (f *TableWriterFormatter) formatDaily(days []types.DailyUsage, currency string) string {
	var buf bytes.Buffer
	table := f.newTable(&buf, tw.AlignRight)
	table.Header([]string{"Date\n", "Rows\n", "Units\n", "Cost\n(" + currency + ")"})

	var rows int
	var units, cost float64
	for _, day := range days {
		rows += day.RowCount
		units += day.Units
		cost += day.Cost

		// Format date as YYYY\nMM-DD
		date := day.Date
		if parts := strings.Split(date, "-"); len(parts) == 3 {
			date = fmt.Sprintf("%s\n%s-%s", parts[0], parts[1], parts[2])
		}
		table.Append([]string{date, fmt.Sprint(day.RowCount), formatFixed(day.Units, 3), formatFixed(day.Cost, 4)})
	}
	table.Footer([]string{"Total", fmt.Sprint(rows), formatFixed(units, 3), formatFixed(cost, 4)})

	table.Render()
	return f.colorize(buf.String())
}

func (f *TableWriterFormatter) formatIssues(issues []types.ManifestError) string {
	var output strings.Builder
	yellow, reset := "\033[33m", "\033[0m"
	if f.noColor {
		yellow, reset = "", ""
	}
	output.WriteString(fmt.Sprintf("%s%d mapping issue(s):%s\n", yellow, len(issues), reset))
	for _, issue := range issues {
		output.WriteString("  - ")
		output.WriteString(issue.Error())
		output.WriteString("\n")
	}
	return output.String()
}

func formatPercent(share float64) string {
	if math.IsNaN(share) || math.IsInf(share, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(share * 100).StringFixed(1) + "%"
}

// colorize paints borders gray, the header cyan and the Total row yellow
func (f *TableWriterFormatter) colorize(tableOutput string) string {
	if f.noColor {
		return tableOutput
	}

	gray := "\033[90m"
	cyan := "\033[36m"
	yellow := "\033[33m"
	reset := "\033[0m"

	lines := strings.Split(tableOutput, "\n")
	var colored strings.Builder
	inHeader := true

	for i, line := range lines {
		if line == "" {
			if i < len(lines)-1 {
				colored.WriteString("\n")
			}
			continue
		}

		if strings.HasPrefix(line, "┌") || strings.HasPrefix(line, "├") || strings.HasPrefix(line, "└") {
			if i > 0 {
				inHeader = false
			}
			colored.WriteString(gray + line + reset)
		} else if strings.Contains(line, "│") {
			isTotal := strings.Contains(strings.ToUpper(line), "TOTAL")
			parts := strings.Split(line, "│")
			for j, part := range parts {
				if j > 0 {
					colored.WriteString(gray + "│" + reset)
				}
				switch {
				case strings.TrimSpace(part) == "":
					colored.WriteString(part)
				case inHeader:
					colored.WriteString(cyan + part + reset)
				case isTotal:
					colored.WriteString(yellow + part + reset)
				default:
					colored.WriteString(part)
				}
			}
		} else {
			colored.WriteString(line)
		}

		if i < len(lines)-1 {
			colored.WriteString("\n")
		}
	}

	return colored.String()
}
