package monitor

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/sdpower/connector-go/internal/calculator"
	"github.com/sdpower/connector-go/internal/output"
	"github.com/sdpower/connector-go/internal/types"
)

var (
	cheapColor     = colorful.Color{R: 0.18, G: 0.80, B: 0.44}
	expensiveColor = colorful.Color{R: 0.91, G: 0.30, B: 0.24}
)

func (m model) View() string {
	noColor := m.monitor.options.NoColor

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	if noColor {
		headerStyle = lipgloss.NewStyle()
		errorStyle = lipgloss.NewStyle()
		dimStyle = lipgloss.NewStyle()
	}

	title := "Universal Connector - live dry run"
	if m.snap.Provider != "" {
		title += " (" + m.snap.Provider + ")"
	}
	content := headerStyle.Render(title)
	content += "\n\n"

	if m.runs == 0 {
		return content + "Running dry-run..."
	}

	if m.snap.Err != nil {
		content += errorStyle.Render("Error: " + m.snap.Err.Error())
		content += "\n\n"
		content += dimStyle.Render(m.footer())
		return content
	}

	content += m.renderSummary(m.snap.Result, noColor)
	content += "\n\n"
	content += m.renderRows(m.snap.Result)

	if len(m.snap.Breakdown) > 0 {
		content += "\n"
		content += m.renderBreakdown(m.snap.Breakdown, m.snap.Result.Currency, noColor)
	}

	if n := len(m.snap.Result.Issues) + len(m.snap.Problems); n > 0 {
		content += "\n"
		content += errorStyle.Render(fmt.Sprintf("%d mapping issue(s), %d manifest problem(s)",
			len(m.snap.Result.Issues), len(m.snap.Problems)))
		content += "\n"
	}

	content += "\n"
	content += dimStyle.Render(m.footer())
	return content
}

func (m model) footer() string {
	return fmt.Sprintf("Run %d at %s  -  press 'r' to re-run, 'q' to quit",
		m.runs, m.snap.At.Format("15:04:05"))
}

func (m model) renderSummary(result *types.DryRunResult, noColor bool) string {
	summaryStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
	if noColor {
		summaryStyle = lipgloss.NewStyle()
	}

	summary := fmt.Sprintf(
		"Records: %d\nTotal units: %.2f %s\nDaily cost: %s\nMonthly estimate (×%d): %s",
		result.SampleCount,
		result.TotalUnits,
		result.UnitName,
		output.FormatMoney(result.DailyCost, result.Currency),
		calculator.MonthlyMultiplier,
		output.FormatMoney(result.MonthlyCost, result.Currency),
	)
	if result.NextCursor != "" {
		summary += "\nNext cursor: " + result.NextCursor
	}
	return summaryStyle.Render(summary)
}

func (m model) renderRows(result *types.DryRunResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-20s %-26s %12s %12s\n", "ID", "Timestamp", "Units", "Cost"))
	b.WriteString(strings.Repeat("─", 73))
	b.WriteString("\n")
	for _, row := range result.Rows {
		b.WriteString(fmt.Sprintf("%-20s %-26s %12.3f %12.4f\n",
			truncate(row.ID, 20), truncate(row.Timestamp, 26), row.Units, row.Cost))
	}
	if hidden := result.SampleCount - len(result.Rows); hidden > 0 {
		b.WriteString(fmt.Sprintf("... %d more record(s) counted in the totals\n", hidden))
	}
	return b.String()
}

func (m model) renderBreakdown(breakdown []types.UsageBreakdown, currency string, noColor bool) string {
	barWidth := 30
	if m.width > 100 {
		barWidth = 45
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Cost by %s\n", breakdown[0].Label))
	for _, group := range breakdown {
		b.WriteString(fmt.Sprintf("%-20s %s %6.1f%%  %s\n",
			truncate(group.Value, 20),
			renderCostBar(group.CostShare, barWidth, noColor),
			group.CostShare*100,
			output.FormatMoney(group.Cost, currency)))
	}
	return b.String()
}

// costColor blends from green to red as share goes from 0 to 1
func costColor(share float64) colorful.Color {
	if math.IsNaN(share) || share < 0 {
		share = 0
	}
	if share > 1 {
		share = 1
	}
	return cheapColor.BlendLab(expensiveColor, share).Clamped()
}

func renderCostBar(share float64, width int, noColor bool) string {
	if math.IsNaN(share) || share < 0 {
		share = 0
	}
	filled := int(math.Round(share * float64(width)))
	if filled > width {
		filled = width
	}

	if noColor {
		return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
	}

	filledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(costColor(share).Hex()))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	return "[" + filledStyle.Render(strings.Repeat("█", filled)) + emptyStyle.Render(strings.Repeat("░", width-filled)) + "]"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
