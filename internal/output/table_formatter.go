package output

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sdpower/connector-go/internal/types"
)

// TableFormatter renders the smaller lipgloss panels: titles, batch
// summaries and connection previews.
type TableFormatter struct {
	noColor bool
}

func NewTableFormatter(noColor bool) *TableFormatter {
	return &TableFormatter{noColor: noColor}
}

func (f *TableFormatter) styles() (title, header, border, failed lipgloss.Style) {
	if f.noColor {
		plain := lipgloss.NewStyle()
		return plain, plain, plain, plain
	}
	title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	header = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	border = lipgloss.NewStyle().Foreground(lipgloss.Color("90"))
	failed = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	return
}

func (f *TableFormatter) titleBox(text string) string {
	title, _, _, _ := f.styles()
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1, 2).
		MarginLeft(1)
	return title.Render(box.Render(text))
}

func (f *TableFormatter) FormatBatch(results []types.BatchResult) string {
	var output strings.Builder
	_, headerStyle, borderStyle, failedStyle := f.styles()

	output.WriteString(f.titleBox(fmt.Sprintf("Batch Dry Run - %d payload(s)", len(results))))
	output.WriteString("\n\n")

	output.WriteString(headerStyle.Render(fmt.Sprintf("%-28s %8s %14s %14s %16s", "Payload", "Records", "Units", "Daily", "Monthly")))
	output.WriteString("\n")
	output.WriteString(borderStyle.Render(strings.Repeat("─", 84)))
	output.WriteString("\n")

	var succeeded int
	var monthly float64
	currency := ""
	for _, res := range results {
		name := truncateString(filepath.Base(res.Path), 28)
		if res.Result == nil {
			output.WriteString(fmt.Sprintf("%-28s ", name))
			output.WriteString(failedStyle.Render(res.Error))
			output.WriteString("\n")
			continue
		}

		r := res.Result
		succeeded++
		monthly += r.MonthlyCost
		if currency == "" {
			currency = r.Currency
		}
		output.WriteString(fmt.Sprintf("%-28s %8d %14s %14s %16s\n",
			name,
			r.SampleCount,
			formatFixed(r.TotalUnits, 2),
			FormatMoney(r.DailyCost, r.Currency),
			FormatMoney(r.MonthlyCost, r.Currency),
		))
	}

	output.WriteString(borderStyle.Render(strings.Repeat("─", 84)))
	output.WriteString("\n")
	output.WriteString(fmt.Sprintf("%d succeeded, %d failed", succeeded, len(results)-succeeded))
	if succeeded > 0 {
		output.WriteString(fmt.Sprintf(", combined monthly estimate %s", FormatMoney(monthly, currency)))
	}
	output.WriteString("\n")

	return output.String()
}

func (f *TableFormatter) FormatConnection(record types.ConnectionRecord) string {
	var output strings.Builder
	_, headerStyle, _, _ := f.styles()

	output.WriteString(f.titleBox(record.DisplayName))
	output.WriteString("\n\n")

	fields := [][2]string{
		{"ID", record.ID},
		{"Provider", record.Provider},
		{"Environment", record.Environment},
		{"Status", record.Status},
		{"Masked key", record.MaskedKey},
		{"Created", record.CreatedAt.Format("2006-01-02 15:04:05 MST")},
	}
	for _, field := range fields {
		output.WriteString(headerStyle.Render(fmt.Sprintf("%-12s", field[0])))
		output.WriteString(" ")
		output.WriteString(field[1])
		output.WriteString("\n")
	}
	return output.String()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
