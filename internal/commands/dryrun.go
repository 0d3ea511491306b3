package commands

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/sdpower/connector-go/internal/manifest"
	"github.com/sdpower/connector-go/internal/output"
	"github.com/sdpower/connector-go/internal/pricing"
	"github.com/sdpower/connector-go/internal/types"
	"github.com/spf13/cobra"
)

func newDryRunCommand(a *app) *cobra.Command {
	var (
		manifestPath string
		payloadPath  string
		format       string
		noColor      bool
		strict       bool
		preview      int
		breakdown    string
		daily        bool
	)

	cmd := &cobra.Command{
		Use:   "dryrun",
		Short: "Normalize and price a sample payload",
		Long: `Run a sample payload through a connector manifest: locate the records,
map id, timestamp, usage and metadata for each one, price them and project
the daily cost onto a 30-day month. Without flags the built-in Notion AI
manifest and sample payload are used. Use --payload - to read stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadManifest(manifestPath)
			if err != nil {
				return err
			}

			payload := manifest.SamplePayload()
			if payloadPath != "" {
				payloadLoader := a.loader(1)
				payloadLoader.SetStdin(cmd.InOrStdin())
				payload, err = payloadLoader.ReadPayload(payloadPath)
				if err != nil {
					return err
				}
			}

			calc := a.calculator(
				boolFlag(cmd, "strict", strict, a.cfg.DryRun.Strict),
				intFlag(cmd, "preview", preview, a.cfg.DryRun.PreviewLimit),
			)
			normalized, err := calc.Normalize(m, payload)
			if err != nil {
				return withDryRunHint(err, m)
			}
			result := calc.Summarize(m, normalized)

			report := output.Report{Provider: m.Slug, Result: result}
			if m.Pricing.Template != types.TemplateFlat && len(m.Pricing.Tiers) > 0 {
				report.Tiers = pricing.TierBreakdown(result.TotalUnits, m.Pricing)
			}
			if breakdown != "" {
				report.Breakdown = calc.Breakdown(normalized.Rows, breakdown)
			}
			if daily {
				report.Daily = calc.DailyTotals(normalized.Rows)
			}

			out, err := a.formatter(cmd, format, noColor).FormatDryRun(report)
			if err != nil {
				return errors.Wrap(err, "failed to format dry-run")
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest file (.json, .yaml); built-in manifest when empty")
	cmd.Flags().StringVarP(&payloadPath, "payload", "p", "", "Sample payload file, - for stdin; built-in sample when empty")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on the first record that needs a fallback value")
	cmd.Flags().IntVar(&preview, "preview", 5, "Number of rows to show")
	cmd.Flags().StringVar(&breakdown, "breakdown", "", "Group cost by a metadata label")
	cmd.Flags().BoolVar(&daily, "daily", false, "Group cost by calendar day")
	addFormatFlags(cmd, &format, &noColor)

	return cmd
}

func withDryRunHint(err error, m types.Manifest) error {
	switch {
	case errors.Is(err, types.ErrPayloadParse):
		return errors.WithHint(err, "pass a JSON document with --payload, or - to read stdin")
	case errors.Is(err, types.ErrRecordsPath):
		return errors.WithHintf(err, "mapping.recordsPath %q must point at the array of usage events", m.Mapping.RecordsPath)
	case errors.Is(err, types.ErrEmptyRecords):
		return errors.WithHint(err, "the sample payload needs at least one event to price")
	case errors.Is(err, types.ErrManifest):
		return errors.WithHint(err, "drop --strict to collect mapping issues instead of failing")
	}
	return err
}
