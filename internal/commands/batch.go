package commands

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/sdpower/connector-go/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newBatchCommand(a *app) *cobra.Command {
	var (
		manifestPath string
		format       string
		noColor      bool
		strict       bool
		workers      int
	)

	cmd := &cobra.Command{
		Use:   "batch PAYLOAD...",
		Short: "Dry-run many payloads against one manifest",
		Long: `Dry-run every payload file against one manifest concurrently. Directory
arguments expand to the .json files they contain. A failing payload is
reported next to the others and makes the command exit non-zero.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadManifest(manifestPath)
			if err != nil {
				return err
			}

			payloadLoader := a.loader(intFlag(cmd, "workers", workers, a.cfg.DryRun.Workers))
			payloadLoader.SetStdin(cmd.InOrStdin())
			paths, err := payloadLoader.ExpandPaths(args)
			if err != nil {
				return err
			}

			calc := a.calculator(boolFlag(cmd, "strict", strict, a.cfg.DryRun.Strict), a.cfg.DryRun.PreviewLimit)
			results, err := payloadLoader.RunBatch(cmd.Context(), calc, m, paths)
			if err != nil {
				return errors.Wrap(err, "batch interrupted")
			}

			out, err := a.formatter(cmd, format, noColor).FormatBatch(results)
			if err != nil {
				return errors.Wrap(err, "failed to format batch")
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)

			var failed int
			for _, res := range results {
				if res.Err != nil {
					failed++
				}
			}
			logging.Info("batch complete",
				zap.Int("payloads", len(results)),
				zap.Int("failed", failed))
			if failed > 0 {
				return errors.Newf("%d of %d payloads failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest file (.json, .yaml); built-in manifest when empty")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail a payload on the first record that needs a fallback value")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Maximum concurrent dry-runs")
	addFormatFlags(cmd, &format, &noColor)

	return cmd
}
