package commands

import (
	"time"

	"github.com/sdpower/connector-go/internal/monitor"
	"github.com/spf13/cobra"
)

func newWatchCommand(a *app) *cobra.Command {
	var (
		manifestPath string
		payloadPath  string
		breakdown    string
		noColor      bool
		strict       bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the dry-run whenever the manifest or payload changes",
		Long:  `Show a live dry-run that refreshes each time the manifest or sample payload is saved.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mon := monitor.New(monitor.Options{
				ManifestPath:   manifestPath,
				PayloadPath:    payloadPath,
				Debounce:       time.Duration(a.cfg.Watch.DebounceMS) * time.Millisecond,
				NoColor:        boolFlag(cmd, "no-color", noColor, a.cfg.Output.NoColor),
				BreakdownLabel: breakdown,
			}, a.calculator(boolFlag(cmd, "strict", strict, a.cfg.DryRun.Strict), a.cfg.DryRun.PreviewLimit), a.loader(1))

			return mon.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest file to watch; built-in manifest when empty")
	cmd.Flags().StringVarP(&payloadPath, "payload", "p", "", "Sample payload file to watch; built-in sample when empty")
	cmd.Flags().StringVar(&breakdown, "breakdown", "", "Metadata label for the cost bars")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on the first record that needs a fallback value")
	return cmd
}
