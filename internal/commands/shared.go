package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sdpower/connector-go/internal/calculator"
	"github.com/sdpower/connector-go/internal/config"
	"github.com/sdpower/connector-go/internal/loader"
	"github.com/sdpower/connector-go/internal/logging"
	"github.com/sdpower/connector-go/internal/manifest"
	"github.com/sdpower/connector-go/internal/output"
	"github.com/sdpower/connector-go/internal/pricing"
	"github.com/sdpower/connector-go/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once the root pre-run has loaded
// the configuration.
type app struct {
	version    string
	configPath string
	verbose    bool
	cfg        *config.Config
	// now is swapped in tests
	now func() time.Time
}

func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(&app{version: version, now: time.Now})
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "connector",
		Short: "Universal connector dry-run tool",
		Long: `Map a sample usage payload through a declarative connector manifest,
price every record and estimate the monthly cost, without calling the provider.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default ./connector.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newDryRunCommand(a),
		newBatchCommand(a),
		newManifestCommand(a),
		newConnectCommand(a),
		newWatchCommand(a),
		newVersionCommand(a),
	)
	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		return errors.Wrap(err, "failed to initialize logging")
	}
	a.cfg = cfg
	return nil
}

func (a *app) calculator(strict bool, preview int) *calculator.Calculator {
	return calculator.New(pricing.NewService(), calculator.Options{
		Now:          a.now,
		PreviewLimit: preview,
		Strict:       strict,
	})
}

func (a *app) loader(workers int) *loader.Loader {
	return loader.New(workers)
}

// loadManifest falls back to the built-in manifest when path is empty and
// logs validation problems without failing.
func (a *app) loadManifest(path string) (types.Manifest, error) {
	m := manifest.Default()
	if path != "" {
		loaded, err := manifest.Load(path)
		if err != nil {
			return m, err
		}
		m = loaded
	}

	for _, problem := range manifest.Validate(m) {
		logging.Warn("manifest problem",
			zap.String("provider", m.Slug),
			zap.String("field", problem.Field),
			zap.String("message", problem.Message))
	}
	return m, nil
}

func (a *app) formatter(cmd *cobra.Command, format string, noColor bool) *output.Formatter {
	if !cmd.Flags().Changed("format") {
		format = a.cfg.Output.Format
	}
	if !cmd.Flags().Changed("no-color") {
		noColor = a.cfg.Output.NoColor
	}
	return output.NewFormatter(output.FormatterOptions{Format: format, NoColor: noColor})
}

func intFlag(cmd *cobra.Command, name string, value, configured int) int {
	if cmd.Flags().Changed(name) {
		return value
	}
	return configured
}

func boolFlag(cmd *cobra.Command, name string, value, configured bool) bool {
	if cmd.Flags().Changed(name) {
		return value
	}
	return configured
}

func addFormatFlags(cmd *cobra.Command, format *string, noColor *bool) {
	cmd.Flags().StringVarP(format, "format", "f", "table", "Output format (table, json, csv, yaml)")
	cmd.Flags().BoolVar(noColor, "no-color", false, "Disable colored output")
}

// PrintError writes err and any hints attached to it
func PrintError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}
