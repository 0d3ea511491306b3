package commands

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/sdpower/connector-go/internal/manifest"
	"github.com/sdpower/connector-go/internal/output"
	"github.com/sdpower/connector-go/internal/types"
	"github.com/spf13/cobra"
)

func newManifestCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Create, show and validate connector manifests",
	}

	cmd.AddCommand(
		newManifestInitCommand(a),
		newManifestShowCommand(a),
		newManifestValidateCommand(a),
	)
	return cmd
}

func newManifestInitCommand(a *app) *cobra.Command {
	var (
		format  string
		outPath string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Print the built-in Notion AI manifest as a starting point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath != "" && !cmd.Flags().Changed("format") {
				format = string(manifest.FormatFromPath(outPath))
			}
			data, err := manifest.Export(manifest.Default(), manifest.Format(format))
			if err != nil {
				return err
			}

			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if _, err := os.Stat(outPath); err == nil && !force {
				return errors.WithHint(errors.Newf("%s already exists", outPath), "pass --force to overwrite it")
			}
			if err := os.WriteFile(outPath, data, 0644); err != nil {
				return errors.Wrapf(err, "failed to write %s", outPath)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Manifest format (json, yaml)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newManifestShowCommand(a *app) *cobra.Command {
	var (
		manifestPath string
		format       string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a manifest after parsing, e.g. to convert between JSON and YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadManifest(manifestPath)
			if err != nil {
				return err
			}
			data, err := manifest.Export(m, manifest.Format(format))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest file (.json, .yaml); built-in manifest when empty")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, yaml)")
	return cmd
}

type validationReport struct {
	Slug     string                  `json:"slug" yaml:"slug"`
	Valid    bool                    `json:"valid" yaml:"valid"`
	Problems []types.ValidationError `json:"problems" yaml:"problems"`
}

func newManifestValidateCommand(a *app) *cobra.Command {
	var (
		manifestPath string
		format       string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Report problems in a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := manifest.Default()
			if manifestPath != "" {
				loaded, err := manifest.Load(manifestPath)
				if err != nil {
					return err
				}
				m = loaded
			}

			problems := manifest.Validate(m)
			if err := printValidation(cmd, format, m.Slug, problems); err != nil {
				return err
			}
			if len(problems) == 0 {
				return nil
			}
			return errors.WithHint(
				errors.Newf("%d manifest problem(s)", len(problems)),
				"dry-runs still accept this manifest; tiered pricing falls back to the flat rate when no tiers are set")
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest file (.json, .yaml); built-in manifest when empty")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json, yaml)")
	return cmd
}

func printValidation(cmd *cobra.Command, format, slug string, problems []types.ValidationError) error {
	report := validationReport{Slug: slug, Valid: len(problems) == 0, Problems: problems}
	if report.Problems == nil {
		report.Problems = []types.ValidationError{}
	}

	formatter := output.NewFormatter(output.FormatterOptions{Format: format})
	var (
		text string
		err  error
	)
	switch format {
	case "json":
		text, err = formatter.FormatJSON(report)
		text += "\n"
	case "yaml":
		text, err = formatter.FormatYAML(report)
	case "text", "":
		if report.Valid {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: manifest is valid\n", slug)
			return nil
		}
		for _, problem := range problems {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s: %s\n", problem.Field, problem.Message)
		}
		return nil
	default:
		return errors.WithHint(errors.Newf("unsupported format %q", format), "use text, json or yaml")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), text)
	return err
}
