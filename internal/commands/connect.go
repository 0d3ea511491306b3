package commands

import (
	"fmt"

	"github.com/sdpower/connector-go/internal/manifest"
	"github.com/spf13/cobra"
)

func newConnectCommand(a *app) *cobra.Command {
	var (
		manifestPath string
		format       string
		noColor      bool
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Preview the connection record a manifest would create",
		Long: `Preview the connection record an application would store after accepting
the manifest. Nothing is persisted and the API key is never read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.loadManifest(manifestPath)
			if err != nil {
				return err
			}

			out, err := a.formatter(cmd, format, noColor).FormatConnection(manifest.ConnectionPreview(m, a.now()))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Manifest file (.json, .yaml); built-in manifest when empty")
	addFormatFlags(cmd, &format, &noColor)
	return cmd
}
