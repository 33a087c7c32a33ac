package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/render"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			out := cmd.OutOrStdout()

			switch format {
			case "":
				_, err := fmt.Fprintln(out, info.String())

				return err
			case string(render.FormatJSON):
				return render.JSON(out, info)
			case string(render.FormatYAML):
				return render.YAML(out, info)
			default:
				return fmt.Errorf("%w: %q", render.ErrUnknownFormat, format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format (json, yaml)")

	return cmd
}
