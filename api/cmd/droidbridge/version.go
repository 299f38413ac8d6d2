package droidbridge

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixml/droidbridge/api/pkg/data"
)

func newVersionCommand() *cobra.Command {
	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), data.GetVersion())
		},
	}
	return versionCmd
}
