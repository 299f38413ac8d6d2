package droidbridge

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/helixml/droidbridge/api/pkg/handler"
)

func newKeyMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keymap",
		Short: "Work with key mapping profiles",
	}
	cmd.AddCommand(newKeyMapCheckCmd())
	return cmd
}

func newKeyMapCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a key mapping profile and print its bindings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := handler.LoadProfile(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "profile %q: %d bindings\n", profile.Name, len(profile.Bindings))

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Key", "Action", "Target"})
			table.SetAutoWrapText(false)
			table.SetBorder(false)

			for _, b := range profile.Bindings {
				table.Append([]string{b.Key, string(b.Action), bindingTarget(b)})
			}
			table.Render()
			return nil
		},
	}
}

func bindingTarget(b handler.Binding) string {
	switch b.Action {
	case handler.BindingTouch:
		return strconv.FormatFloat(b.X, 'f', -1, 64) + "," + strconv.FormatFloat(b.Y, 'f', -1, 64)
	case handler.BindingKeycode:
		return b.Keycode
	}
	return ""
}
