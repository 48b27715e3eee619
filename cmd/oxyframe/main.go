// Command oxyframe runs the demo scene on the engine and inspects saved scenes.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "oxyframe",
		Short:        "Frame-pipelined 3D engine core",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "path to a TOML config file (defaults apply when empty)")
	root.AddCommand(newRunCommand(), newInspectCommand())
	return root
}
