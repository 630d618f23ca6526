// lemon is the lemonscript driver: load a linked module, run it against
// the VM, disassemble its bytecode, or inspect a save-state file. It
// follows the teacher's flag-based single-purpose drivers (emul/main.go,
// lang/yld/main.go) but is promoted to a cobra subcommand tree since it
// needs several independent subcommands rather than one flat flag set.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "lemon",
		Short: "lemonscript module runner",
		Long:  "lemon loads linked lemonscript modules, runs them against the VM, and inspects bytecode and save states.",
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lemon v%s\n", version)
		},
	}

	root.AddCommand(versionCmd)
	root.AddCommand(newRunCmd())
	root.AddCommand(newDisasmCmd())
	root.AddCommand(newSaveInspectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
