package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDisasmCmd() *cobra.Command {
	var depHash, appVersion uint32

	cmd := &cobra.Command{
		Use:   "disasm <module.lmd>...",
		Short: "Print every function's bytecode opcodes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loadProgram(args, depHash, appVersion)
			if err != nil {
				return err
			}
			for _, mod := range prog.Modules {
				for _, fn := range mod.Functions {
					name := prog.Strings.MustLookup(fn.Name)
					fmt.Printf("function %s (id=%d locals=%d)\n", name, fn.ID, len(fn.Locals))
					for i, op := range fn.Opcodes {
						fmt.Printf("  %4d  %-20s dtype=%-3d param=0x%x  line=%d\n",
							i, op.Type, op.DType, op.Param, op.Line)
					}
					for _, l := range fn.Labels {
						fmt.Printf("  label %s -> %d\n", prog.Strings.MustLookup(l.Name), l.Offset)
					}
				}
				for _, nf := range mod.NativeFunctions {
					fmt.Printf("native %s (id=%d)\n", prog.Strings.MustLookup(nf.Name), nf.ID)
				}
			}
			return nil
		},
	}
	cmd.Flags().Uint32Var(&depHash, "dep-hash", 0, "expected dependency hash the module was serialized with")
	cmd.Flags().Uint32Var(&appVersion, "app-version", 0, "expected app version the module was serialized with")
	return cmd
}
