package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/gmofishsauce/lemonscript/internal/strtab"
	"github.com/spf13/cobra"
)

// saveReader mirrors internal/vm/savestate.go's writer, read-side, for
// inspection purposes only — it never reconstructs a runnable ControlFlow
// (that's Runtime.Load's job), it just walks the same field layout and
// prints it.
type saveReader struct {
	r   io.Reader
	err error
}

func (x *saveReader) u16() uint16 {
	var b [2]byte
	x.read(b[:])
	return binary.LittleEndian.Uint16(b[:])
}
func (x *saveReader) u32() uint32 {
	var b [4]byte
	x.read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}
func (x *saveReader) u64() uint64 {
	var b [8]byte
	x.read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}
func (x *saveReader) i64() int64 { return int64(x.u64()) }

func (x *saveReader) read(b []byte) {
	if x.err != nil {
		return
	}
	_, x.err = io.ReadFull(x.r, b)
}

func newSaveInspectCmd() *cobra.Command {
	var modulePath string

	cmd := &cobra.Command{
		Use:   "save-inspect <save-file>",
		Short: "Print the structure of a save-state file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var names *strtab.Table
			if modulePath != "" {
				prog, err := loadProgram([]string{modulePath}, 0, 0)
				if err != nil {
					return err
				}
				names = prog.Strings
			}
			resolve := func(h strtab.Handle) string {
				if names != nil {
					if s, ok := names.Lookup(h); ok {
						return s
					}
				}
				return fmt.Sprintf("#%016x", uint64(h))
			}

			magic := make([]byte, 4)
			if _, err := io.ReadFull(f, magic); err != nil {
				return err
			}
			if string(magic) != "LMN|" {
				return fmt.Errorf("lemon: not a save file (bad magic %q)", magic)
			}

			x := &saveReader{r: f}
			version := x.u16()
			fmt.Printf("save format version 0x%02x\n", version)

			frameCount := x.u32()
			fmt.Printf("call stack: %d frame(s)\n", frameCount)
			for i := uint32(0); i < frameCount; i++ {
				name := strtab.Handle(x.u64())
				sigHash := x.u32()
				pc := x.u32()
				localCount := x.u32()
				fmt.Printf("  [%d] func=%s sighash=0x%08x pc=%d locals=%d\n", i, resolve(name), sigHash, pc, localCount)
				for j := uint32(0); j < localCount; j++ {
					fmt.Printf("       local[%d] = %d\n", j, x.i64())
				}
			}

			valueDepth := x.u32()
			fmt.Printf("value stack: %d cell(s)\n", valueDepth)
			for i := uint32(0); i < valueDepth; i++ {
				fmt.Printf("  [%d] = 0x%016x\n", i, x.u64())
			}

			globalCount := x.u32()
			fmt.Printf("globals: %d\n", globalCount)
			for i := uint32(0); i < globalCount; i++ {
				name := strtab.Handle(x.u64())
				val := x.u64()
				fmt.Printf("  %s = 0x%016x\n", resolve(name), val)
			}

			if x.err != nil {
				return fmt.Errorf("lemon: truncated save file: %w", x.err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modulePath, "module", "", "linked module to resolve name hashes against (optional)")
	return cmd
}
