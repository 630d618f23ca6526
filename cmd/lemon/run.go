package main

import (
	"fmt"
	"os"

	"github.com/gmofishsauce/lemonscript/internal/vm"
	"github.com/spf13/cobra"
)

// passConnector is the default host connector for the generic CLI: every
// call/return/external transfer is allowed, matching emul's CPU which
// never second-guesses a branch the decoded instruction already committed
// to (decode.go/execute.go just execute what was fetched).
type passConnector struct{}

func (passConnector) HandleCall(fn, target uint32) bool   { return true }
func (passConnector) HandleReturn() bool                  { return true }
func (passConnector) HandleExternalCall(addr uint64) bool { return true }
func (passConnector) HandleExternalJump(addr uint64) bool { return true }

func newRunCmd() *cobra.Command {
	var (
		funcName   string
		memSize    int
		traceOut   string
		step       bool
		maxSteps   int
		depHash    uint32
		appVersion uint32
	)

	cmd := &cobra.Command{
		Use:   "run <module.lmd>...",
		Short: "Run a linked module's entry function against the VM",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loadProgram(args, depHash, appVersion)
			if err != nil {
				return err
			}

			rt := vm.NewRuntime()
			rt.SetProgram(prog)
			rt.SetMemoryAccessHandler(newFlatMemory(memSize))

			if traceOut != "" {
				f, err := os.Create(traceOut)
				if err != nil {
					return fmt.Errorf("lemon: creating trace file: %w", err)
				}
				defer f.Close()
				rt.SetRuntimeDetailHandler(vm.NewTracer(f))
			}

			if err := rt.BuildAllRuntimeFunctions(); err != nil {
				return fmt.Errorf("lemon: build: %w", err)
			}

			cf := vm.NewControlFlow(rt)
			if err := rt.CallFunctionByName(cf, funcName); err != nil {
				return err
			}

			conn := passConnector{}
			if step {
				return runStepConsole(rt, cf, conn)
			}

			limit := maxSteps
			if limit == 0 {
				limit = int(^uint(0) >> 1)
			}
			res := rt.ExecuteSteps(cf, conn, limit, 0)
			fmt.Fprintf(os.Stderr, "lemon: %d steps executed, result=%v\n", res.StepsExecuted, res.Result)
			if res.Result == vm.ResultHalt {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&funcName, "func", "main", "entry function name")
	cmd.Flags().IntVar(&memSize, "mem-size", 1<<20, "flat host memory size in bytes")
	cmd.Flags().StringVar(&traceOut, "trace", "", "write an execution trace to this file")
	cmd.Flags().BoolVar(&step, "step", false, "single-step interactively instead of running to completion")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 1_000_000, "step budget before a run is treated as runaway (0 = unlimited)")
	cmd.Flags().Uint32Var(&depHash, "dep-hash", 0, "expected dependency hash the module was serialized with")
	cmd.Flags().Uint32Var(&appVersion, "app-version", 0, "expected app version the module was serialized with")

	return cmd
}
