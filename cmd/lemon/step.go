package main

import (
	"fmt"
	"os"

	"github.com/gmofishsauce/lemonscript/internal/vm"
	"golang.org/x/term"
)

// runStepConsole drives cf one opcode at a time, reading a single
// keystroke per step from stdin: space/'s' to step, 'c' to run to
// completion, 'q' to quit. It puts the terminal into raw mode so a
// keystroke doesn't need Enter, the same dance emul/main.go's
// setupTerminal/restoreTerminal pair does for its UART console, restoring
// the terminal on every return path via the deferred restore below rather
// than emul's signal-handler goroutine. In raw mode Ctrl-C arrives as an
// ordinary keystroke, not a signal, and like any other key not listed
// above it takes one step.
func runStepConsole(rt *vm.Runtime, cf *vm.ControlFlow, conn vm.ExecuteConnector) error {
	fd := int(os.Stdin.Fd())
	raw := term.IsTerminal(fd)

	var oldState *term.State
	if raw {
		var err error
		oldState, err = term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("lemon: entering raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)
	}

	fmt.Fprintf(os.Stderr, "-- step console: [space/s]tep [c]ontinue [q]uit --\r\n")

	buf := make([]byte, 1)
	total := 0
	for {
		fmt.Fprintf(os.Stderr, "[%d] > ", total)
		if raw {
			if _, err := os.Stdin.Read(buf); err != nil {
				return err
			}
		} else {
			buf[0] = 's'
		}

		switch buf[0] {
		case 'q', 'Q':
			fmt.Fprintf(os.Stderr, "\r\nquit after %d steps\r\n", total)
			return nil
		case 'c', 'C':
			res := rt.ExecuteSteps(cf, conn, 1<<30, 0)
			fmt.Fprintf(os.Stderr, "\r\ncontinued: result=%v\r\n", res.Result)
			return nil
		default:
			res := rt.ExecuteSteps(cf, conn, 1, 0)
			total++
			fmt.Fprintf(os.Stderr, "\r\ndepth=%d call_depth=%d result=%v\r\n", cf.Depth(), cf.CallDepth(), res.Result)
			if res.Result == vm.ResultHalt {
				return nil
			}
			if !raw {
				return nil
			}
		}
	}
}
