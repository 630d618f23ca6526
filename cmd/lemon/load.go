package main

import (
	"fmt"
	"os"

	"github.com/gmofishsauce/lemonscript/internal/datatype"
	"github.com/gmofishsauce/lemonscript/internal/lmmodule"
	"github.com/gmofishsauce/lemonscript/internal/strtab"
)

// loadProgram deserializes every module file in paths into one linked
// Program, sharing a single string table and data-type registry across all
// of them the way lang/yld merges multiple .wo object files into one
// linked executable.
func loadProgram(paths []string, depHash, appVersion uint32) (*lmmodule.Program, error) {
	strs := strtab.New()
	types := datatype.NewRegistry(strs)
	prog := lmmodule.NewProgram(strs, types)

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("lemon: opening %s: %w", path, err)
		}
		mod, err := lmmodule.Deserialize(f, strs, types, depHash, appVersion)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("lemon: loading %s: %w", path, err)
		}
		prog.AddModule(mod)
	}
	return prog, nil
}
