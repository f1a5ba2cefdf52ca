package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/amc/internal/am"
)

// LoadDir builds the CUE package in dir into a single value.
// Returns the value and the number of .cue files found.
func LoadDir(dir string) (cue.Value, int, error) {
	files, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, 0, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return cue.Value{}, 0, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, len(files), fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, len(files), formatCUEError(inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, len(files), formatCUEError(err)
	}
	return value, len(files), nil
}

// FindCUEFiles returns the .cue files directly in dir, sorted.
// Subdirectories are separate CUE packages and are not descended into.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// CompileMachines compiles every field of the top-level "machine" struct,
// in declaration order. With failFast the first error stops compilation;
// otherwise every machine that compiles is returned alongside all errors.
func CompileMachines(v cue.Value, failFast bool) ([]*am.ActorMachine, []error) {
	var (
		machines []*am.ActorMachine
		errs     []error
	)

	root := v.LookupPath(cue.ParsePath("machine"))
	if !root.Exists() {
		return nil, []error{&CompileError{Field: "machine", Message: "no machines defined", Pos: v.Pos()}}
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}
	for iter.Next() {
		m, err := CompileMachine(iter.Value())
		if err != nil {
			errs = append(errs, err)
			if failFast {
				return machines, errs
			}
			continue
		}
		machines = append(machines, m)
	}

	if len(machines) == 0 && len(errs) == 0 {
		errs = append(errs, &CompileError{Field: "machine", Message: "no machines defined", Pos: root.Pos()})
	}
	return machines, errs
}
