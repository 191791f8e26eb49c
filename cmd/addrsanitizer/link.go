package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// runtimeModulePath is the module instrumented projects depend on.
const runtimeModulePath = "github.com/kolkov/addrsanitizer"

// runtimePackagePath is the package instrumented code imports.
const runtimePackagePath = "github.com/kolkov/addrsanitizer/asan"

// runtimeInitCode is the boilerplate a program's main needs.
const runtimeInitCode = `asan.Init()
defer asan.Fini()`

// linkCommand implements 'addrsanitizer link': it finds the target
// module's go.mod, adds the runtime requirement if it is missing, and
// prints what the program's main function should contain.
func linkCommand(args []string) {
	fs := flag.NewFlagSet("link", flag.ExitOnError)
	dir := fs.String("dir", ".", "directory inside the target module")
	dryRun := fs.Bool("n", false, "print what would change without writing")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	modPath, err := findGoMod(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	changed, err := ensureRuntimeRequire(modPath, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case changed && *dryRun:
		fmt.Printf("Would add %s v%s to %s\n", runtimeModulePath, version, modPath)
	case changed:
		fmt.Printf("Added %s v%s to %s\n", runtimeModulePath, version, modPath)
	default:
		fmt.Printf("%s already requires %s\n", modPath, runtimeModulePath)
	}

	fmt.Printf("\nImport %q and start main with:\n\n%s\n", runtimePackagePath, runtimeInitCode)
}

// findGoMod walks up from startDir looking for the target module's
// go.mod.
func findGoMod(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		modPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(modPath); err == nil {
			return modPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("no go.mod found in or above %s", startDir)
}

// ensureRuntimeRequire parses the go.mod at modPath and adds the runtime
// requirement if absent. Returns whether a change was (or would be)
// made.
//
// Linking into the runtime's own module is rejected: a module cannot
// require itself.
func ensureRuntimeRequire(modPath string, dryRun bool) (bool, error) {
	data, err := os.ReadFile(modPath)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", modPath, err)
	}

	mf, err := modfile.Parse(modPath, data, nil)
	if err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", modPath, err)
	}

	if mf.Module != nil && mf.Module.Mod.Path == runtimeModulePath {
		return false, fmt.Errorf("%s is the sanitizer runtime itself", modPath)
	}

	for _, req := range mf.Require {
		if req.Mod.Path == runtimeModulePath {
			return false, nil
		}
	}

	if err := mf.AddRequire(runtimeModulePath, "v"+version); err != nil {
		return false, fmt.Errorf("failed to add requirement: %w", err)
	}
	mf.Cleanup()

	if dryRun {
		return true, nil
	}

	out, err := mf.Format()
	if err != nil {
		return false, fmt.Errorf("failed to format %s: %w", modPath, err)
	}
	if err := os.WriteFile(modPath, out, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", modPath, err)
	}
	return true, nil
}
