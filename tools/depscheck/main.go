// Command depscheck fails when the sim kernel grows an import that could
// break determinism or drag the shared package into server concerns. The
// kernel must stay a pure value library: stdlib only, nothing wall-clock
// or platform dependent, no sibling packages.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

type packageInfo struct {
	ImportPath string
	Imports    []string
}

var deniedStdlib = map[string]string{
	"time":      "wall-clock time varies between runs",
	"math/rand": "unseeded randomness breaks replay",
	"os":        "environment access varies between hosts",
	"net":       "the kernel must not know about transport",
	"net/http":  "the kernel must not know about transport",
	"runtime":   "scheduler queries vary between runs",
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./sim/...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	decoder := json.NewDecoder(bytes.NewReader(output))

	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
			os.Exit(1)
		}

		for _, imp := range pkg.Imports {
			if reason, ok := forbidden(imp); ok {
				violations = append(violations, fmt.Sprintf("%s -> %s (%s)", pkg.ImportPath, imp, reason))
			}
		}
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func forbidden(imp string) (string, bool) {
	if reason, ok := deniedStdlib[imp]; ok {
		return reason, true
	}
	if strings.HasPrefix(imp, "crossblades/") && !strings.HasPrefix(imp, "crossblades/server/sim") {
		return "the kernel must not depend on server packages", true
	}
	// A dot in the first path segment marks a module fetched from a host.
	first, _, _ := strings.Cut(imp, "/")
	if strings.Contains(first, ".") {
		return "the kernel carries no third-party dependencies", true
	}
	return "", false
}
