package app

import (
	"os"
	"path/filepath"
)

// probeWebDir looks for a browser client bundle when CROSSBLADES_CLIENT_DIR
// is not set. It checks next to the working directory first, then next to
// the binary, so both `go run ./cmd/server` from the repo root and a
// deployed binary beside its assets find them. Returns "" when nothing is
// found; the server then serves no static files.
func probeWebDir() string {
	if cwd, err := os.Getwd(); err == nil {
		if dir, ok := resolveWebDirFrom(cwd); ok {
			return dir
		}
	}
	if exePath, err := os.Executable(); err == nil {
		if dir, ok := resolveWebDirFrom(filepath.Dir(exePath)); ok {
			return dir
		}
	}
	return ""
}

func resolveWebDirFrom(base string) (string, bool) {
	candidates := []string{
		filepath.Join(base, "web"),
		filepath.Join(base, "..", "web"),
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil || !info.IsDir() {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		return abs, true
	}
	return "", false
}
