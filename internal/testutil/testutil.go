// Package testutil provides shared skip helpers for integration tests.
//
// Each helper calls t.Skip with a clear human-readable reason when the named
// prerequisite is absent, so integration tests remain runnable in partial
// environments without failing noisily.
//
// Typical usage:
//
//	func TestCommandBackend(t *testing.T) {
//	    cat := testutil.RequireCommand(t, "cat")
//	    ...
//	}
package testutil

import (
	"os"
	"os/exec"
	"testing"
)

// BackendCommandEnv names the variable pointing integration tests at a real
// line-oriented phonemizer.
const BackendCommandEnv = "PHONEPUNCT_TEST_BACKEND_COMMAND"

// RequireCommand skips the test if name cannot be resolved in PATH and
// returns the resolved path otherwise.
func RequireCommand(tb testing.TB, name string) string {
	tb.Helper()

	path, err := exec.LookPath(name)
	if err != nil {
		tb.Skipf("%s not available (%q not in PATH)", name, name)
		return ""
	}

	return path
}

// RequireBackendCommand skips the test unless BackendCommandEnv names an
// executable. The returned path is suitable for backend.NewCommand.
func RequireBackendCommand(tb testing.TB) string {
	tb.Helper()

	exe := os.Getenv(BackendCommandEnv)
	if exe == "" {
		tb.Skipf("no phonemizer configured; set %s to run against a real backend", BackendCommandEnv)
		return ""
	}

	path, err := exec.LookPath(exe)
	if err != nil {
		tb.Skipf("phonemizer %q not available: %v", exe, err)
		return ""
	}

	return path
}
