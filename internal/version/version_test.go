package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	origVersion, origCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = origVersion, origCommit })

	Version = "1.2.3"
	Commit = "abc123"

	got := String()
	if !strings.HasPrefix(got, "1.2.3 (commit abc123") {
		t.Errorf("unexpected version string %q", got)
	}
}
