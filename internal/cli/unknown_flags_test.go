package cli

import (
	"errors"
	"strings"
	"testing"
)

func TestUnknownFlag_ShowsHelpAndUsageError(t *testing.T) {
	t.Parallel()
	for _, sub := range []string{"serve", "routes", "check", "scaffold", "init"} {
		_, err := runRoot(t, sub, "--unknown-flag")
		if err == nil {
			t.Fatalf("%s: expected error for unknown flag", sub)
		}
		if _, ok := err.(usageError); !ok {
			t.Fatalf("%s: expected usage error, got %T: %v", sub, err, err)
		}
		if !strings.Contains(err.Error(), "unknown flag") || !strings.Contains(err.Error(), "Usage:") {
			t.Fatalf("%s: unexpected error text: %v", sub, err)
		}
		if code := ExitCode(err); code != 2 {
			t.Fatalf("%s: exit code: got %d want 2", sub, code)
		}
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()
	if got := ExitCode(nil); got != 0 {
		t.Fatalf("nil: got %d", got)
	}
	if got := ExitCode(errors.New("boom")); got != 1 {
		t.Fatalf("plain error: got %d", got)
	}
	if got := ExitCode(ErrCheckFailed); got != 1 {
		t.Fatalf("check failure: got %d", got)
	}
}
