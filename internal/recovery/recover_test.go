package recovery

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

// TestRecoverToValue tests panic recovery around planner calls.
func TestRecoverToValue(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	got, err := RecoverToValue(logger, "ok", func() (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Errorf("got (%d, %v), want (7, nil)", got, err)
	}

	want := errors.New("boom")
	if _, err := RecoverToValue(logger, "fail", func() (int, error) { return 0, want }); err != want {
		t.Errorf("error = %v, want it unchanged", err)
	}

	got, err = RecoverToValue(logger, "Plan", func() (int, error) { panic("kaput") })
	if err == nil || !strings.Contains(err.Error(), "Plan panicked: kaput") {
		t.Errorf("error = %v, want panic error", err)
	}
	if got != 0 {
		t.Errorf("value = %d, want zero", got)
	}
}
