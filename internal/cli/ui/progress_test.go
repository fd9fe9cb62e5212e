package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSpinnerStartStop(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinner(&buf, SpinnerOptions{
		Message:  "Starting companion",
		NoColor:  true,
		Interval: 10 * time.Millisecond,
	})

	spinner.Start()
	time.Sleep(50 * time.Millisecond)
	spinner.Stop()

	if !strings.Contains(buf.String(), "Starting companion") {
		t.Errorf("expected spinner message, got: %q", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "\r\033[K") {
		t.Error("expected spinner to clear the line on stop")
	}

	// stopping twice is a no-op
	spinner.Stop()
}

func TestSpinnerSuccessAndError(t *testing.T) {
	var buf bytes.Buffer
	spinner := NewSpinner(&buf, SpinnerOptions{NoColor: true, Interval: 10 * time.Millisecond})
	spinner.Start()
	spinner.Success("Registry ready")
	if !strings.Contains(buf.String(), "✓ Registry ready") {
		t.Errorf("expected success message, got %q", buf.String())
	}

	buf.Reset()
	spinner.Start()
	spinner.Error("Registry unavailable")
	if !strings.Contains(buf.String(), "❌ Registry unavailable") {
		t.Errorf("expected error message, got %q", buf.String())
	}
}

func TestWithSpinner(t *testing.T) {
	var buf bytes.Buffer
	if err := WithSpinner(&buf, "Weaving", true, func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "✓ Weaving") {
		t.Errorf("expected success line, got %q", buf.String())
	}

	buf.Reset()
	boom := errors.New("boom")
	if err := WithSpinner(&buf, "Weaving", true, func() error { return boom }); err != boom {
		t.Fatalf("expected boom, got %v", err)
	}
	if !strings.Contains(buf.String(), "Weaving failed") {
		t.Errorf("expected failure line, got %q", buf.String())
	}
}
