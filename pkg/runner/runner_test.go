package runner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// newShellRunner returns a runner that executes an inline shell script.
func newShellRunner(t *testing.T) *Runner {
	t.Helper()
	r, err := New("sh")
	if err != nil {
		t.Fatalf("sh not available: %v", err)
	}
	return r
}

func TestRunStreamsLines(t *testing.T) {
	r := newShellRunner(t)

	var lines []string
	out, err := r.Run(context.Background(), []string{"-c", "echo first; echo second; echo third"}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"first", "second", "third"}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("streamed lines mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, "second") {
		t.Errorf("captured output missing streamed line: %q", out)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	r := newShellRunner(t)

	out, err := r.Run(context.Background(), []string{"-c", "echo diagnostics; exit 137"}, nil)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 137 {
		t.Errorf("expected exit code 137, got %d", exitErr.Code)
	}
	if !strings.Contains(exitErr.Output, "diagnostics") {
		t.Errorf("ExitError should carry the captured output, got %q", exitErr.Output)
	}
	if !strings.Contains(out, "diagnostics") {
		t.Errorf("captured output missing, got %q", out)
	}
}

// A line that is not valid text is dropped and streaming continues with
// the following lines.
func TestRunDropsUndecodableLines(t *testing.T) {
	r := newShellRunner(t)

	var lines []string
	_, err := r.Run(context.Background(),
		[]string{"-c", `printf 'ok before\n\377\376\375\n ok after\n'`},
		func(line string) { lines = append(lines, line) })
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(lines) != 2 {
		t.Fatalf("expected 2 decoded lines, got %d: %q", len(lines), lines)
	}
	if lines[0] != "ok before" || lines[1] != " ok after" {
		t.Errorf("unexpected surviving lines: %q", lines)
	}
}

func TestRunCapturesStderr(t *testing.T) {
	r := newShellRunner(t)

	out, err := r.Run(context.Background(), []string{"-c", "echo warned >&2"}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out, "warned") {
		t.Errorf("captured output should include stderr, got %q", out)
	}
}

func TestNewMissingExecutable(t *testing.T) {
	_, err := New("definitely-not-an-installed-tool")
	if !errors.Is(err, ErrExecutableNotFound) {
		t.Fatalf("expected ErrExecutableNotFound, got %v", err)
	}
}

func TestRunContextCancellation(t *testing.T) {
	r := newShellRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx, []string{"-c", "sleep 30"}, nil)
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
