// Package runner executes the external segmentation tool as a subprocess,
// streaming its standard output line by line to a caller-supplied log sink.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// LogFunc receives one line of subprocess output or one pipeline milestone
// message. It must not block indefinitely.
type LogFunc func(line string)

// Discard is a LogFunc that drops every line.
func Discard(string) {}

// ErrExecutableNotFound indicates the external tool is not installed or not
// on PATH. The remediation is installing the missing component.
var ErrExecutableNotFound = errors.New("segmentation executable not found")

// ExitError reports a subprocess that terminated with a non-zero exit code.
// Output carries the accumulated stdout and stderr text so callers can
// inspect it, e.g. for an embedded "invalid license" marker.
type ExitError struct {
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("segmentation process exited with code %d", e.Code)
}

// Runner launches the external tool. The zero value is not usable; create
// one with New so the executable is resolved up front.
type Runner struct {
	// Executable is the resolved path of the external tool.
	Executable string

	// Logger receives debug-level diagnostics. Defaults to a discard
	// logger.
	Logger *slog.Logger
}

// New resolves the executable and returns a runner for it. A missing
// executable is reported as ErrExecutableNotFound before any pipeline work
// starts.
func New(executable string) (*Runner, error) {
	path, err := exec.LookPath(executable)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrExecutableNotFound, executable)
	}
	return &Runner{
		Executable: path,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Run executes the tool with the given arguments, blocking until it exits.
//
// Each line of the child's stdout is forwarded to log as it arrives, so
// callers can display progress incrementally. Lines that are not valid text
// are dropped and streaming continues. Stderr is captured. The full
// captured output (stdout and stderr) is returned.
//
// A non-zero exit is returned as *ExitError carrying the exit code and the
// captured output.
func (r *Runner) Run(ctx context.Context, args []string, log LogFunc) (string, error) {
	if log == nil {
		log = Discard
	}

	cmd := exec.CommandContext(ctx, r.Executable, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	r.Logger.Debug("launching segmentation process",
		"executable", r.Executable, "args", strings.Join(args, " "))

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start %s: %w", r.Executable, err)
	}

	var captured strings.Builder
	var g errgroup.Group
	g.Go(func() error {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !utf8.ValidString(line) {
				// Undecodable output is non-fatal; drop the line
				// and keep reading.
				r.Logger.Debug("dropped undecodable output line")
				continue
			}
			log(line)
			captured.WriteString(line)
			captured.WriteString("\n")
		}
		return scanner.Err()
	})
	var stderrText strings.Builder
	g.Go(func() error {
		_, err := io.Copy(&stderrText, stderr)
		return err
	})

	streamErr := g.Wait()
	waitErr := cmd.Wait()

	captured.WriteString(stderrText.String())
	output := captured.String()

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return output, &ExitError{Code: exitErr.ExitCode(), Output: output}
		}
		return output, fmt.Errorf("segmentation process failed: %w", waitErr)
	}
	if streamErr != nil {
		return output, fmt.Errorf("failed to read process output: %w", streamErr)
	}
	return output, nil
}
