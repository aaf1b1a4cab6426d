package adapters

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"netstate-agent/internal/domain/errors"
	"netstate-agent/internal/domain/interfaces"
)

// RealCommandExecutor runs nmcli and nmstatectl on the host. Output is
// parsed by the caller, so the locale is pinned to C.
type RealCommandExecutor struct {
	logger *logrus.Logger
}

// NewRealCommandExecutor creates a new RealCommandExecutor
func NewRealCommandExecutor(logger *logrus.Logger) interfaces.CommandExecutor {
	return &RealCommandExecutor{logger: logger}
}

// Execute runs a command and returns its standard output
func (e *RealCommandExecutor) Execute(ctx context.Context, command string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	commandLine := strings.TrimSpace(command + " " + strings.Join(args, " "))
	start := time.Now()
	err := cmd.Run()
	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"command":  commandLine,
			"duration": time.Since(start).String(),
		}).Debug("command finished")
	}
	if err == nil {
		return stdout.Bytes(), nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return nil, errors.NewSystemError(
		fmt.Sprintf("command failed: %s (exit code %d)", commandLine, exitCode),
		fmt.Errorf("%w, stderr: %s", err, strings.TrimSpace(stderr.String())),
	)
}

// ExecuteWithTimeout runs a command bounded by timeout
func (e *RealCommandExecutor) ExecuteWithTimeout(ctx context.Context, timeout time.Duration, command string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := e.Execute(ctx, command, args...)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return nil, errors.NewTimeoutError(
			fmt.Sprintf("command timed out after %v: %s %s", timeout, command, strings.Join(args, " ")),
		)
	}
	return output, err
}
