package sendmail

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Executor runs the sendmail binary with the message on stdin.
type Executor interface {
	Execute(ctx context.Context, stdin io.Reader, args ...string) ([]byte, error)
	io.Closer
}

var _ Executor = (*CommandExecutor)(nil)

// CommandExecutor runs a local command.
type CommandExecutor struct {
	cmd    string
	closed bool
	mx     sync.RWMutex
}

func NewCommandExecutor(cmd string) *CommandExecutor {
	return &CommandExecutor{cmd: cmd}
}

// Start checks that the command exists.
func (e *CommandExecutor) Start() error {
	if _, err := exec.LookPath(e.cmd); err != nil {
		return errors.Wrapf(err, "command %s not found", e.cmd)
	}
	return nil
}

// Execute runs the command and returns its stdout. On failure the error
// carries stderr.
func (e *CommandExecutor) Execute(ctx context.Context, stdin io.Reader, args ...string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "sendmail.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("sendmail.command", e.cmd))

	e.mx.RLock()
	defer e.mx.RUnlock()

	if e.closed {
		return nil, errors.New("executor is closed")
	}

	started := time.Now()
	cmd := exec.CommandContext(ctx, e.cmd, args...)
	cmd.Stdin = stdin

	stdout, err := cmd.Output()
	if err != nil {
		var stderr []byte
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr = exitErr.Stderr
		}
		recordExecution(e.cmd, "error", time.Since(started).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stdout, errors.Wrapf(err, "command failed: %s", string(stderr))
	}

	recordExecution(e.cmd, "ok", time.Since(started).Seconds())
	span.SetStatus(codes.Ok, "")
	return stdout, nil
}

func (e *CommandExecutor) Close() error {
	e.mx.Lock()
	defer e.mx.Unlock()
	e.closed = true
	return nil
}
