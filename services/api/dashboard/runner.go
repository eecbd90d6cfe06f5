package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ScriptFile is the name of the disposable driver script in the workspace.
const ScriptFile = "render_dashboard.py"

const maxCapturedOutput = 1 << 20

// Executor runs a driver script inside a workspace.
type Executor interface {
	Run(ctx context.Context, ws *Workspace, script string) (RunOutput, error)
}

// RunOutput carries the captured streams of a successful run.
type RunOutput struct {
	Stdout string
	Stderr string
}

// Runner launches the external interpreter as a child process.
type Runner struct {
	interpreter string
	timeout     time.Duration
	log         *slog.Logger
}

// NewRunner returns a runner for the given interpreter. A zero timeout means
// the request context alone bounds the process. Relative interpreter paths
// are resolved against the current directory, since the child runs inside
// the workspace.
func NewRunner(interpreter string, timeout time.Duration, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	if strings.ContainsRune(interpreter, filepath.Separator) && !filepath.IsAbs(interpreter) {
		if abs, err := filepath.Abs(interpreter); err == nil {
			interpreter = abs
		}
	}
	return &Runner{interpreter: interpreter, timeout: timeout, log: log}
}

// Run writes the script, executes it and removes the script again. The whole
// process group is killed when the timeout or ctx expires.
func (r *Runner) Run(ctx context.Context, ws *Workspace, script string) (RunOutput, error) {
	if err := ws.writeDurable(ScriptFile, []byte(script)); err != nil {
		return RunOutput{}, err
	}
	scriptPath := ws.Path(ScriptFile)
	defer func() {
		if err := os.Remove(scriptPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.log.Warn("remove driver script", "path", scriptPath, "error", err)
		}
	}()

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.interpreter, scriptPath)
	cmd.Dir = ws.Dir()
	cmd.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8")
	cmd.WaitDelay = 2 * time.Second
	configureProcessGroup(cmd)

	stdout := &cappedBuffer{limit: maxCapturedOutput}
	stderr := &cappedBuffer{limit: maxCapturedOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	started := time.Now()
	err := cmd.Run()
	out := RunOutput{Stdout: stdout.String(), Stderr: stderr.String()}

	switch {
	case ctx.Err() != nil:
		return out, fmt.Errorf("dashboard engine cancelled: %w", ctx.Err())
	case runCtx.Err() != nil:
		return out, fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, &ExternalToolError{ExitCode: exitErr.ExitCode(), Stderr: out.Stderr}
		}
		return out, fmt.Errorf("start dashboard engine %s: %w", r.interpreter, err)
	}

	r.log.Debug("dashboard engine finished",
		"interpreter", r.interpreter,
		"duration", time.Since(started),
		"artifact", strings.TrimSpace(out.Stdout))
	return out, nil
}

// cappedBuffer keeps at most limit bytes and silently drops the rest so a
// chatty engine cannot exhaust memory.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string { return b.buf.String() }
