package dashboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShellRunner(timeout time.Duration) *Runner {
	return NewRunner("/bin/sh", timeout, nil)
}

func TestRunner_Success(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	out, err := newShellRunner(5*time.Second).Run(context.Background(), ws,
		`echo "$PYTHONIOENCODING"; pwd; echo "<html></html>" > dashboard.html`)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.Stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "utf-8", lines[0])
	assert.Equal(t, filepath.Base(ws.Dir()), filepath.Base(lines[1]))

	_, err = os.Stat(ws.Path(ScriptFile))
	assert.True(t, os.IsNotExist(err), "driver script must be removed")
	_, err = os.Stat(ws.Path("dashboard.html"))
	assert.NoError(t, err)
}

func TestRunner_RelativeInterpreterAndScratchRoot(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(".venv", "bin"), 0o755))
	require.NoError(t, os.Symlink("/bin/sh", filepath.Join(".venv", "bin", "python")))
	require.NoError(t, os.Mkdir("scratch", 0o755))

	ws, err := NewWorkspace("scratch")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(ws.Dir()))

	r := NewRunner(filepath.Join(".venv", "bin", "python"), 5*time.Second, nil)
	_, err = r.Run(context.Background(), ws, `echo "<html></html>" > dashboard.html`)
	require.NoError(t, err)

	_, err = os.Stat(ws.Path("dashboard.html"))
	assert.NoError(t, err)
}

func TestRunner_NonZeroExitCarriesStderr(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	_, err = newShellRunner(5*time.Second).Run(context.Background(), ws,
		`echo "ModuleNotFoundError: No module named 'config'" >&2; exit 1`)

	var toolErr *ExternalToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, 1, toolErr.ExitCode)
	assert.Contains(t, toolErr.Stderr, "ModuleNotFoundError")
	assert.Contains(t, err.Error(), "ModuleNotFoundError")

	_, statErr := os.Stat(ws.Path(ScriptFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunner_TimeoutKillsProcessGroup(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	started := time.Now()
	_, err = newShellRunner(200*time.Millisecond).Run(context.Background(), ws, `sleep 30 & sleep 30; wait`)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(started), 10*time.Second)
	_, statErr := os.Stat(ws.Path(ScriptFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunner_ContextCancellation(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err = newShellRunner(0).Run(ctx, ws, `sleep 30`)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_MissingInterpreter(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	_, err = NewRunner("/nonexistent/bin/python", time.Second, nil).Run(context.Background(), ws, "print(1)")

	require.Error(t, err)
	var toolErr *ExternalToolError
	assert.False(t, errors.As(err, &toolErr))
	assert.Contains(t, err.Error(), "start dashboard engine")
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{limit: 4}
	n, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	_, _ = b.Write([]byte("gh"))
	assert.Equal(t, "abcd", b.String())
}
