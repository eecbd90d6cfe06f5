package dashboard

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is a scratch directory owned by exactly one Generate call.
type Workspace struct {
	dir string
}

// NewWorkspace creates a fresh, uniquely named directory below root. The
// workspace path is always absolute.
func NewWorkspace(root string) (*Workspace, error) {
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve scratch root %s: %w", root, err)
		}
		root = abs
	}
	dir, err := os.MkdirTemp(root, "dashboard-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

func (w *Workspace) Dir() string { return w.dir }

// Path joins name onto the workspace directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Remove deletes the workspace and everything in it. Safe to call twice.
func (w *Workspace) Remove() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("remove scratch workspace: %w", err)
	}
	return nil
}

// writeDurable writes data and fsyncs it before returning.
func (w *Workspace) writeDurable(name string, data []byte) error {
	f, err := os.OpenFile(w.Path(name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}
