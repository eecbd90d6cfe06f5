package dashboard

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Harvest reads the single HTML artifact the engine left in the workspace.
func Harvest(ws *Workspace) (string, error) {
	entries, err := os.ReadDir(ws.Dir())
	if err != nil {
		return "", fmt.Errorf("list scratch workspace: %w", err)
	}

	var matches []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".html") {
			continue
		}
		matches = append(matches, e.Name())
	}

	switch len(matches) {
	case 0:
		return "", ErrArtifactNotFound
	case 1:
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%w: %s", ErrAmbiguousArtifact, strings.Join(matches, ", "))
	}

	data, err := os.ReadFile(ws.Path(matches[0]))
	if err != nil {
		return "", fmt.Errorf("read dashboard artifact: %w", err)
	}
	return string(data), nil
}
