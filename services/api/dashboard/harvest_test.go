package dashboard

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHarvest(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		want    string
		wantErr error
	}{
		{
			name:    "no artifact",
			files:   map[string]string{AnalysisFile: "{}", "report.txt": "x"},
			wantErr: ErrArtifactNotFound,
		},
		{
			name:  "single artifact",
			files: map[string]string{AnalysisFile: "{}", "dashboard_S1.html": "<html>ok</html>"},
			want:  "<html>ok</html>",
		},
		{
			name:  "extension is case insensitive",
			files: map[string]string{"Dashboard.HTML": "<html>upper</html>"},
			want:  "<html>upper</html>",
		},
		{
			name:    "more than one artifact",
			files:   map[string]string{"a.html": "a", "b.html": "b"},
			wantErr: ErrAmbiguousArtifact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, err := NewWorkspace(t.TempDir())
			require.NoError(t, err)
			for name, content := range tt.files {
				require.NoError(t, os.WriteFile(ws.Path(name), []byte(content), 0o600))
			}

			got, err := Harvest(ws)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHarvest_IgnoresDirectories(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(ws.Path("assets.html"), 0o700))

	_, err = Harvest(ws)
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}
