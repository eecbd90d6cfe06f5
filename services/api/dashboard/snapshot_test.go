package dashboard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(t *testing.T) Snapshot {
	t.Helper()
	return Snapshot{
		StationID: "S1",
		Period:    mustRange(t, "2025-04-01", "2025-04-02"),
		DailyValidation: ValidationResults{
			"2025-04-01": {
				"temperature": json.RawMessage(`{"flag":1,"mean":12.3}`),
				"oxygen":      json.RawMessage(`{"flag":4}`),
			},
			"2025-04-02": {
				"temperature": json.RawMessage(`{"status":"suspect"}`),
				"oxygen":      json.RawMessage(`{"flag":1}`),
			},
		},
		ExtendedAnalyses: json.RawMessage(`{"isolation_forest":{"anomalies":2}}`),
		Summary:          json.RawMessage(`{"total":4}`),
		ErroneousValues: []ErroneousValue{
			{Date: "2025-04-01", Parameter: "oxygen", Value: floatPtr(31.7), Flag: 4, Reason: "spike"},
		},
	}
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestWriteSnapshot_WritesFourArtifacts(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	cfg := StationConfig{Code: "S1", Name: strPtr("Krakower See"), ValidationRules: json.RawMessage(`{"temperature":{"min":0}}`)}
	require.NoError(t, WriteSnapshot(ws, sampleSnapshot(t), cfg))

	entries, err := os.ReadDir(ws.Dir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{AnalysisFile, StationConfigFile, ErrorDetailsFile, ReportFile}, names)

	analysis := readJSON(t, ws.Path(AnalysisFile))
	assert.Equal(t, "S1", analysis["station_id"])
	assert.Equal(t, map[string]any{"start": "2025-04-01", "end": "2025-04-02"}, analysis["period"])
	assert.Contains(t, analysis["daily_validation"], "2025-04-02")
	assert.Equal(t, map[string]any{"total": float64(4)}, analysis["summary"])

	station := readJSON(t, ws.Path(StationConfigFile))
	assert.Equal(t, "Krakower See", station["name"])
	assert.Equal(t, map[string]any{"temperature": map[string]any{"min": float64(0)}}, station["validation_rules"])

	details := readJSON(t, ws.Path(ErrorDetailsFile))
	assert.Equal(t, "2025-04-01 bis 2025-04-02", details["period"])
	assert.Equal(t, float64(1), details["count"])
	assert.Len(t, details["erroneous_values"], 1)
}

func TestWriteSnapshot_EmptyErroneousValuesIsArray(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)

	snap := sampleSnapshot(t)
	snap.ErroneousValues = nil
	require.NoError(t, WriteSnapshot(ws, snap, StationConfig{Code: "S1"}))

	details := readJSON(t, ws.Path(ErrorDetailsFile))
	assert.Equal(t, []any{}, details["erroneous_values"])
	assert.Equal(t, float64(0), details["count"])
}

func TestWriteSnapshot_FailsWhenWorkspaceIsGone(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, ws.Remove())

	err = WriteSnapshot(ws, sampleSnapshot(t), StationConfig{Code: "S1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), AnalysisFile)
}

func TestRenderReport(t *testing.T) {
	report, err := RenderReport(sampleSnapshot(t))
	require.NoError(t, err)

	assert.Contains(t, report, "Station S1")
	assert.Contains(t, report, "2025-04-01 bis 2025-04-02")
	assert.Contains(t, report, "temperature")
	assert.Contains(t, report, "oxygen")
	assert.Contains(t, report, "Fehlerhafte Werte (1)")
	assert.Contains(t, report, "- 2025-04-01 oxygen=31.70 flag=4 (spike)")

	again, err := RenderReport(sampleSnapshot(t))
	require.NoError(t, err)
	assert.Equal(t, report, again)
}

func TestWorkspace_RemoveIsIdempotent(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root)
	require.NoError(t, err)
	assert.Equal(t, root, filepath.Dir(ws.Dir()))

	require.NoError(t, ws.Remove())
	require.NoError(t, ws.Remove())
	_, err = os.Stat(ws.Dir())
	assert.True(t, os.IsNotExist(err))
}
