package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// Files written into every workspace before the engine starts.
const (
	AnalysisFile      = "analysis.json"
	StationConfigFile = "station_config.json"
	ErrorDetailsFile  = "error_details.json"
	ReportFile        = "report.txt"
	JobFile           = "job.json"
)

type analysisDocument struct {
	StationID        string            `json:"station_id"`
	Period           DateRange         `json:"period"`
	DailyValidation  ValidationResults `json:"daily_validation"`
	ExtendedAnalyses json.RawMessage   `json:"extended_analyses"`
	Summary          json.RawMessage   `json:"summary"`
}

type errorDetailsDocument struct {
	Period          string           `json:"period"`
	Count           int              `json:"count"`
	ErroneousValues []ErroneousValue `json:"erroneous_values"`
}

// WriteSnapshot writes the analysis, station config, error detail and text
// report files. The first failure aborts; the caller removes the workspace.
func WriteSnapshot(ws *Workspace, snap Snapshot, cfg StationConfig) error {
	values := snap.ErroneousValues
	if values == nil {
		values = []ErroneousValue{}
	}

	docs := []struct {
		name string
		v    any
	}{
		{AnalysisFile, analysisDocument{
			StationID:        snap.StationID,
			Period:           snap.Period,
			DailyValidation:  snap.DailyValidation,
			ExtendedAnalyses: snap.ExtendedAnalyses,
			Summary:          snap.Summary,
		}},
		{StationConfigFile, cfg},
		{ErrorDetailsFile, errorDetailsDocument{
			Period:          snap.Period.String(),
			Count:           len(values),
			ErroneousValues: values,
		}},
	}

	for _, doc := range docs {
		data, err := json.MarshalIndent(doc.v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", doc.name, err)
		}
		if err := ws.writeDurable(doc.name, data); err != nil {
			return err
		}
	}

	report, err := RenderReport(snap)
	if err != nil {
		return err
	}
	return ws.writeDurable(ReportFile, []byte(report))
}

// QARTOD flag values as emitted by the engine.
const (
	flagPass         = 1
	flagNotEvaluated = 2
	flagSuspect      = 3
	flagFail         = 4
)

type flagCounts struct {
	pass, suspect, fail, notEvaluated int
}

// validationRecord picks the fields the report needs out of an engine record.
type validationRecord struct {
	Flag   *int   `json:"flag"`
	Status string `json:"status"`
}

func (r validationRecord) flag() int {
	if r.Flag != nil {
		return *r.Flag
	}
	switch r.Status {
	case "pass", "ok", "good":
		return flagPass
	case "suspect":
		return flagSuspect
	case "fail", "bad":
		return flagFail
	default:
		return flagNotEvaluated
	}
}

// RenderReport produces the plain-text validation report.
func RenderReport(snap Snapshot) (string, error) {
	counts := make(map[string]*flagCounts)
	for _, params := range snap.DailyValidation {
		for param, raw := range params {
			c, ok := counts[param]
			if !ok {
				c = &flagCounts{}
				counts[param] = c
			}
			var rec validationRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				c.notEvaluated++
				continue
			}
			switch rec.flag() {
			case flagPass:
				c.pass++
			case flagSuspect:
				c.suspect++
			case flagFail:
				c.fail++
			default:
				c.notEvaluated++
			}
		}
	}

	params := make([]string, 0, len(counts))
	for p := range counts {
		params = append(params, p)
	}
	sort.Strings(params)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Validierungsbericht Station %s\n", snap.StationID)
	fmt.Fprintf(&buf, "Zeitraum: %s\n", snap.Period)
	fmt.Fprintf(&buf, "Tage mit Daten: %d\n\n", len(snap.DailyValidation))

	rows := make([][]string, 0, len(params))
	for _, p := range params {
		c := counts[p]
		rows = append(rows, []string{
			p,
			strconv.Itoa(c.pass),
			strconv.Itoa(c.suspect),
			strconv.Itoa(c.fail),
			strconv.Itoa(c.notEvaluated),
		})
	}
	table := tablewriter.NewTable(&buf)
	table.Header([]string{"Parameter", "Bestanden", "Verdächtig", "Fehlerhaft", "Nicht bewertet"})
	if err := table.Bulk(rows); err != nil {
		return "", fmt.Errorf("render report table: %w", err)
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("render report table: %w", err)
	}

	fmt.Fprintf(&buf, "\nFehlerhafte Werte (%d):\n", len(snap.ErroneousValues))
	for _, v := range snap.ErroneousValues {
		value := "n/a"
		if v.Value != nil {
			value = strconv.FormatFloat(*v.Value, 'f', 2, 64)
		}
		fmt.Fprintf(&buf, "- %s %s=%s flag=%d", v.Date, v.Parameter, value, v.Flag)
		if v.Reason != "" {
			fmt.Fprintf(&buf, " (%s)", v.Reason)
		}
		buf.WriteByte('\n')
	}

	return buf.String(), nil
}
