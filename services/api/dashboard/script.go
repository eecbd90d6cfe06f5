package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"text/template"
)

// Job is the typed contract between the API and the engine script. It is
// serialised to JobFile so that no request data is spliced into source text.
type Job struct {
	StationID         string       `json:"station_id"`
	AnalysisFile      string       `json:"analysis_file"`
	StationConfigFile string       `json:"station_config_file"`
	Station           StationEntry `json:"station"`
	CustomRange       *CustomRange `json:"custom_range"`
}

// CustomRange marks an analysis as covering a caller-chosen window.
type CustomRange struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	IsCustom bool   `json:"isCustom"`
}

// NewJob derives the engine job for one request.
func NewJob(req Request, cfg StationConfig) Job {
	job := Job{
		StationID:         req.StationID,
		AnalysisFile:      AnalysisFile,
		StationConfigFile: StationConfigFile,
		Station:           cfg.RegistryEntry(),
	}
	if req.Flexible && req.Range != nil {
		job.CustomRange = &CustomRange{Start: req.Range.Start(), End: req.Range.End(), IsCustom: true}
	}
	return job
}

// WriteJob persists the job next to the snapshot files.
func WriteJob(ws *Workspace, job Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", JobFile, err)
	}
	return ws.writeDurable(JobFile, data)
}

// Synthesizer produces the script the interpreter runs inside a workspace.
type Synthesizer interface {
	Script(job Job) (string, error)
}

var modulePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// PythonSynthesizer renders the driver script for the external engine.
type PythonSynthesizer struct {
	enginePath      string
	configModule    string
	generatorModule string
}

// NewPythonSynthesizer validates the module names up front; they are the only
// values that end up in the script text.
func NewPythonSynthesizer(enginePath, configModule, generatorModule string) (*PythonSynthesizer, error) {
	for _, m := range []string{configModule, generatorModule} {
		if !modulePattern.MatchString(m) {
			return nil, fmt.Errorf("invalid engine module name %q", m)
		}
	}
	return &PythonSynthesizer{
		enginePath:      enginePath,
		configModule:    configModule,
		generatorModule: generatorModule,
	}, nil
}

var driverTemplate = template.Must(template.New("driver").Funcs(template.FuncMap{
	"pyString": func(s string) (string, error) {
		b, err := json.Marshal(s)
		return string(b), err
	},
}).Parse(`import json
import os
import sys

WORKSPACE = os.getcwd()
sys.path.insert(0, WORKSPACE)
{{- if .EnginePath}}
sys.path.insert(0, {{pyString .EnginePath}})
{{- end}}


def load(name):
    with open(os.path.join(WORKSPACE, name), encoding="utf-8") as fh:
        return json.load(fh)


job = load({{pyString .JobFile}})
station_config = load(job["station_config_file"])

import {{.ConfigModule}} as engine_config

rules = station_config.get("validation_rules")
if isinstance(rules, dict):
    engine_config.VALIDATION_RULES.update(rules)
engine_config.STATIONS[job["station_id"]] = job["station"]

from {{.GeneratorModule}} import generate_html_dashboard

analysis = load(job["analysis_file"])
custom = job.get("custom_range")
if custom:
    period = analysis.get("period") or {}
    period.update(custom)
    analysis["period"] = period

path = generate_html_dashboard(analysis, WORKSPACE, job["station_id"])
print(path)
`))

// Script renders the driver. The job itself is read from JobFile at run time.
func (p *PythonSynthesizer) Script(_ Job) (string, error) {
	var buf bytes.Buffer
	err := driverTemplate.Execute(&buf, struct {
		EnginePath      string
		JobFile         string
		ConfigModule    string
		GeneratorModule string
	}{p.enginePath, JobFile, p.configModule, p.generatorModule})
	if err != nil {
		return "", fmt.Errorf("render driver script: %w", err)
	}
	return buf.String(), nil
}
