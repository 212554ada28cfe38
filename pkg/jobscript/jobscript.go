// Package jobscript renders the single-node job script an external workload
// manager submits to run one batch: activate the runtime environment, then
// invoke the runner binary with the working root, protein list, and
// scratch/worker flags the batch needs. The engine only generates this
// text; it never submits or schedules it itself.
//
// Uses a struct-driven text/template with the Masterminds/sprig/v3 funcmap,
// rendered to a string via Execute-into-a-bytes.Buffer.
package jobscript

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Data is the set of values the generated script template fills in.
type Data struct {
	// BatchID names the batch for logging inside the generated script.
	BatchID string
	// RunnerBinary is the path to the dpamengine binary the script invokes.
	RunnerBinary string
	// WorkingRoot is the batch working directory passed to the runner.
	WorkingRoot string
	// ConfigPath is the batch configuration file passed to the runner.
	ConfigPath string
	// Layout overrides auto-detected layout, empty for auto-detect.
	Layout string
	// ScratchRoot overrides the scratch base root, empty for the adapter's
	// own discovery chain.
	ScratchRoot string
	// Workers overrides worker-pool sizing; zero means the runner's default.
	Workers int
	// EnvSetup are shell lines run before the runner invocation (module
	// loads, virtualenv activation, and similar environment setup a workload
	// manager's node needs before the runner can see its tools).
	EnvSetup []string
}

// Render fills the default script template with data and returns the
// resulting script text. The returned text is never executed by this
// package; the caller is responsible for submitting or running it.
func Render(data Data) (string, error) {
	return RenderTemplate(defaultScriptTemplate, data)
}

// RenderTemplate fills tmplContent — an alternate template string, for
// callers whose workload manager needs a different script shape than the
// default — with data.
func RenderTemplate(tmplContent string, data Data) (string, error) {
	tmpl, err := template.New("jobscript").Funcs(sprig.TxtFuncMap()).Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("parse job script template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render job script: %w", err)
	}
	return buf.String(), nil
}

const defaultScriptTemplate = `#!/bin/sh
# generated job script for batch {{ .BatchID }} — do not edit directly
set -eu

{{- range .EnvSetup }}
{{ . }}
{{- end }}

exec {{ .RunnerBinary }} run \
  --working-root {{ .WorkingRoot | quote }} \
  --config {{ .ConfigPath | quote }} \
{{- if .Layout }}
  --layout {{ .Layout }} \
{{- end }}
{{- if .ScratchRoot }}
  --scratch-root {{ .ScratchRoot | quote }} \
{{- end }}
{{- if gt .Workers 0 }}
  --workers {{ .Workers }} \
{{- end }}
  --batch-id {{ .BatchID | quote }}
`
