package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv expands environment variables in melvin.yaml content using Go
// template syntax ({{.VAR_NAME}}). Literal $ characters pass through
// untouched, so endpoint paths and header values never need escaping.
//
// Missing variables expand to empty string; validation catches required
// fields that end up empty. Malformed template syntax returns the input
// unchanged so plain YAML always passes through.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("melvin").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	envMap := make(map[string]string)
	for _, kv := range os.Environ() {
		if idx := strings.IndexByte(kv, '='); idx > 0 {
			envMap[kv[:idx]] = kv[idx+1:]
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, envMap); err != nil {
		return data
	}
	return buf.Bytes()
}
