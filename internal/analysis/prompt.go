package analysis

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var analysisPrompt = template.Must(template.ParseFS(promptFS, "prompts/analysis.tmpl"))

type promptData struct {
	CVText         string
	JobDescription string
}

// BuildPrompt renders the fixed analysis prompt.
func BuildPrompt(cvText, jobDescription string) (string, error) {
	var buf bytes.Buffer
	if err := analysisPrompt.Execute(&buf, promptData{CVText: cvText, JobDescription: jobDescription}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
