package engine

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// Prompts holds the system prompt and one instruction template per content type.
type Prompts struct {
	System string            `yaml:"system"`
	Tasks  map[string]string `yaml:"tasks"`
}

// TaskParams are the values available inside a task template.
type TaskParams struct {
	Title      string
	Language   string
	Transcript string
}

// LoadPrompts parses the embedded prompt templates.
func LoadPrompts() (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(promptsYAML, &p); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if p.System == "" {
		return nil, fmt.Errorf("prompts: missing system prompt")
	}
	return &p, nil
}

// RenderTask renders the instruction template for a content type.
func (p *Prompts) RenderTask(contentType string, params TaskParams) (string, error) {
	text, ok := p.Tasks[contentType]
	if !ok {
		return "", fmt.Errorf("prompts: no template for content type %q", contentType)
	}

	tmpl, err := template.New(contentType).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %q: %w", contentType, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("render template %q: %w", contentType, err)
	}
	return buf.String(), nil
}

// truncateRunes truncates s to maxRunes runes (Unicode-safe).
func truncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "\n... [truncated]"
}
