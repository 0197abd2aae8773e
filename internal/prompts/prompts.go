// Package prompts loads and renders the prompt templates of the triage steps.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Prompt names.
const (
	Classify = "classify"
	Draft    = "draft"
	Refine   = "refine"
)

// Data is the value a template is executed with.
type Data struct {
	Email    string
	Feedback string
	Draft    string
}

// Set holds the parsed templates for every step.
type Set struct {
	templates map[string]*template.Template
}

type document struct {
	Classify string `yaml:"classify"`
	Draft    string `yaml:"draft"`
	Refine   string `yaml:"refine"`
}

// Default returns the built-in prompt set.
func Default() (*Set, error) {
	return Parse(defaultYAML)
}

// Load reads a prompt set from a YAML file. Steps missing from the file keep
// their built-in template.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return Parse(data)
}

// Parse builds a prompt set from YAML, filling missing steps from the
// built-in defaults.
func Parse(data []byte) (*Set, error) {
	var defaults document
	if err := yaml.Unmarshal(defaultYAML, &defaults); err != nil {
		return nil, fmt.Errorf("failed to parse built-in prompts: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}

	sources := map[string]string{
		Classify: firstNonEmpty(doc.Classify, defaults.Classify),
		Draft:    firstNonEmpty(doc.Draft, defaults.Draft),
		Refine:   firstNonEmpty(doc.Refine, defaults.Refine),
	}

	set := &Set{templates: make(map[string]*template.Template, len(sources))}
	for name, src := range sources {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s prompt: %w", name, err)
		}
		set.templates[name] = tmpl
	}
	return set, nil
}

// Render executes the named template.
func (s *Set) Render(name string, data Data) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", name, err)
	}
	return b.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
