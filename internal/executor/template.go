package executor

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Script is a command script rendered from a text/template before running.
type Script struct {
	name string
	tmpl *template.Template
}

// ParseScript compiles a script template.
func ParseScript(name, text string) (*Script, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &Script{name: name, tmpl: tmpl}, nil
}

// Render executes the template against data and trims blank lines.
func (s *Script) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", s.name, err)
	}
	var lines []string
	for _, l := range strings.Split(buf.String(), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n"), nil
}
