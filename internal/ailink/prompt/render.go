package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}

// Rendered holds the expanded templates of a prompt.
type Rendered struct {
	System string
	User   string
}

// Render expands the prompt's templates with vars. Every required variable
// must be present and non-empty.
func (p *Prompt) Render(vars map[string]any) (Rendered, error) {
	if p == nil {
		return Rendered{}, fmt.Errorf("prompt is nil")
	}
	for _, name := range p.Config.Input.RequiredVariables {
		value, ok := vars[name]
		if !ok || value == nil {
			return Rendered{}, fmt.Errorf("prompt %s: missing variable %q", p.Config.Slug, name)
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			return Rendered{}, fmt.Errorf("prompt %s: empty variable %q", p.Config.Slug, name)
		}
	}
	// Optional variables resolve to their zero value when absent.
	full := make(map[string]any, len(vars)+len(p.Config.Input.OptionalVariables))
	for _, name := range p.Config.Input.OptionalVariables {
		full[name] = nil
	}
	for k, v := range vars {
		full[k] = v
	}

	system, err := execute("system", p.Config.SystemTemplate, full)
	if err != nil {
		return Rendered{}, fmt.Errorf("prompt %s: %w", p.Config.Slug, err)
	}
	user, err := execute("user", p.Config.UserTemplate, full)
	if err != nil {
		return Rendered{}, fmt.Errorf("prompt %s: %w", p.Config.Slug, err)
	}
	return Rendered{System: system, User: user}, nil
}

func execute(name, text string, vars map[string]any) (string, error) {
	if text == "" {
		return "", nil
	}
	tmpl, err := newTemplate(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render %s template: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
