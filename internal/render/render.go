// Package render implements the template collaborator used to build plenum pages.
package render

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"text/template"

	"github.com/sha1n/plenumbot/internal/plenum"
)

// fieldRef matches field references such as ".content" inside an action.
var fieldRef = regexp.MustCompile(`(^|[\s({|])\.([A-Za-z_][A-Za-z0-9_]*)`)

// action matches a template action.
var action = regexp.MustCompile(`(?s)\{\{.*?\}\}`)

// barePlaceholder matches Jinja style placeholders such as "{{ content }}".
var barePlaceholder = regexp.MustCompile(`\{\{(-?\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*-?)\}\}`)

// TextRenderer renders templates with text/template.
type TextRenderer struct {
	// Strict makes unknown placeholders an error instead of rendering them empty.
	Strict bool
}

// NewTextRenderer creates a renderer.
func NewTextRenderer(strict bool) *TextRenderer {
	return &TextRenderer{Strict: strict}
}

// Render substitutes values into tpl. Like Jinja, a single trailing newline
// of the template is dropped.
func (r *TextRenderer) Render(tpl string, values map[string]any) (string, error) {
	missingKey := "missingkey=zero"
	if r.Strict {
		missingKey = "missingkey=error"
	}

	src := normalize(strings.TrimSuffix(tpl, "\n"))
	t, err := template.New("page").Option(missingKey).Parse(src)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	if !r.Strict {
		values = withEmptyFields(src, values)
	}

	var sb strings.Builder
	if err := t.Execute(&sb, values); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return sb.String(), nil
}

// withEmptyFields returns values extended by an empty string for every field
// src references that values lacks, so missing fields render as nothing.
func withEmptyFields(src string, values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	for _, a := range action.FindAllString(src, -1) {
		for _, m := range fieldRef.FindAllStringSubmatch(a, -1) {
			if _, ok := out[m[2]]; !ok {
				out[m[2]] = ""
			}
		}
	}
	return out
}

// normalize rewrites bare placeholders to field references so templates written
// as "{{ content }}" and "{{ .content }}" behave the same. Template keywords are
// left alone.
func normalize(tpl string) string {
	return barePlaceholder.ReplaceAllStringFunc(tpl, func(m string) string {
		parts := barePlaceholder.FindStringSubmatch(m)
		if isKeyword(parts[2]) {
			return m
		}
		return "{{" + parts[1] + "." + parts[2] + parts[3] + "}}"
	})
}

func isKeyword(name string) bool {
	switch name {
	case "end", "else", "nil", "true", "false", "break", "continue":
		return true
	}
	return false
}

// LoadTemplates reads the plenum and blank-topics templates from disk.
func LoadTemplates(plenumPath, blankPath string) (plenum.Templates, error) {
	plenumTpl, err := os.ReadFile(plenumPath)
	if err != nil {
		return plenum.Templates{}, fmt.Errorf("failed to load plenum template: %w", err)
	}

	blankTpl, err := os.ReadFile(blankPath)
	if err != nil {
		return plenum.Templates{}, fmt.Errorf("failed to load blank topics template: %w", err)
	}

	return plenum.Templates{
		Plenum: string(plenumTpl),
		Blank:  string(blankTpl),
	}, nil
}
