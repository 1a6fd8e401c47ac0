package prompts

import "strings"

// Render substitutes {name} and {{name}} placeholders with literal values.
// Replacement is plain string substitution, so substituted values may
// safely contain braces (tool results are often JSON).
func Render(template string, vars map[string]string) string {
	out := template
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}
