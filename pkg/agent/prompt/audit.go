package prompt

import (
	"fmt"
	"strconv"
	"strings"
)

const maxNestingDepth = 10

// FormatNestedData renders structured data as an indented, human-readable
// block for audit notes. Keys become Title Case, booleans become ✅/❌,
// long strings are truncated.
func FormatNestedData(data any, indent int) string {
	return formatNested(data, indent, maxNestingDepth)
}

func formatNested(data any, indent, depth int) string {
	if depth <= 0 {
		return "... (max depth reached)"
	}
	pad := strings.Repeat("  ", indent)

	switch v := data.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "✅ Yes"
		}
		return "❌ No"
	case string:
		if runes := []rune(v); len(runes) > 500 {
			return string(runes[:500]) + "... (truncated)"
		}
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case []any:
		if len(v) == 0 {
			return "(empty list)"
		}
		var lines []string
		for i, item := range v {
			switch item.(type) {
			case map[string]any, []any:
				lines = append(lines, fmt.Sprintf("%s%d.", pad, i+1))
				lines = append(lines, formatNested(item, indent+1, depth-1))
			default:
				lines = append(lines, fmt.Sprintf("%s%d. %s", pad, i+1, formatNested(item, 0, depth-1)))
			}
		}
		return strings.Join(lines, "\n")
	case map[string]any:
		if len(v) == 0 {
			return "(empty)"
		}
		var lines []string
		for _, key := range sortedKeys(v) {
			label := titleWords(strings.ReplaceAll(key, "_", " "))
			switch v[key].(type) {
			case map[string]any, []any:
				lines = append(lines, fmt.Sprintf("%s%s:", pad, label))
				lines = append(lines, formatNested(v[key], indent+1, depth-1))
			default:
				lines = append(lines, fmt.Sprintf("%s%s: %s", pad, label, formatNested(v[key], 0, depth-1)))
			}
		}
		return strings.Join(lines, "\n")
	default:
		return fmt.Sprint(v)
	}
}

// FormatActionAuditNote renders one action execution as a Markdown audit
// note for the conversation's internal timeline.
func FormatActionAuditNote(actionName string, parameters map[string]any, result any, executionTimeMs float64, success bool, errMsg string) string {
	var lines []string

	statusEmoji, statusText := "✅", "SUCCESS"
	if !success {
		statusEmoji, statusText = "❌", "FAILED"
	}
	lines = append(lines, "🤖 **Melvin Action Executed**")
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("%s **Status:** %s", statusEmoji, statusText))
	lines = append(lines, fmt.Sprintf("**Action:** `%s`", actionName))
	lines = append(lines, fmt.Sprintf("**Execution Time:** %.1fms", executionTimeMs))
	lines = append(lines, "")

	if len(parameters) > 0 {
		lines = append(lines, "**Parameters:**")
		lines = append(lines, FormatNestedData(parameters, 1))
		lines = append(lines, "")
	}

	if !success && errMsg != "" {
		lines = append(lines, "**Error:**")
		lines = append(lines, "  "+errMsg)
		lines = append(lines, "")
	}

	if success && result != nil {
		lines = append(lines, "**Result:**")
		lines = append(lines, FormatNestedData(result, 1))
		lines = append(lines, "")
	}

	lines = append(lines, "---")
	lines = append(lines, "_This action was executed automatically by Melvin and logged for audit purposes._")

	return strings.Join(lines, "\n")
}

// titleWords capitalizes the first letter of each space-separated word.
func titleWords(s string) string {
	words := strings.Split(s, " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		runes := []rune(strings.ToLower(word))
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
