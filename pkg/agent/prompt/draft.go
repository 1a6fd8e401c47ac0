package prompt

import (
	"fmt"
	"strings"
)

// contextDoc is one unit of supporting content for the drafting prompt:
// a documentation excerpt, a tool payload, or an application listing.
type contextDoc struct {
	Title        string
	Heading      string
	Text         string
	URL          string
	Applications []map[string]any
}

// BuildDraftDataSummary renders the {data_summary} block for the drafting
// prompt: a one-line inventory of what was collected, then the relevant
// content itself.
func BuildDraftDataSummary(toolData, docsData map[string]any, coverageReasoning string) string {
	docs, sources := collectDraftContext(toolData, docsData)

	var summary []string
	if coverageReasoning != "" {
		summary = append(summary, fmt.Sprintf("Coverage Analysis: %s", coverageReasoning))
	}
	if len(toolData) > 0 {
		summary = append(summary, fmt.Sprintf("Tool Data: %d tools executed", len(toolData)))
	}
	if len(docsData) > 0 {
		summary = append(summary, fmt.Sprintf("Documentation: %d searches performed", len(docsData)))
	}
	if sources > 0 {
		summary = append(summary, fmt.Sprintf("Sources: %d documents found", sources))
	}

	text := "No specific data available"
	if len(summary) > 0 {
		text = strings.Join(summary, ", ")
	}

	return text + formatDraftDocs(docs)
}

// collectDraftContext flattens tool and docs payloads into content
// entries. Application payloads get structured handling so the drafter
// sees listing, status, and date per application.
func collectDraftContext(toolData, docsData map[string]any) (docs []contextDoc, sources int) {
	for _, toolName := range sortedKeys(toolData) {
		for _, item := range payloadItems(toolData[toolName]) {
			payload, ok := item.(map[string]any)
			if !ok {
				docs = append(docs, contextDoc{
					Title: fmt.Sprintf("%s data", toolName),
					Text:  fmt.Sprint(item),
				})
				continue
			}
			if apps := applicationList(payload); apps != nil {
				docs = append(docs, contextDoc{
					Title:        fmt.Sprintf("%s - %d applications found", toolName, len(apps)),
					Text:         fmt.Sprintf("Found %d applications with the following details:", len(apps)),
					Applications: apps,
				})
				continue
			}
			docs = append(docs, contextDoc{
				Title: fmt.Sprintf("%s data", toolName),
				Text:  jsonCompact(payload),
			})
		}
	}

	for _, query := range sortedKeys(docsData) {
		for _, item := range payloadItems(docsData[query]) {
			payload, ok := item.(map[string]any)
			if !ok {
				docs = append(docs, contextDoc{Title: "Raw Content", Text: fmt.Sprint(item)})
				continue
			}
			results, ok := payload["results"].([]any)
			if !ok {
				continue
			}
			for _, r := range results {
				doc, ok := r.(map[string]any)
				if !ok {
					continue
				}
				docs = append(docs, contextDoc{
					Title:   stringField(doc, "title", "Unknown"),
					Heading: stringField(doc, "heading", ""),
					Text:    stringField(doc, "text", ""),
					URL:     stringField(doc, "url", ""),
				})
				sources++
			}
		}
	}

	return docs, sources
}

func formatDraftDocs(docs []contextDoc) string {
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nRELEVANT DATA:\n")
	for i, doc := range docs {
		fmt.Fprintf(&b, "\n%d. %s", i+1, doc.Title)
		if doc.Heading != "" {
			fmt.Fprintf(&b, " - %s", doc.Heading)
		}

		if doc.Applications != nil {
			fmt.Fprintf(&b, "\n   %s\n", doc.Text)
			for j, app := range doc.Applications {
				fmt.Fprintf(&b, "   Application %d: %s - Status: %s (Applied: %s)\n",
					j+1,
					stringField(app, "listing_title", "Unknown"),
					stringField(app, "status", "Unknown"),
					stringField(app, "applied_at", "Unknown"))
			}
		} else {
			fmt.Fprintf(&b, "\n   Content: %s\n", doc.Text)
		}

		if doc.URL != "" {
			fmt.Fprintf(&b, "   Source: %s\n", doc.URL)
		}
	}
	return b.String()
}

// payloadItems normalizes a stored payload to a list: tools returning a
// JSON array are kept as is, single objects are wrapped.
func payloadItems(data any) []any {
	if items, ok := data.([]any); ok {
		return items
	}
	if data == nil {
		return nil
	}
	return []any{data}
}

// applicationList extracts an applications array if the payload has one.
func applicationList(payload map[string]any) []map[string]any {
	raw, ok := payload["applications"].([]any)
	if !ok {
		return nil
	}
	apps := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if app, ok := item.(map[string]any); ok {
			apps = append(apps, app)
		}
	}
	return apps
}

func stringField(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}
