package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/agentmemory/internal/search"
)

// maxSnippet caps the content shown per result in markdown output.
const maxSnippet = 500

// FormatSearchResults formats search results as markdown.
func FormatSearchResults(query string, results []search.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No memories found for \"%s\"", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Memories for \"%s\"\n\n", query))
	sb.WriteString(fmt.Sprintf("Found %d result", len(results)))
	if len(results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, r := range results {
		formatResult(&sb, i+1, r)
	}

	return sb.String()
}

func formatResult(sb *strings.Builder, num int, r search.Result) {
	sb.WriteString(fmt.Sprintf("### %d. %s", num, r.Source))
	if r.SourceDate != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", r.SourceDate))
	}
	sb.WriteString(fmt.Sprintf(" - similarity %.3f\n\n", r.Similarity))

	if r.SourcePath != "" {
		sb.WriteString(fmt.Sprintf("**Path:** `%s`\n", r.SourcePath))
	}
	if len(r.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("**Tags:** %s\n", strings.Join(r.Tags, ", ")))
	}
	if r.Importance != "" && r.Importance != "normal" {
		sb.WriteString(fmt.Sprintf("**Importance:** %s\n", r.Importance))
	}
	sb.WriteString(fmt.Sprintf("**ID:** `%s`\n\n", r.ID))

	sb.WriteString(truncate(r.Content, maxSnippet))
	sb.WriteString("\n\n")
}

// truncate cuts s to at most n runes, marking the cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// clampLimit clamps limit to [min, max], returning defaultVal when limit is 0.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit == 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

func toResultOutput(r search.Result) ResultOutput {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return ResultOutput{
		ID:         r.ID,
		Content:    r.Content,
		Source:     r.Source,
		SourcePath: r.SourcePath,
		SourceDate: r.SourceDate,
		Importance: r.Importance,
		Tags:       tags,
		Similarity: r.Similarity,
	}
}
