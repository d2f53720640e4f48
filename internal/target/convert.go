package target

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
)

var (
	markdownEngine = goldmark.New()

	htmlTagPattern   = regexp.MustCompile(`(?s)<[^>]*>`)
	htmlBreakPattern = regexp.MustCompile(`(?i)<\s*br\s*/?\s*>`)
	blankRunsPattern = regexp.MustCompile(`\n{3,}`)
)

// Convert re-renders content from one body format into another.
// Params: source format, destination format, and content.
// Returns: converted body; identical formats pass through unchanged.
func Convert(from, to Format, content string) string {
	if from == to || content == "" {
		return content
	}

	switch to {
	case FormatHTML:
		if from == FormatMarkdown {
			return markdownToHTML(content)
		}
		return textToHTML(content)
	case FormatText, FormatMarkdown:
		if from == FormatHTML {
			return htmlToText(content)
		}
		// text<->markdown needs no rewriting; markdown is a superset of
		// plain text and plain text is valid markdown.
		return content
	default:
		return content
	}
}

// markdownToHTML renders markdown content as an HTML fragment.
// Params: markdown source.
// Returns: rendered HTML or escaped source when rendering fails.
func markdownToHTML(content string) string {
	var rendered bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &rendered); err != nil {
		return textToHTML(content)
	}
	return strings.TrimRight(rendered.String(), "\n")
}

// textToHTML escapes plain text for HTML consumers.
// Params: plain text source.
// Returns: escaped content with newline breaks preserved.
func textToHTML(content string) string {
	escaped := html.EscapeString(content)
	return strings.ReplaceAll(escaped, "\n", "<br/>\n")
}

// htmlToText strips markup for plain-text consumers.
// Params: HTML source.
// Returns: tag-free text with entities decoded.
func htmlToText(content string) string {
	flattened := htmlBreakPattern.ReplaceAllString(content, "\n")
	flattened = htmlTagPattern.ReplaceAllString(flattened, "")
	flattened = html.UnescapeString(flattened)
	flattened = blankRunsPattern.ReplaceAllString(flattened, "\n\n")
	return strings.TrimSpace(flattened)
}
