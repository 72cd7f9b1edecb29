package note

import (
	"strings"
	"unicode/utf8"
)

const (
	// leadingSnippetChars is the prefix length used when there is no query
	// or the query does not occur in the content.
	leadingSnippetChars = 180
	// snippetBeforeChars and snippetAfterChars bound the window around the
	// first occurrence of the query.
	snippetBeforeChars = 60
	snippetAfterChars  = 80

	ellipsis = "..."
)

// Snippet builds the display excerpt for a search result. Internal
// whitespace is collapsed first. An empty query yields the leading 180
// characters as a plain prefix; otherwise the window is centered on the
// first case-insensitive occurrence of the query, with ellipsis markers
// on edges truncated away from the content bounds. A query with no
// occurrence falls back to the leading form.
func Snippet(content, query string) string {
	collapsed := collapseWhitespace(content)
	runes := []rune(collapsed)

	query = strings.TrimSpace(query)
	if query == "" {
		return leadingSnippet(runes)
	}

	matchStart, matchEnd := findFold(collapsed, query)
	if matchStart < 0 {
		return leadingSnippet(runes)
	}

	start := matchStart - snippetBeforeChars
	end := matchEnd + snippetAfterChars
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString(ellipsis)
	}
	b.WriteString(string(runes[start:end]))
	if end < len(runes) {
		b.WriteString(ellipsis)
	}
	return b.String()
}

// collapseWhitespace replaces runs of whitespace with single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// leadingSnippet returns the first leadingSnippetChars characters. The
// result is always a prefix of the collapsed content; ellipsis markers
// belong to the query-window form only.
func leadingSnippet(runes []rune) string {
	if len(runes) > leadingSnippetChars {
		runes = runes[:leadingSnippetChars]
	}
	return string(runes)
}

// findFold locates the first case-insensitive occurrence of query in
// content and returns its rune offsets, or (-1, -1) when absent.
func findFold(content, query string) (int, int) {
	lowered := strings.ToLower(content)
	loweredQuery := strings.ToLower(query)
	idx := strings.Index(lowered, loweredQuery)
	if idx < 0 {
		return -1, -1
	}
	start := utf8.RuneCountInString(lowered[:idx])
	return start, start + utf8.RuneCountInString(loweredQuery)
}
