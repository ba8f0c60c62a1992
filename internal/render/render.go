// Package render turns normalized timeline entries into terminal text.
package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMaxLength is the default character budget for an entry's text.
const DefaultMaxLength = 280

// FormatEntry formats an entry as:
//
//	@acct (created_at)
//	text
//
// The HTML content is reduced to plain text and cut to maxLen characters.
func FormatEntry(entry map[string]any, maxLen int) string {
	acct := "unknown"
	if account, ok := entry["account"].(map[string]any); ok {
		if a, ok := account["acct"].(string); ok && a != "" {
			acct = a
		}
	}

	header := "@" + acct
	if created, ok := entry["created_at"].(string); ok && created != "" {
		header = fmt.Sprintf("%s (%s)", header, created)
	}

	content, _ := entry["content"].(string)
	text := Truncate(PlainText(content), maxLen)

	// Boosts carry their text on the reblogged status
	if text == "" {
		if reblog, ok := entry["reblog"].(map[string]any); ok {
			return header + " boosted\n" + FormatEntry(reblog, maxLen)
		}
	}

	return header + "\n" + text
}

// PlainText extracts the visible text from a status's HTML content, one
// paragraph per line.
func PlainText(html string) string {
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find("br").ReplaceWithHtml("\n")

	paragraphs := doc.Find("p")
	if paragraphs.Length() == 0 {
		return strings.TrimSpace(doc.Text())
	}

	var lines []string
	paragraphs.Each(func(_ int, s *goquery.Selection) {
		if line := strings.TrimSpace(s.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	return strings.Join(lines, "\n")
}

// Truncate cuts text to at most maxLen characters, preferring a word boundary
// and ending with "...".
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 || FitsInLimit(text, maxLen) {
		return text
	}
	if maxLen <= 3 {
		return string([]rune(text)[:maxLen])
	}

	available := maxLen - 3
	truncated := string([]rune(text)[:available])

	// Find last space to avoid cutting mid-word
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > len(truncated)/2 { // Only use word boundary if not too far back
		truncated = truncated[:lastSpace]
	}

	return strings.TrimRight(truncated, " .,;:!?") + "..."
}

// FitsInLimit checks if the text fits within the limit.
func FitsInLimit(text string, limit int) bool {
	return utf8.RuneCountInString(text) <= limit
}
