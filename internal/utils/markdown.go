package utils

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
		),
	)
	// Telegram's HTML parse mode only understands a handful of tags.
	telegramPolicy = bluemonday.NewPolicy()
	plainPolicy    = bluemonday.StrictPolicy()
)

func init() {
	telegramPolicy.AllowElements("b", "strong", "i", "em", "u", "s", "del", "code", "pre", "blockquote")
	telegramPolicy.AllowAttrs("href").OnElements("a")
	telegramPolicy.AllowStandardURLs()
}

// RenderTelegramHTML turns user markdown into HTML safe for Telegram.
func RenderTelegramHTML(source string) string {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return html.EscapeString(source) // Fallback
	}

	// keep a blank line between paragraphs once <p> is stripped
	out := strings.ReplaceAll(buf.String(), "</p>\n", "</p>\n\n")
	return strings.TrimSpace(telegramPolicy.Sanitize(out))
}

// StripHTML removes every tag and returns plain text.
func StripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(s)))
}

// Truncate cuts s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
