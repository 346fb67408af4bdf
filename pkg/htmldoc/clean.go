package htmldoc

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	leadingFence  = regexp.MustCompile("^```[a-zA-Z0-9_-]*[ \t]*\n?")
	trailingFence = regexp.MustCompile("\n?```[ \t]*$")
	languageTag   = regexp.MustCompile(`^(?i)(html|markdown|md)\s*\n`)
	htmlBlockTag  = regexp.MustCompile(`(?i)<(p|h[1-6]|ul|ol|div|section|article|table|figure)[\s>]`)
	markdownHint  = regexp.MustCompile(`(?m)^(#{1,6} |[-*] |\d+\. |> )|\*\*[^*]+\*\*`)
	documentShell = regexp.MustCompile(`(?is)^.*?<body[^>]*>(.*)</body>.*$`)

	markdown = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithUnsafe()))
)

// CleanModelOutput removes wrapper artifacts models put around HTML: code
// fences, a bare language tag line, stray quotes and full document shells.
// Markdown output is converted to HTML.
func CleanModelOutput(raw string) string {
	s := strings.TrimSpace(raw)
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = languageTag.ReplaceAllString(s, "")

	for _, q := range []string{`"`, "'", "`"} {
		if strings.HasPrefix(s, q) && strings.HasPrefix(strings.TrimSpace(s[len(q):]), "<") {
			s = strings.TrimSpace(s[len(q):])
		}
		if strings.HasSuffix(s, q) && strings.HasSuffix(strings.TrimSpace(s[:len(s)-len(q)]), ">") {
			s = strings.TrimSpace(s[:len(s)-len(q)])
		}
	}

	if m := documentShell.FindStringSubmatch(s); len(m) > 1 {
		s = strings.TrimSpace(m[1])
	}

	if LooksLikeMarkdown(s) {
		if converted, err := MarkdownToHTML(s); err == nil {
			s = converted
		}
	}
	return strings.TrimSpace(s)
}

// LooksLikeMarkdown reports whether s has Markdown structure and no HTML
// block elements.
func LooksLikeMarkdown(s string) bool {
	return !htmlBlockTag.MatchString(s) && markdownHint.MatchString(s)
}

// MarkdownToHTML renders Markdown with raw HTML passthrough.
func MarkdownToHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
