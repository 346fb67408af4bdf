package htmldoc

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var skipLinkAncestors = []atom.Atom{
	atom.A, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
	atom.Figure, atom.Figcaption, atom.Script, atom.Style, atom.Code, atom.Pre, atom.Button,
}

// HasLink reports whether any anchor points at url.
func (d *Document) HasLink(url string) bool {
	found := false
	d.sel.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if href, _ := s.Attr("href"); href == url {
			found = true
		}
		return !found
	})
	return found
}

// Links returns all anchor hrefs in document order.
func (d *Document) Links() []string {
	var out []string
	d.sel.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		out = append(out, href)
	})
	return out
}

// InsertLink wraps the first whole-word occurrence of anchor in body text
// with a link. Text inside existing links, headings and figures is skipped.
func (d *Document) InsertLink(url, anchor string, attrs ...html.Attribute) bool {
	anchor = strings.TrimSpace(anchor)
	if url == "" || anchor == "" {
		return false
	}

	var target *html.Node
	var start, end int
	walk(d.body, func(n *html.Node) bool {
		if target != nil {
			return false
		}
		if n.Type == html.ElementNode && isElement(n, skipLinkAncestors...) {
			return false
		}
		if n.Type == html.TextNode && !hasAncestor(n, skipLinkAncestors...) {
			if s, e, ok := findWord(n.Data, anchor); ok {
				target, start, end = n, s, e
				return false
			}
		}
		return true
	})
	if target == nil {
		return false
	}

	a := element(atom.A, append([]html.Attribute{{Key: "href", Val: url}}, attrs...)...)
	a.AppendChild(text(target.Data[start:end]))

	parent := target.Parent
	if start > 0 {
		parent.InsertBefore(text(target.Data[:start]), target)
	}
	parent.InsertBefore(a, target)
	if end < len(target.Data) {
		parent.InsertBefore(text(target.Data[end:]), target)
	}
	parent.RemoveChild(target)
	return true
}

// AppendLinkParagraph adds "<p>lead <a href>anchor</a></p>" at the end of
// the article, before a trailing FAQ section when one exists.
func (d *Document) AppendLinkParagraph(url, anchor, lead string, attrs ...html.Attribute) {
	p := element(atom.P, html.Attribute{Key: "class", Val: "related-link"})
	if lead != "" {
		p.AppendChild(text(lead + " "))
	}
	a := element(atom.A, append([]html.Attribute{{Key: "href", Val: url}}, attrs...)...)
	a.AppendChild(text(anchor))
	p.AppendChild(a)

	if faq := d.faqStart(); faq != nil {
		d.body.InsertBefore(p, faq)
		return
	}
	d.body.AppendChild(p)
}

func (d *Document) faqStart() *html.Node {
	for c := d.body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if strings.Contains(attr(c, "class"), "faq") {
			return c
		}
		if isElement(c, atom.H2) {
			t := strings.ToLower(nodeText(c))
			if strings.Contains(t, "veelgestelde vragen") || strings.Contains(t, "faq") || strings.Contains(t, "frequently asked") {
				return c
			}
		}
	}
	return nil
}

// findWord finds needle in haystack case-insensitively on word boundaries
// and returns byte offsets into haystack.
func findWord(haystack, needle string) (int, int, bool) {
	for s := 0; s < len(haystack); {
		if n, ok := foldPrefix(haystack[s:], needle); ok {
			e := s + n
			if boundaryBefore(haystack, s) && boundaryAfter(haystack, e) {
				return s, e, true
			}
		}
		_, size := utf8.DecodeRuneInString(haystack[s:])
		s += size
	}
	return 0, 0, false
}

// foldPrefix reports whether s starts with needle under Unicode case
// folding, and how many bytes of s the match spans.
func foldPrefix(s, needle string) (int, bool) {
	i := 0
	for _, nr := range needle {
		if i >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[i:])
		if !equalFold(sr, nr) {
			return 0, false
		}
		i += size
	}
	return i, true
}

func equalFold(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
