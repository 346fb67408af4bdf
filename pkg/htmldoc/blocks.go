package htmldoc

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HasEmbed reports whether an iframe source contains needle.
func (d *Document) HasEmbed(needle string) bool {
	found := false
	walk(d.body, func(n *html.Node) bool {
		if isElement(n, atom.Iframe) && strings.Contains(attr(n, "src"), needle) {
			found = true
		}
		return !found
	})
	return found
}

// InsertBlock parses fragment and places it after the first paragraph of the
// section opened by the n-th h2 (1-based). Without that many sections it
// goes before the FAQ, or at the end.
func (d *Document) InsertBlock(fragment string, n int) error {
	nodes, err := d.parseNodes(fragment)
	if err != nil {
		return fmt.Errorf("failed to parse block: %w", err)
	}
	if len(nodes) == 0 {
		return fmt.Errorf("block is empty")
	}

	faq := d.faqStart()
	var anchor *html.Node
	seen := 0
	for c := d.body.FirstChild; c != nil && c != faq; c = c.NextSibling {
		if !isElement(c, atom.H2) {
			continue
		}
		seen++
		if seen == n {
			anchor = c
			for s := c.NextSibling; s != nil && !isElement(s, atom.H2); s = s.NextSibling {
				if isElement(s, atom.P) {
					anchor = s
					break
				}
			}
			break
		}
	}

	var before *html.Node
	switch {
	case anchor != nil:
		before = anchor.NextSibling
	case faq != nil:
		before = faq
	}
	for _, node := range nodes {
		d.body.InsertBefore(node, before)
	}
	return nil
}
