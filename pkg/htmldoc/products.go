package htmldoc

import (
	"fmt"
	"html/template"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/soypete/autopilot/pkg/article"
)

var productMarkerPattern = regexp.MustCompile(`\[PRODUCT-(\d+)\]`)

var productBoxTemplate = template.Must(template.New("box").Parse(
	`<div class="product-box">` +
		`{{if .ImageURL}}<img class="product-box__image" src="{{.ImageURL}}" alt="{{.Name}}" loading="lazy">{{end}}` +
		`<div class="product-box__body"><h3 class="product-box__title">{{.Name}}</h3>` +
		`{{if .Description}}<p class="product-box__description">{{.Description}}</p>{{end}}` +
		`{{if .Price}}<p class="product-box__price">{{.Price}}</p>{{end}}` +
		`<a class="product-box__cta" href="{{.URL}}" rel="sponsored nofollow noopener" target="_blank">{{.CTA}}</a>` +
		`</div></div>`))

func (d *Document) productBox(p article.Product, cta string) (*html.Node, error) {
	var b strings.Builder
	err := productBoxTemplate.Execute(&b, struct {
		article.Product
		CTA string
	}{p, cta})
	if err != nil {
		return nil, err
	}
	nodes, err := d.parseNodes(b.String())
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("product box rendered %d nodes", len(nodes))
	}
	return nodes[0], nil
}

// InsertProductBoxes renders a box per product. [PRODUCT-n] markers are
// replaced in place; products without a marker go after the paragraph that
// follows the n-th h2, or at the end. Returns the number of boxes placed.
func (d *Document) InsertProductBoxes(products []article.Product, cta string) (int, error) {
	if cta == "" {
		cta = "Bekijk prijs"
	}

	placed := make(map[int]bool)
	var markers []*html.Node
	walk(d.body, func(n *html.Node) bool {
		if n.Type == html.TextNode && productMarkerPattern.MatchString(n.Data) {
			markers = append(markers, n)
		}
		return true
	})

	for _, n := range markers {
		m := productMarkerPattern.FindStringSubmatch(n.Data)
		idx, _ := strconv.Atoi(m[1])
		n.Data = strings.TrimSpace(productMarkerPattern.ReplaceAllString(n.Data, ""))
		if idx < 1 || idx > len(products) || placed[idx] {
			d.removeIfEmpty(n.Parent)
			continue
		}
		box, err := d.productBox(products[idx-1], cta)
		if err != nil {
			return len(placed), err
		}
		anchor := d.topLevel(n)
		if anchor == nil {
			continue
		}
		d.body.InsertBefore(box, anchor.NextSibling)
		placed[idx] = true
		if n.Data == "" && n.Parent != nil {
			parent := n.Parent
			parent.RemoveChild(n)
			d.removeIfEmpty(parent)
		}
	}

	faq := d.faqStart()
	var h2s []*html.Node
	for c := d.body.FirstChild; c != nil && c != faq; c = c.NextSibling {
		if isElement(c, atom.H2) {
			h2s = append(h2s, c)
		}
	}

	for i, p := range products {
		if placed[i+1] {
			continue
		}
		box, err := d.productBox(p, cta)
		if err != nil {
			return len(placed), err
		}
		if i < len(h2s) {
			after := h2s[i]
			for s := after.NextSibling; s != nil; s = s.NextSibling {
				if isElement(s, atom.P) {
					after = s
					break
				}
				if isElement(s, atom.H2) {
					break
				}
			}
			d.body.InsertBefore(box, after.NextSibling)
		} else if faq != nil {
			d.body.InsertBefore(box, faq)
		} else {
			d.body.AppendChild(box)
		}
		placed[i+1] = true
	}

	return len(placed), nil
}
