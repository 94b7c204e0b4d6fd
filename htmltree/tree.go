// Package htmltree exposes HTML documents parsed with golang.org/x/net/html
// to the width transform.
package htmltree

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"nscale/common"
	"nscale/scale"
)

// Document is parsed HTML: either complete document or a fragment of body
// content (as produced by markdown renderer).
type Document struct {
	root     *html.Node
	fragment bool
}

// Parse reads complete HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("unable to parse HTML: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseFragment reads HTML which belongs to document body. Render writes it
// back without adding html, head and body elements.
func ParseFragment(r io.Reader) (*Document, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return nil, fmt.Errorf("unable to parse HTML fragment: %w", err)
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{root: root, fragment: true}, nil
}

// Root gives access to underlying node tree.
func (d *Document) Root() *html.Node {
	return d.root
}

// Walk calls fn for every element in document order.
func (d *Document) Walk(fn func(scale.Element)) {
	for n := range d.root.Descendants() {
		if n.Type == html.ElementNode {
			fn(element{n})
		}
	}
}

// Render serializes document.
func (d *Document) Render(w io.Writer) error {
	if !d.fragment {
		return html.Render(w, d.root)
	}
	for n := range d.root.ChildNodes() {
		if err := html.Render(w, n); err != nil {
			return err
		}
	}
	return nil
}

type element struct {
	n *html.Node
}

// Attribute returns attribute value as string, attribute without value is
// an empty string.
func (e element) Attribute(name string) (any, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return nil, false
}

func (e element) SetAttribute(name string, value any) {
	val := common.AttrString(value)
	for i, a := range e.n.Attr {
		if a.Namespace == "" && a.Key == name {
			e.n.Attr[i].Val = val
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: val})
}
