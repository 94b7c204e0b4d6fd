// Package mdext contains goldmark extensions: image attribute syntax and
// natural size transform working directly on markdown AST.
package mdext

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"nscale/common"
)

// Lower values run first.
const (
	priorityAttributesParser      = 500
	priorityAttributesTransformer = 100
	priorityNaturalSize           = 500
	priorityStringifyTransformer  = 10000
	priorityAttributesRenderer    = 500
)

// KindImageAttributes is a NodeKind of the image attribute list node.
var KindImageAttributes = ast.NewNodeKind("ImageAttributes")

// ImageAttributesNode is attribute list which immediately follows an image:
//
//	![alt](pic.png){data-nscale=2 .wide}
//
// It lives in the tree only until attributes are moved to the image.
type ImageAttributesNode struct {
	ast.BaseInline
}

func (n *ImageAttributesNode) Kind() ast.NodeKind {
	return KindImageAttributes
}

func (n *ImageAttributesNode) Dump(source []byte, level int) {
	attrs := make(map[string]string, len(n.Attributes()))
	for _, a := range n.Attributes() {
		attrs[string(a.Name)] = common.AttrString(a.Value)
	}
	ast.DumpHelper(n, source, level, attrs, nil)
}

type attributesParser struct{}

func (p *attributesParser) Trigger() []byte {
	return []byte{'{'}
}

func (p *attributesParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	if _, ok := parent.LastChild().(*ast.Image); !ok {
		return nil
	}
	line, pos := block.Position()
	attrs, ok := parser.ParseAttributes(block)
	if !ok {
		block.SetPosition(line, pos)
		return nil
	}
	node := &ImageAttributesNode{}
	for _, a := range attrs {
		node.SetAttribute(a.Name, a.Value)
	}
	return node
}

// attributesTransformer moves attributes to the image. Attributes image
// already has are kept.
type attributesTransformer struct{}

func (a *attributesTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	var lists []ast.Node
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == KindImageAttributes {
			lists = append(lists, n)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, list := range lists {
		if img, ok := list.PreviousSibling().(*ast.Image); ok {
			for _, a := range list.Attributes() {
				if _, exists := img.Attribute(a.Name); !exists {
					img.SetAttribute(a.Name, a.Value)
				}
			}
		}
		list.Parent().RemoveChild(list.Parent(), list)
	}
}

// stringifyTransformer makes image attributes printable by HTML renderer,
// which only knows how to write text values. true becomes attribute without
// value, false and null remove attribute.
type stringifyTransformer struct{}

func (s *stringifyTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindImage || n.Attributes() == nil {
			return ast.WalkContinue, nil
		}
		// goldmark can only drop all attributes at once
		kept := make([]ast.Attribute, 0, len(n.Attributes()))
		for _, a := range n.Attributes() {
			switch v := a.Value.(type) {
			case []byte, string:
			case bool:
				if !v {
					continue
				}
				a.Value = []byte{}
			case nil:
				continue
			default:
				a.Value = []byte(common.AttrString(v))
			}
			kept = append(kept, a)
		}
		n.RemoveAttributes()
		for _, a := range kept {
			n.SetAttribute(a.Name, a.Value)
		}
		return ast.WalkContinue, nil
	})
}

type attributesRenderer struct{}

func (r *attributesRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindImageAttributes, func(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
		return ast.WalkSkipChildren, nil
	})
}

type imageAttributes struct{}

func (e *imageAttributes) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(util.Prioritized(&attributesParser{}, priorityAttributesParser)),
		parser.WithASTTransformers(
			util.Prioritized(&attributesTransformer{}, priorityAttributesTransformer),
			util.Prioritized(&stringifyTransformer{}, priorityStringifyTransformer),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(util.Prioritized(&attributesRenderer{}, priorityAttributesRenderer)),
	)
}

// ImageAttributes is a goldmark.Extender adding attribute lists to images.
var ImageAttributes goldmark.Extender = &imageAttributes{}
