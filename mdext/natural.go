package mdext

import (
	"context"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"nscale/scale"
)

var (
	contextKey = parser.NewContextKey()
	historyKey = parser.NewContextKey()
	errKey     = parser.NewContextKey()
)

// NewContext prepares parser context for document. history lists names
// document had, the last one is used to resolve image references.
func NewContext(ctx context.Context, history ...string) parser.Context {
	pc := parser.NewContext()
	pc.Set(contextKey, ctx)
	pc.Set(historyKey, history)
	return pc
}

// Err returns error natural size transform ended with, if any.
func Err(pc parser.Context) error {
	if err, ok := pc.Get(errKey).(error); ok {
		return err
	}
	return nil
}

type naturalSizeTransformer struct {
	tr *scale.Transformer
}

func (n *naturalSizeTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	ctx, ok := pc.Get(contextKey).(context.Context)
	if !ok {
		ctx = context.Background()
	}
	history, _ := pc.Get(historyKey).([]string)

	if err := n.tr.Transform(ctx, imageTree{doc}, history); err != nil {
		pc.Set(errKey, err)
	}
}

type naturalSize struct {
	tr *scale.Transformer
}

func (e *naturalSize) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithASTTransformers(util.Prioritized(&naturalSizeTransformer{e.tr}, priorityNaturalSize)),
	)
}

// NaturalSize is a goldmark.Extender running width transform on images of
// parsed document. Use with ImageAttributes so images could carry
// directives. Document name comes from parser context (see NewContext),
// without it images are left alone.
func NaturalSize(tr *scale.Transformer) goldmark.Extender {
	return &naturalSize{tr}
}

// imageTree presents markdown images to the transform. Destination is
// exposed as src.
type imageTree struct {
	doc ast.Node
}

func (t imageTree) Walk(fn func(scale.Element)) {
	_ = ast.Walk(t.doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if img, ok := n.(*ast.Image); ok && entering {
			fn(image{img})
		}
		return ast.WalkContinue, nil
	})
}

type image struct {
	n *ast.Image
}

func (i image) Attribute(name string) (any, bool) {
	if name == scale.AttrSrc {
		return string(i.n.Destination), true
	}
	return i.n.AttributeString(name)
}

func (i image) SetAttribute(name string, value any) {
	if name == scale.AttrSrc {
		if s, ok := value.(string); ok {
			i.n.Destination = []byte(s)
		}
		return
	}
	i.n.SetAttributeString(name, value)
}
