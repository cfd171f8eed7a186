package mdrenderer

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// maxPostHeading is the deepest heading a rendered post body contains.
const maxPostHeading = 4

var (
	_ parser.ASTTransformer = postHeadings{}
	_ goldmark.Extender     = postHeadings{}
)

// postHeadings demotes every heading of a post body by one level, since the page
// renders the post title as its only <h1>. Deeper headings are flattened to maxLevel.
type postHeadings struct {
	maxLevel int
}

func (ph postHeadings) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, enter bool) (ast.WalkStatus, error) {
		if !enter {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok {
			h.Level = min(h.Level+1, ph.maxLevel)
			// headings hold no block children
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
}

func (ph postHeadings) Extend(md goldmark.Markdown) {
	md.Parser().AddOptions(
		parser.WithASTTransformers(util.Prioritized(ph, 100)),
	)
}
