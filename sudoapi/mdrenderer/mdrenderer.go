// Package mdrenderer turns post content into the restricted HTML shown on the public blog.
package mdrenderer

import (
	"bytes"
	"regexp"

	chtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/dardanova/dardanova"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var _ dardanova.MarkdownRenderer = &Renderer{}

// Renderer renders markdown with GFM and highlighted code blocks.
// Images, raw HTML, iframes and scripts never reach the output.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func (r *Renderer) Render(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return nil, err
	}
	return r.policy.SanitizeBytes(buf.Bytes()), nil
}

func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
				highlighting.WithFormatOptions( // Keep in line with scripts/chroma_gen
					chtml.TabWidth(4),
					chtml.WithClasses(true),
				),
			),
			postHeadings{maxLevel: maxPostHeading},
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	return &Renderer{md: md, policy: Policy()}
}

var (
	classNames = regexp.MustCompile(`^[a-zA-Z0-9\s_-]+$`)
	headingIDs = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)
	alignments = regexp.MustCompile(`^(left|right|center)$`)
	textAlign  = regexp.MustCompile(`^text-align:\s*(left|right|center);?$`)
)

// Policy returns the sanitization policy for rendered posts.
func Policy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements("h1", "h2", "h3", "h4", "h5", "h6", "p", "br", "hr",
		"ul", "ol", "li", "blockquote",
		"table", "thead", "tbody", "tr", "th", "td",
		"pre", "code", "span", "em", "strong", "del")
	p.AllowAttrs("id").Matching(headingIDs).OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("class").Matching(classNames).OnElements("pre", "code", "span")
	p.AllowAttrs("align").Matching(alignments).OnElements("th", "td")
	p.AllowAttrs("style").Matching(textAlign).OnElements("th", "td")
	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")

	// GFM task lists
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")

	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}
