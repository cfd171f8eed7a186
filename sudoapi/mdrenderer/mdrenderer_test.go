package mdrenderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, src string) string {
	t.Helper()
	out, err := NewRenderer().Render([]byte(src))
	require.NoError(t, err)
	return string(out)
}

func TestRenderAllowedBlocks(t *testing.T) {
	out := render(t, "# Hello World\n\nSome *text*.\n\n> quote\n\n- a\n- b\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")

	assert.Contains(t, out, `<h2 id="hello-world">Hello World</h2>`)
	assert.Contains(t, out, "<em>text</em>")
	assert.Contains(t, out, "<blockquote>")
	assert.Contains(t, out, "<li>a</li>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>1</td>")
}

func TestRenderCodeBlock(t *testing.T) {
	out := render(t, "```go\nfunc main() {}\n```\n")
	assert.Contains(t, out, "<pre")
	assert.Contains(t, out, "main")
}

func TestRenderExcludesUnsafeContent(t *testing.T) {
	tests := map[string]string{
		"script": "<script>alert(1)</script>\n\ntext",
		"image":  "![logo](https://example.com/logo.png)",
		"iframe": "<iframe src=\"https://example.com\"></iframe>",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			out := render(t, src)
			assert.NotContains(t, out, "<script")
			assert.NotContains(t, out, "<img")
			assert.NotContains(t, out, "<iframe")
		})
	}
}

func TestRenderLinks(t *testing.T) {
	out := render(t, "[site](https://example.com) [bad](javascript:alert(1))")
	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, "nofollow")
	assert.Contains(t, out, "noopener")
	assert.NotContains(t, out, "javascript:")
}

func TestRenderHeadingLevels(t *testing.T) {
	out := render(t, "# One\n\n## Two\n\n### Three\n\n#### Four\n\n###### Six\n\n> # Quoted\n")

	assert.NotContains(t, out, "<h1")
	assert.Contains(t, out, `<h2 id="one">One</h2>`)
	assert.Contains(t, out, `<h3 id="two">Two</h3>`)
	assert.Contains(t, out, `<h4 id="three">Three</h4>`)
	assert.Contains(t, out, `<h4 id="four">Four</h4>`)
	assert.Contains(t, out, `<h4 id="six">Six</h4>`)
	assert.Contains(t, out, `<h2 id="quoted">Quoted</h2>`)
	assert.NotContains(t, out, "<h5")
	assert.NotContains(t, out, "<h6")
}
