package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToMarkdown_ExtractsTitleAndHeadings(t *testing.T) {
	doc := `<html><head><title>Docs Home</title></head>
<body><h1>Getting Started</h1><p>Welcome to the docs.</p></body></html>`

	title, markdown, _ := htmlToMarkdown(doc, "https://example.com/docs/")
	assert.Equal(t, "Docs Home", title)
	assert.Contains(t, markdown, "# Getting Started")
	assert.Contains(t, markdown, "Welcome to the docs.")
}

func TestHTMLToMarkdown_PreservesCodeBlocks(t *testing.T) {
	doc := `<body><pre><code>def hello():
    pass</code></pre></body>`

	_, markdown, _ := htmlToMarkdown(doc, "https://example.com/")
	assert.Contains(t, markdown, "```")
	assert.Contains(t, markdown, "def hello():")
}

func TestHTMLToMarkdown_ResolvesRelativeLinks(t *testing.T) {
	doc := `<body><a href="/docs/page2">Page 2</a><a href="https://other.com/x">External</a></body>`

	_, _, links := htmlToMarkdown(doc, "https://example.com/docs/page1")
	assert.Contains(t, links, "https://example.com/docs/page2")
	assert.Contains(t, links, "https://other.com/x")
}

func TestHTMLToMarkdown_SkipsScriptAndStyleContent(t *testing.T) {
	doc := `<body><script>var x = 1;</script><style>.a{color:red}</style><p>Real content.</p></body>`

	_, markdown, _ := htmlToMarkdown(doc, "https://example.com/")
	assert.NotContains(t, markdown, "var x")
	assert.NotContains(t, markdown, "color:red")
	assert.Contains(t, markdown, "Real content.")
}
