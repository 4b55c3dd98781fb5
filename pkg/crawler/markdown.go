package crawler

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// htmlToMarkdown converts an HTML document to a deterministic markdown
// rendering, extracting the page title and absolute outbound links along
// the way. There is no HTML-to-markdown library in the dependency pack, so
// this walks the token stream by hand, the same token-at-a-time style the
// x/net/html package's own examples use.
func htmlToMarkdown(document, pageURL string) (title, markdown string, links []string) {
	base, _ := url.Parse(pageURL)
	tokenizer := html.NewTokenizer(strings.NewReader(document))

	var b strings.Builder
	var linkSet = map[string]bool{}
	var tagStack []string
	inSkip := 0 // depth inside <script>/<style>, content discarded
	listDepth := 0

	flushInline := func(text string) {
		text = collapseSpace(text)
		if text == "" {
			return
		}
		b.WriteString(text)
	}

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return strings.TrimSpace(title), strings.TrimSpace(b.String()), setToSlice(linkSet)

		case html.TextToken:
			if inSkip > 0 {
				continue
			}
			text := string(tokenizer.Text())
			if len(tagStack) > 0 && tagStack[len(tagStack)-1] == "title" {
				title += text
				continue
			}
			if len(tagStack) > 0 && (tagStack[len(tagStack)-1] == "pre" || tagStack[len(tagStack)-1] == "code") {
				b.WriteString(text)
				continue
			}
			flushInline(text)

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := tokenizer.Token()
			name := tok.Data

			switch name {
			case "script", "style", "noscript":
				inSkip++
			case "h1", "h2", "h3", "h4", "h5", "h6":
				level := int(name[1] - '0')
				b.WriteString("\n\n" + strings.Repeat("#", level) + " ")
			case "p", "div", "br":
				b.WriteString("\n\n")
			case "li":
				b.WriteString("\n" + strings.Repeat("  ", listDepth) + "- ")
			case "ul", "ol":
				listDepth++
			case "pre":
				b.WriteString("\n\n```\n")
			case "code":
				if len(tagStack) == 0 || tagStack[len(tagStack)-1] != "pre" {
					b.WriteString("`")
				}
			case "strong", "b":
				b.WriteString("**")
			case "em", "i":
				b.WriteString("*")
			case "a":
				for _, attr := range tok.Attr {
					if attr.Key == "href" {
						if abs := resolveLink(base, attr.Val); abs != "" {
							linkSet[abs] = true
						}
					}
				}
				b.WriteString("[")
			}

			if tt == html.StartTagToken {
				tagStack = append(tagStack, name)
			}

		case html.EndTagToken:
			tok := tokenizer.Token()
			name := tok.Data

			switch name {
			case "script", "style", "noscript":
				if inSkip > 0 {
					inSkip--
				}
			case "pre":
				b.WriteString("\n```\n\n")
			case "code":
				if len(tagStack) < 2 || tagStack[len(tagStack)-2] != "pre" {
					b.WriteString("`")
				}
			case "strong", "b":
				b.WriteString("**")
			case "em", "i":
				b.WriteString("*")
			case "a":
				b.WriteString("]")
			case "ul", "ol":
				if listDepth > 0 {
					listDepth--
				}
			}

			if len(tagStack) > 0 && tagStack[len(tagStack)-1] == name {
				tagStack = tagStack[:len(tagStack)-1]
			}
		}
	}
}

func resolveLink(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	return u.String()
}

func setToSlice(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Join(fields, " ")
}
