package scraper

import (
	"strings"

	"golang.org/x/net/html"
)

// The selectors in config are simple descendant chains of `tag`, `#id`
// and `.class` parts, which is all the product page needs.

type simpleSelector struct {
	tag     string
	id      string
	classes []string
}

func parseSelector(selector string) []simpleSelector {
	var chain []simpleSelector
	for _, part := range strings.Fields(selector) {
		var sel simpleSelector
		for part != "" {
			rest := strings.IndexAny(part[1:], "#.")
			var token string
			if rest == -1 {
				token, part = part, ""
			} else {
				token, part = part[:rest+1], part[rest+1:]
			}
			switch token[0] {
			case '#':
				sel.id = token[1:]
			case '.':
				sel.classes = append(sel.classes, token[1:])
			default:
				sel.tag = token
			}
		}
		chain = append(chain, sel)
	}
	return chain
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func matches(n *html.Node, sel simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if sel.tag != "" && n.Data != sel.tag {
		return false
	}
	if sel.id != "" && attr(n, "id") != sel.id {
		return false
	}
	if len(sel.classes) > 0 {
		have := strings.Fields(attr(n, "class"))
		for _, want := range sel.classes {
			found := false
			for _, c := range have {
				if c == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func findFirst(n *html.Node, chain []simpleSelector) *html.Node {
	if matches(n, chain[0]) {
		if len(chain) == 1 {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := findFirst(c, chain[1:]); found != nil {
				return found
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, chain); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

// SelectText returns the trimmed text of the first node matching the
// selector, or "" when nothing matches.
func SelectText(doc *html.Node, selector string) string {
	chain := parseSelector(selector)
	if len(chain) == 0 {
		return ""
	}
	node := findFirst(doc, chain)
	if node == nil {
		return ""
	}
	return strings.TrimSpace(textContent(node))
}
