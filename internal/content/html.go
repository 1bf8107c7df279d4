package content

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags end a paragraph.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "pre": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "tr": true, "hr": true, "section": true, "article": true,
}

// LooksLikeHTML reports whether s appears to contain markup.
func LooksLikeHTML(s string) bool {
	i := strings.Index(s, "<")
	return i >= 0 && strings.Contains(s[i:], ">")
}

// HTMLToText flattens HTML into plain text, one paragraph per line. List
// items are prefixed with "* " and headings are upper-cased.
func HTMLToText(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return src
	}

	var paras []string
	var cur strings.Builder
	flush := func() {
		t := strings.Join(strings.Fields(cur.String()), " ")
		cur.Reset()
		if t != "" {
			paras = append(paras, t)
		}
	}

	var walk func(n *html.Node, upper bool)
	walk = func(n *html.Node, upper bool) {
		switch n.Type {
		case html.TextNode:
			text := n.Data
			if upper {
				text = strings.ToUpper(text)
			}
			cur.WriteString(text)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head":
				return
			}
			if blockTags[n.Data] {
				flush()
			}
			if n.Data == "li" {
				cur.WriteString("* ")
			}
			if len(n.Data) == 2 && n.Data[0] == 'h' && n.Data[1] >= '1' && n.Data[1] <= '6' {
				upper = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, upper)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			flush()
		}
	}
	walk(doc, false)
	flush()
	return strings.Join(paras, "\n\n")
}
