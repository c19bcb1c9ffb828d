package dom

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// GeneratedClassPrefix marks elements this system inserts itself (reply
// links, annotations). Such nodes are never treated as authored content.
const GeneratedClassPrefix = "talkparse-"

// GeneratedAttr is the attribute form of the same marker, for elements
// whose class list is controlled by other tooling.
const GeneratedAttr = "data-talkparse-generated"

var blockElements = map[string]bool{
	"div": true, "p": true, "blockquote": true, "pre": true,
	"table": true, "caption": true, "colgroup": true, "col": true,
	"thead": true, "tbody": true, "tfoot": true, "tr": true, "th": true, "td": true,
	"ul": true, "ol": true, "li": true, "dl": true, "dt": true, "dd": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"hr": true, "figure": true, "figcaption": true, "address": true,
	"article": true, "aside": true, "details": true, "summary": true,
	"fieldset": true, "form": true, "footer": true, "header": true,
	"hgroup": true, "main": true, "menu": true, "nav": true, "section": true,
	"center": true, "button": true, "canvas": true,
}

// Void and raw-text elements, which can never contain element children.
var atomicElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
	"script": true, "style": true, "textarea": true, "title": true,
}

var transparentLinkRel = regexp.MustCompile(`(?:^|\s)mw:PageProp/(?:Category|redirect|Language)(?:\s|$)`)

// Classes added by templates whose content is never part of a discussion.
var nonCommentClasses = []string{"mw-notalk", "outdent-template"}

// Attr returns the value of the named attribute, or "" when absent.
func Attr(n *html.Node, key string) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasClass reports whether the element carries the given class token.
func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// IsBlockElement reports whether the node renders as a block-level box.
func IsBlockElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && blockElements[n.Data]
}

// TextContent concatenates all text descendants of n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	LinearWalk(n, func(ev WalkEvent, m *html.Node) bool {
		if ev == Leave && m == n {
			return true
		}
		if ev == Enter && m.Type == html.TextNode {
			b.WriteString(m.Data)
		}
		return false
	})
	return b.String()
}

// IsRenderingTransparentNode reports whether the node produces no visible
// rendering: HTML comments, <meta>, page-property <link> markers, and empty
// inline transclusion wrapper <span>s. Empty wrapper spans that open a
// non-empty transclusion group (the next sibling continues the same
// about-group) are not transparent, because they anchor the group's range.
func IsRenderingTransparentNode(n *html.Node) bool {
	if n == nil {
		return false
	}
	if n.Type == html.CommentNode {
		return true
	}
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "meta":
		return true
	case "link":
		return transparentLinkRel.MatchString(Attr(n, "rel"))
	case "span":
		about := Attr(n, "about")
		if about == "" || strings.TrimSpace(TextContent(n)) != "" {
			return false
		}
		next := n.NextSibling
		return next == nil || Attr(next, "about") != about
	}
	return false
}

// IsOurGeneratedNode reports whether this system inserted the node itself.
func IsOurGeneratedNode(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if Attr(n, GeneratedAttr) != "" {
		return true
	}
	for _, c := range strings.Fields(Attr(n, "class")) {
		if strings.HasPrefix(c, GeneratedClassPrefix) {
			return true
		}
	}
	return false
}

// CantHaveElementChildren reports whether the element never contains element
// children: void and raw-text elements, <figure>, and thumbnail wrapper
// <a>/<span> elements whose first child already satisfies this predicate.
func CantHaveElementChildren(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if atomicElements[n.Data] || n.Data == "figure" {
		return true
	}
	if n.Data == "a" || n.Data == "span" {
		return n.FirstChild != nil && CantHaveElementChildren(n.FirstChild)
	}
	return false
}

// IsCommentSeparator reports whether the node splits or pads discussion
// content without being part of any comment: line breaks and rules,
// TemplateStyles nodes leading into another separator, template content
// classed as not-talk, and single-<dt> definition lists used as fake
// headings.
func IsCommentSeparator(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "br", "hr":
		return true
	case "link", "style":
		if isTemplateStyles(n) {
			return n.NextSibling != nil && IsCommentSeparator(n.NextSibling)
		}
	case "dl":
		if dt := soleElementChild(n); dt != nil && dt.Data == "dt" {
			return true
		}
	}
	for _, c := range nonCommentClasses {
		if HasClass(n, c) {
			return true
		}
	}
	return false
}

func isTemplateStyles(n *html.Node) bool {
	if n.Data == "style" {
		return strings.Contains(Attr(n, "typeof"), "mw:Extension/templatestyles")
	}
	return strings.Contains(Attr(n, "rel"), "mw-deduplicated-inline-style")
}

func soleElementChild(n *html.Node) *html.Node {
	var found *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			if found != nil {
				return nil
			}
			found = c
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return nil
			}
		}
	}
	return found
}

// IsCommentContent reports whether the node carries authored content: a
// non-blank text node, or an atomic leaf element such as an inline image.
func IsCommentContent(n *html.Node) bool {
	if n == nil {
		return false
	}
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data) != ""
	}
	return CantHaveElementChildren(n)
}

// IndentLevel counts the list-nesting constructs strictly between node and
// root: <li> and <dd> ancestors, plus any list element sitting directly
// inside another list. The latter form appears when a reply list is written
// as a sibling of the item it answers instead of inside it; both forms
// indent the reply one level. Talk-page convention renders each reply one
// list level deeper than the comment it answers, so this count is the raw
// reply-depth evidence.
func IndentLevel(node, root *html.Node) int {
	level := 0
	for p := node; p != nil && p != root; p = p.Parent {
		if p == node || p.Type != html.ElementNode {
			continue
		}
		switch p.Data {
		case "li", "dd":
			level++
		case "ul", "ol", "dl":
			if isListContainer(p.Parent) {
				level++
			}
		}
	}
	return level
}

func isListContainer(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	return n.Data == "ul" || n.Data == "ol" || n.Data == "dl"
}
