package thread

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/wikithread/talkparse/internal/dom"
)

// Config is the immutable per-wiki configuration a Parser needs: link
// resolution and locale tables. One Config may serve concurrent parses.
type Config struct {
	// ArticlePath is the wiki's article URL template, e.g. "/wiki/$1".
	ArticlePath string

	// UserNamespaces are the localized namespace names whose pages
	// identify a user, e.g. "User", "User talk".
	UserNamespaces []string

	// ContribsPages are the special-page prefixes linking to a user's
	// contributions, e.g. "Special:Contributions".
	ContribsPages []string

	Locale Locale
}

// DefaultConfig returns the configuration for an English-language wiki with
// the standard /wiki/$1 article path.
func DefaultConfig() Config {
	return Config{
		ArticlePath:    "/wiki/$1",
		UserNamespaces: []string{"User", "User talk"},
		ContribsPages:  []string{"Special:Contributions"},
		Locale:         EnglishLocale(),
	}
}

// Parser turns one rendered talk-page document into a ThreadItemSet. It is
// stateless between calls; concurrent Parse calls on different documents
// are safe.
type Parser struct {
	cfg     Config
	matcher *timestampMatcher
}

// NewParser compiles the locale's timestamp pattern and returns a ready
// parser.
func NewParser(cfg Config) (*Parser, error) {
	m, err := newTimestampMatcher(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("thread: %w", err)
	}
	return &Parser{cfg: cfg, matcher: m}, nil
}

// FindContainer locates the discussion container in a parsed document: the
// Parsoid content wrapper when present, otherwise <body>, otherwise the
// document itself. Returns nil for an unwalkable document.
func FindContainer(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	var wrapper, body *html.Node
	dom.LinearWalk(doc, func(ev dom.WalkEvent, n *html.Node) bool {
		if ev != dom.Enter || n.Type != html.ElementNode {
			return false
		}
		if dom.HasClass(n, "mw-parser-output") {
			wrapper = n
			return true
		}
		if n.Data == "body" && body == nil {
			body = n
		}
		return false
	})
	if wrapper != nil {
		return wrapper
	}
	if body != nil {
		return body
	}
	return doc
}

// Parse walks the document once and reconstructs its discussion structure.
// A document with no recognizable discussion yields an empty set; that is a
// valid outcome, not an error. Partial sets are never returned.
func (p *Parser) Parse(doc *html.Node) (*ThreadItemSet, error) {
	set := NewThreadItemSet()
	container := FindContainer(doc)
	if container == nil {
		set.updateIDAndNameMaps()
		return set, nil
	}

	b := &builder{
		p:          p,
		container:  container,
		set:        set,
		prevEndCtr: container,
	}
	dom.LinearWalk(container, func(ev dom.WalkEvent, n *html.Node) bool {
		return b.visit(ev, n)
	})
	if b.err != nil {
		return nil, b.err
	}

	set.updateIDAndNameMaps()
	return set, nil
}

// builder is the single-pass walk state.
type builder struct {
	p         *Parser
	container *html.Node
	set       *ThreadItemSet

	curHeading *HeadingItem
	stack      []openComment

	// End boundary of the last item; the next comment's range starts here.
	prevEndCtr *html.Node
	prevEndOff int

	// Subtree currently being skipped (heading content, notalk blocks,
	// our own generated UI).
	skip *html.Node

	// First invariant failure; aborts the walk and fails the parse.
	err error
}

// openComment tracks a comment still eligible to receive replies, with the
// raw list-nesting depth its signature was found at.
type openComment struct {
	comment *CommentItem
	indent  int
}

func (b *builder) visit(ev dom.WalkEvent, n *html.Node) bool {
	if b.skip != nil {
		if ev == dom.Leave && n == b.skip {
			b.skip = nil
		}
		return false
	}
	if ev == dom.Leave {
		return n == b.container
	}
	if n == b.container {
		return false
	}

	switch n.Type {
	case html.ElementNode:
		if lvl := headingLevel(n.Data); lvl > 0 {
			b.addHeading(n, lvl)
			b.skip = n
			return false
		}
		if dom.IsOurGeneratedNode(n) || hasNonCommentClass(n) {
			b.skip = n
		}
	case html.TextNode:
		for _, m := range b.p.matcher.FindAll(n.Data) {
			if err := b.addComment(n, m); err != nil {
				b.err = err
				return true
			}
		}
	}
	return false
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// hasNonCommentClass matches template content that never holds discussion.
func hasNonCommentClass(n *html.Node) bool {
	return dom.HasClass(n, "mw-notalk")
}

func (b *builder) addHeading(n *html.Node, lvl int) {
	h := &HeadingItem{
		itemBase: itemBase{
			name:  "h-" + normalizeName(dom.TextContent(n)),
			rng:   dom.NewRange(n.Parent, dom.ChildIndex(n), n.Parent, dom.ChildIndex(n)+1),
			level: 0,
		},
		headingLevel: lvl,
	}
	h.transcluded, h.transcludedFrom = b.transcludedFrom(n)
	h.uneditable = h.transcluded
	b.set.addThreadItem(h)
	b.curHeading = h
	b.stack = b.stack[:0]
	b.prevEndCtr, b.prevEndOff = n.Parent, dom.ChildIndex(n)+1
}

// placeholderHeading synthesizes the thread root for comments appearing in
// the lead section, above any real heading. Its range is collapsed at the
// container start, so it never reports as transcluded.
func (b *builder) placeholderHeading() *HeadingItem {
	h := &HeadingItem{
		itemBase: itemBase{
			name: "h-",
			rng:  dom.NewRange(b.container, 0, b.container, 0),
		},
		headingLevel: PlaceholderHeadingLevel,
		placeholder:  true,
	}
	b.set.addThreadItem(h)
	return h
}

func (b *builder) addComment(tsNode *html.Node, m TimestampMatch) error {
	author, afterLink := b.findAuthor(tsNode)
	if author == "" {
		// A timestamp with no adjacent author reference is not a
		// signature (e.g. a quoted date).
		return nil
	}

	if b.curHeading == nil {
		b.curHeading = b.placeholderHeading()
	}

	endCtr, endOff := tsNode, m.End
	if afterLink != nil {
		endCtr, endOff = afterLink.Parent, dom.ChildIndex(afterLink)+1
	}
	startCtr, startOff := b.trimStart(b.prevEndCtr, b.prevEndOff, endCtr, endOff)

	indent := dom.IndentLevel(tsNode, b.container)
	for len(b.stack) > 0 && b.stack[len(b.stack)-1].indent >= indent {
		b.stack = b.stack[:len(b.stack)-1]
	}

	c := &CommentItem{
		itemBase: itemBase{
			rng: dom.NewRange(startCtr, startOff, endCtr, endOff),
		},
		author:    author,
		timestamp: m.Time,
	}
	c.name = "c-" + normalizeName(author) + "-" + m.Time.Format("2006-01-02T15:04:05Z")
	var err error
	c.transcluded, c.transcludedFrom, err = b.commentTranscludedFrom(c)
	if err != nil {
		return err
	}

	if len(b.stack) > 0 {
		parent := b.stack[len(b.stack)-1].comment
		c.parent = parent
		c.level = parent.level + 1
		parent.replies = append(parent.replies, c)
	} else {
		c.parent = b.curHeading
		c.level = 0
		b.curHeading.replies = append(b.curHeading.replies, c)
	}

	b.stack = append(b.stack, openComment{comment: c, indent: indent})
	b.set.addThreadItem(c)
	b.prevEndCtr, b.prevEndOff = endCtr, endOff
	return nil
}

// commentTranscludedFrom resolves a comment's transclusion state: first by
// the end boundary's about-group ancestry (a signature inside transcluded
// HTML marks the comment), then by whole-range coverage, for comments whose
// content is exactly a run of transcluded siblings.
func (b *builder) commentTranscludedFrom(c *CommentItem) (bool, string, error) {
	if tr, from := b.transcludedFrom(c.rng.EndContainer); tr {
		return tr, from, nil
	}
	siblings, err := dom.FullyCoveredSiblings(c.rng, b.container)
	if err != nil {
		return false, "", err
	}
	if len(siblings) == 0 {
		return false, "", nil
	}
	about := dom.Attr(siblings[0], "about")
	if !strings.HasPrefix(about, "#mwt") {
		return false, "", nil
	}
	for _, s := range siblings[1:] {
		if dom.Attr(s, "about") != about {
			return false, "", nil
		}
	}
	tr, from := b.transcludedFrom(siblings[0])
	return tr, from, nil
}

// trimStart advances a comment's start boundary past separator-only
// content: blank text, rules, transparent markers and generated nodes. It
// never crosses the comment's end boundary and never descends into content.
func (b *builder) trimStart(ctr *html.Node, off int, endCtr *html.Node, endOff int) (*html.Node, int) {
	for dom.CompareBoundaries(ctr, off, endCtr, endOff) < 0 {
		if ctr.Type == html.TextNode {
			if off < len(ctr.Data) && strings.TrimSpace(ctr.Data[off:]) != "" {
				return ctr, off
			}
			if ctr.Parent == nil {
				return ctr, off
			}
			ctr, off = ctr.Parent, dom.ChildIndex(ctr)+1
			continue
		}
		next := dom.ChildAt(ctr, off)
		if next == nil {
			if ctr == b.container || ctr.Parent == nil {
				return ctr, off
			}
			ctr, off = ctr.Parent, dom.ChildIndex(ctr)+1
			continue
		}
		if next.Type == html.TextNode && strings.TrimSpace(next.Data) == "" {
			off++
			continue
		}
		if dom.IsRenderingTransparentNode(next) || dom.IsCommentSeparator(next) || dom.IsOurGeneratedNode(next) {
			off++
			continue
		}
		return ctr, off
	}
	return ctr, off
}

// findAuthor resolves the signing user around a timestamp: the nearest
// user-page link before it within the enclosing block, or failing that the
// first one after it (some signatures place the name last). Links belonging
// to earlier comments, before the previous item's end boundary, are
// ignored. When the author link follows the timestamp it is returned so the
// comment range can be extended over it.
func (b *builder) findAuthor(tsNode *html.Node) (string, *html.Node) {
	block := b.closestBlock(tsNode)
	var beforeName, afterName string
	var afterLink *html.Node
	reached := false

	dom.LinearWalk(block, func(ev dom.WalkEvent, n *html.Node) bool {
		if ev == dom.Leave {
			return n == block
		}
		if n == tsNode {
			reached = true
			return false
		}
		if reached && n.Type == html.TextNode && len(b.p.matcher.FindAll(n.Data)) > 0 {
			// The next comment's signature starts; stop before
			// claiming its author link.
			return true
		}
		if n.Type != html.ElementNode || n.Data != "a" {
			return false
		}
		name, ok := b.p.usernameFromLink(n)
		if !ok {
			return false
		}
		if dom.CompareBoundaries(n, 0, b.prevEndCtr, b.prevEndOff) < 0 {
			return false
		}
		if !reached {
			beforeName = name
		} else if afterLink == nil {
			afterName, afterLink = name, n
			return true
		}
		return false
	})

	if beforeName != "" {
		return beforeName, nil
	}
	return afterName, afterLink
}

func (b *builder) closestBlock(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == b.container || dom.IsBlockElement(p) {
			return p
		}
	}
	return b.container
}

// usernameFromLink extracts a user name from a link to a user page, user
// talk page or contributions page. Subpages do not identify a user.
func (p *Parser) usernameFromLink(a *html.Node) (string, bool) {
	title, ok := p.titleFromHref(dom.Attr(a, "href"))
	if !ok {
		return "", false
	}
	ns, rest, found := strings.Cut(title, ":")
	if !found {
		return "", false
	}
	ns = strings.TrimSpace(ns)
	for _, userNS := range p.cfg.UserNamespaces {
		if strings.EqualFold(ns, userNS) {
			if rest == "" || strings.Contains(rest, "/") {
				return "", false
			}
			return rest, true
		}
	}
	for _, contribs := range p.cfg.ContribsPages {
		if rest, ok := strings.CutPrefix(title, contribs+"/"); ok && rest != "" {
			return rest, true
		}
	}
	return "", false
}

// titleFromHref resolves a page title from a link target: Parsoid-relative
// ("./Title"), article-path ("/wiki/Title") or absolute URLs.
func (p *Parser) titleFromHref(href string) (string, bool) {
	if href == "" {
		return "", false
	}
	if rest, ok := strings.CutPrefix(href, "./"); ok {
		return decodeTitle(rest)
	}

	path := href
	if strings.Contains(href, "://") || strings.HasPrefix(href, "//") {
		u, err := url.Parse(href)
		if err != nil {
			return "", false
		}
		path = u.Path
	}
	prefix, _, _ := strings.Cut(p.cfg.ArticlePath, "$1")
	if rest, ok := strings.CutPrefix(path, prefix); ok && rest != "" {
		return decodeTitle(rest)
	}
	return "", false
}

func decodeTitle(s string) (string, bool) {
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return "", false
	}
	return s, true
}

// transcludedFrom resolves whether a node's HTML was pulled in via template
// transclusion: climb to the nearest ancestor carrying a transclusion
// about-group id, jump to the first sibling of that group, and inspect its
// transclusion marker for the source page.
func (b *builder) transcludedFrom(n *html.Node) (bool, string) {
	var marked *html.Node
	var about string
	for p := n; p != nil && p != b.container; p = p.Parent {
		if a := dom.Attr(p, "about"); strings.HasPrefix(a, "#mwt") {
			marked, about = p, a
			break
		}
	}
	if marked == nil {
		return false, ""
	}

	first := marked
	for s := marked.PrevSibling; s != nil; s = s.PrevSibling {
		if dom.Attr(s, "about") == about {
			first = s
		}
	}
	if !strings.Contains(dom.Attr(first, "typeof"), "mw:Transclusion") {
		return true, ""
	}

	var dataMW struct {
		Parts []struct {
			Template struct {
				Target struct {
					Href string `json:"href"`
				} `json:"target"`
			} `json:"template"`
		} `json:"parts"`
	}
	if err := json.Unmarshal([]byte(dom.Attr(first, "data-mw")), &dataMW); err == nil {
		for _, part := range dataMW.Parts {
			if href := part.Template.Target.Href; href != "" {
				return true, strings.TrimPrefix(href, "./")
			}
		}
	}
	return true, ""
}

// normalizeName collapses whitespace runs to single underscores, producing
// the identifier form used in item names.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(s), "_")
}
