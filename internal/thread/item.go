// Package thread reconstructs the discussion structure of a rendered wiki
// talk page: which spans of the DOM are comments, who replied to whom, and
// which heading each exchange belongs to. The output is a ThreadItemSet of
// immutable items carrying stable names and ids usable across revisions.
package thread

import (
	"time"

	"github.com/wikithread/talkparse/internal/dom"
)

// ThreadItem is the read-only surface shared by comments and headings.
type ThreadItem interface {
	// ID is globally unique within one parse: the item's name, plus a
	// disambiguating ordinal when several items share that name. The
	// first same-named item (in document order) keeps the bare name; the
	// k-th gets "-k" appended, k counted from 2.
	ID() string
	// Name is the structural identity: author+timestamp for comments,
	// normalized heading text for headings. Collisions are expected.
	Name() string
	// Range delimits exactly the DOM content belonging to this item.
	Range() dom.Range
	// Level is the item's depth in the reply tree: headings and comments
	// attached directly under a heading are 0, each reply one deeper.
	Level() int
	// Parent is the containing item, nil for top-level headings.
	Parent() ThreadItem
	// Replies lists direct children in document order.
	Replies() []ThreadItem
	// Transcluded reports whether the item's HTML was pulled in via
	// template transclusion, and from which page when that is known
	// (empty string means "transcluded from an unknown source").
	Transcluded() (bool, string)
}

// itemBase carries the shared fields. The builder (same package) populates
// them during the single parse pass; they are never written afterwards.
type itemBase struct {
	id              string
	name            string
	rng             dom.Range
	level           int
	parent          ThreadItem
	replies         []ThreadItem
	transcluded     bool
	transcludedFrom string
}

func (b *itemBase) ID() string                  { return b.id }
func (b *itemBase) Name() string                { return b.name }
func (b *itemBase) Range() dom.Range            { return b.rng }
func (b *itemBase) Level() int                  { return b.level }
func (b *itemBase) Parent() ThreadItem          { return b.parent }
func (b *itemBase) Replies() []ThreadItem       { return b.replies }
func (b *itemBase) Transcluded() (bool, string) { return b.transcluded, b.transcludedFrom }

// CommentItem is one authored comment, delimited by its signature.
type CommentItem struct {
	itemBase
	author    string
	timestamp time.Time
}

// Author is the signing user's display name.
func (c *CommentItem) Author() string { return c.author }

// Timestamp is the signature time, normalized to UTC.
func (c *CommentItem) Timestamp() time.Time { return c.timestamp }

// PlaceholderHeadingLevel marks the synthetic heading covering a page's
// lead section, which has no real heading element. Real headings are 1-6.
const PlaceholderHeadingLevel = 0

// HeadingItem roots one thread: the heading plus all comments beneath it.
type HeadingItem struct {
	itemBase
	headingLevel int
	placeholder  bool
	uneditable   bool
}

// HeadingLevel is 1-6 for real headings, PlaceholderHeadingLevel for the
// synthesized lead-section heading.
func (h *HeadingItem) HeadingLevel() int { return h.headingLevel }

// PlaceholderHeading reports whether this heading was synthesized for
// content above the page's first real heading.
func (h *HeadingItem) PlaceholderHeading() bool { return h.placeholder }

// UneditableSection reports whether the section under this heading cannot
// be edited in place, e.g. because it is transcluded from another page.
func (h *HeadingItem) UneditableSection() bool { return h.uneditable }
