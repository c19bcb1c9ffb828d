package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Range is an immutable pair of boundary points over a node tree, marking a
// span in document order. Offsets count children for element containers and
// bytes of Data for text containers. A Range is a snapshot: it never tracks
// later tree mutations (the tree is read-only here anyway).
//
// Invariant: the start boundary is not after the end boundary. Constructing
// a reversed range is a programming error.
type Range struct {
	StartContainer *html.Node
	StartOffset    int
	EndContainer   *html.Node
	EndOffset      int
}

// NewRange builds a range from its four coordinates.
func NewRange(startContainer *html.Node, startOffset int, endContainer *html.Node, endOffset int) Range {
	return Range{
		StartContainer: startContainer,
		StartOffset:    startOffset,
		EndContainer:   endContainer,
		EndOffset:      endOffset,
	}
}

// Collapsed reports whether start and end are the same point.
func (r Range) Collapsed() bool {
	return r.StartContainer == r.EndContainer && r.StartOffset == r.EndOffset
}

// RangeRelationship is the outcome of comparing two ranges. The seven values
// are mutually exclusive and exhaustive for well-formed range pairs.
type RangeRelationship string

const (
	RangesEqual        RangeRelationship = "equal"
	RangesContains     RangeRelationship = "contains"
	RangesContained    RangeRelationship = "contained"
	RangesBefore       RangeRelationship = "before"
	RangesAfter        RangeRelationship = "after"
	RangesOverlapStart RangeRelationship = "overlapstart"
	RangesOverlapEnd   RangeRelationship = "overlapend"
)

// endOffset is the exclusive upper bound for offsets within n.
func endOffset(n *html.Node) int {
	if n.Type == html.TextNode {
		return len(n.Data)
	}
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}

// ChildIndex returns n's position among its parent's children.
func ChildIndex(n *html.Node) int { return childIndex(n) }

// ChildAt returns the idx-th child of n, or nil past the end.
func ChildAt(n *html.Node, idx int) *html.Node { return childAt(n, idx) }

func childIndex(n *html.Node) int {
	i := 0
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		i++
	}
	return i
}

func childAt(n *html.Node, idx int) *html.Node {
	c := n.FirstChild
	for i := 0; c != nil && i < idx; i++ {
		c = c.NextSibling
	}
	return c
}

// ancestorChain returns the path from the tree root down to n, inclusive.
func ancestorChain(n *html.Node) []*html.Node {
	var chain []*html.Node
	for p := n; p != nil; p = p.Parent {
		chain = append(chain, p)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// CompareBoundaries orders two boundary points in document order, returning
// -1, 0 or 1. Both points must belong to the same tree.
func CompareBoundaries(aNode *html.Node, aOffset int, bNode *html.Node, bOffset int) int {
	if aNode == bNode {
		switch {
		case aOffset < bOffset:
			return -1
		case aOffset > bOffset:
			return 1
		}
		return 0
	}

	aChain := ancestorChain(aNode)
	bChain := ancestorChain(bNode)
	i := 0
	for i < len(aChain) && i < len(bChain) && aChain[i] == bChain[i] {
		i++
	}

	switch {
	case i == len(aChain):
		// aNode is an ancestor of bNode; compare aOffset against the
		// child of aNode leading toward bNode.
		if aOffset <= childIndex(bChain[i]) {
			return -1
		}
		return 1
	case i == len(bChain):
		if childIndex(aChain[i]) < bOffset {
			return -1
		}
		return 1
	default:
		if childIndex(aChain[i]) < childIndex(bChain[i]) {
			return -1
		}
		return 1
	}
}

// CompareRanges classifies the relationship of a to b as one of the seven
// RangeRelationship values. Boundaries that differ only by separator,
// rendering-transparent or generated nodes (with no authored content
// between them) are treated as equal, so a stray category link or empty
// transclusion marker between two adjacent comments does not turn clean
// adjacency into a spurious overlap.
//
// Reaching none of the seven cases means the comparison state is internally
// inconsistent; that is reported as an error and must abort the caller's
// computation rather than default to any relationship.
func CompareRanges(a, b Range) (RangeRelationship, error) {
	startToStart := compareFuzzy(a.StartContainer, a.StartOffset, b.StartContainer, b.StartOffset)
	endToEnd := compareFuzzy(a.EndContainer, a.EndOffset, b.EndContainer, b.EndOffset)
	startToEnd := CompareBoundaries(a.StartContainer, a.StartOffset, b.EndContainer, b.EndOffset)
	endToStart := CompareBoundaries(a.EndContainer, a.EndOffset, b.StartContainer, b.StartOffset)

	switch {
	case startToStart == 0 && endToEnd == 0:
		return RangesEqual, nil
	case startToStart <= 0 && endToEnd >= 0:
		return RangesContains, nil
	case startToStart >= 0 && endToEnd <= 0:
		return RangesContained, nil
	case endToStart <= 0:
		return RangesBefore, nil
	case startToEnd >= 0:
		return RangesAfter, nil
	case startToStart <= 0 && endToStart >= 0 && endToEnd <= 0:
		return RangesOverlapStart, nil
	case startToStart >= 0 && startToEnd <= 0 && endToEnd >= 0:
		return RangesOverlapEnd, nil
	}
	return "", fmt.Errorf("dom: range comparison reached an impossible state (%v vs %v)", a, b)
}

// compareFuzzy is CompareBoundaries with the almost-equal tolerance applied:
// unequal boundaries collapse to 0 when nothing interesting sits between.
func compareFuzzy(aNode *html.Node, aOffset int, bNode *html.Node, bOffset int) int {
	cmp := CompareBoundaries(aNode, aOffset, bNode, bOffset)
	if cmp == 0 {
		return 0
	}
	if cmp < 0 {
		if almostEqualBoundaries(aNode, aOffset, bNode, bOffset) {
			return 0
		}
	} else if almostEqualBoundaries(bNode, bOffset, aNode, aOffset) {
		return 0
	}
	return cmp
}

// almostEqualBoundaries walks forward from boundary a (the earlier one)
// toward boundary b, skipping separator, transparent and generated subtrees.
// It reports true when b is reached without meeting authored content. The
// skip state is tracked explicitly: once a skippable element is entered its
// whole subtree is ignored until the matching leave event.
func almostEqualBoundaries(aNode *html.Node, aOffset int, bNode *html.Node, bOffset int) bool {
	if aNode == bNode && aNode.Type == html.TextNode {
		return strings.TrimSpace(aNode.Data[aOffset:bOffset]) == ""
	}
	if aNode.Type == html.TextNode && aOffset < len(aNode.Data) {
		if strings.TrimSpace(aNode.Data[aOffset:]) != "" {
			return false
		}
	}
	if bNode.Type == html.TextNode && bOffset > 0 {
		if strings.TrimSpace(bNode.Data[:bOffset]) != "" {
			return false
		}
	}

	// Cursor state mirrors LinearWalk, but starts exactly at boundary a.
	var within, before *html.Node
	if aNode.Type == html.TextNode {
		within, before = aNode, nil
	} else {
		within, before = aNode, childAt(aNode, aOffset)
	}

	var skipping *html.Node
	for before != nil || within != nil {
		if before != nil {
			n := before
			if boundaryAtEnter(n, bNode, bOffset) {
				return true
			}
			if skipping == nil {
				if IsRenderingTransparentNode(n) || IsCommentSeparator(n) || IsOurGeneratedNode(n) {
					skipping = n
				} else if IsCommentContent(n) {
					return false
				}
			}
			within, before = n, n.FirstChild
		} else {
			n := within
			if boundaryAtLeave(n, bNode, bOffset) {
				return true
			}
			if skipping == n {
				skipping = nil
			}
			before, within = n.NextSibling, n.Parent
		}
	}
	return false
}

// boundaryAtEnter reports whether entering n reaches boundary (bNode,
// bOffset): either the boundary points at n from its parent, or it sits at
// (or within a blank prefix of) n itself.
func boundaryAtEnter(n, bNode *html.Node, bOffset int) bool {
	if bNode == n && (n.Type == html.TextNode || bOffset == 0) {
		return true
	}
	return bNode == n.Parent && childIndex(n) == bOffset
}

// boundaryAtLeave reports whether leaving n reaches the boundary: the end of
// n itself, or the point just after n in its parent.
func boundaryAtLeave(n, bNode *html.Node, bOffset int) bool {
	if bNode == n && bOffset == endOffset(n) {
		return true
	}
	return bNode == n.Parent && childIndex(n)+1 == bOffset
}

// CoveredSiblings returns the sibling run under the closest common ancestor
// of the range's boundaries that together cover the range, outermost
// first-to-last. A collapsed range covers nothing.
func CoveredSiblings(r Range) []*html.Node {
	if r.Collapsed() {
		return nil
	}
	startChain := ancestorChain(r.StartContainer)
	endChain := ancestorChain(r.EndContainer)
	i := 0
	for i < len(startChain) && i < len(endChain) && startChain[i] == endChain[i] {
		i++
	}
	common := startChain[i-1]

	var first, last *html.Node
	if i == len(startChain) {
		first = childAt(common, r.StartOffset)
	} else {
		first = startChain[i]
	}
	if i == len(endChain) {
		last = childAt(common, r.EndOffset-1)
	} else {
		last = endChain[i]
	}
	if first == nil || last == nil {
		return nil
	}

	var siblings []*html.Node
	for n := first; n != nil; n = n.NextSibling {
		siblings = append(siblings, n)
		if n == last {
			break
		}
	}
	return siblings
}

// FullyCoveredSiblings returns the minimal standalone node set representing
// exactly the given range: the covered siblings when they match the range
// precisely (under the almost-equal tolerance), climbed upward to a single
// parent for as long as that parent's full extent still equals the range and
// the parent is not excludedAncestor. Returns nil when the range does not
// align with whole nodes.
func FullyCoveredSiblings(r Range, excludedAncestor *html.Node) ([]*html.Node, error) {
	siblings := CoveredSiblings(r)
	if len(siblings) == 0 {
		return nil, nil
	}

	rel, err := CompareRanges(siblingRange(siblings), r)
	if err != nil {
		return nil, err
	}
	if rel != RangesEqual {
		return nil, nil
	}

	for {
		parent := siblings[0].Parent
		if parent == nil || parent == excludedAncestor {
			break
		}
		rel, err := CompareRanges(siblingRange([]*html.Node{parent}), r)
		if err != nil {
			return nil, err
		}
		if rel != RangesEqual {
			break
		}
		siblings = []*html.Node{parent}
	}
	return siblings, nil
}

// siblingRange spans the given sibling run, boundaries expressed in the
// parent's child list.
func siblingRange(siblings []*html.Node) Range {
	first, last := siblings[0], siblings[len(siblings)-1]
	return NewRange(first.Parent, childIndex(first), last.Parent, childIndex(last)+1)
}
