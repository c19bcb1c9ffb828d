package dom

import (
	"testing"

	"golang.org/x/net/html"
)

func textRange(n *html.Node, start, end int) Range {
	return NewRange(n, start, n, end)
}

func TestCompareBoundaries_SameNode(t *testing.T) {
	n := &html.Node{Type: html.TextNode, Data: "abcdef"}
	if got := CompareBoundaries(n, 1, n, 4); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
	if got := CompareBoundaries(n, 4, n, 1); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := CompareBoundaries(n, 2, n, 2); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestCompareBoundaries_AcrossTree(t *testing.T) {
	body := parseBody(t, "<p>one</p><p>two</p>")
	p1 := body.FirstChild
	p2 := p1.NextSibling
	one := p1.FirstChild
	two := p2.FirstChild

	if got := CompareBoundaries(one, 1, two, 0); got != -1 {
		t.Errorf("expected text in first paragraph to come first, got %d", got)
	}
	if got := CompareBoundaries(two, 0, one, 1); got != 1 {
		t.Errorf("expected mirror comparison to be 1, got %d", got)
	}
	// Boundary in an ancestor vs. inside a child.
	if got := CompareBoundaries(body, 1, one, 2); got != 1 {
		t.Errorf("expected boundary after first paragraph to follow its text, got %d", got)
	}
	if got := CompareBoundaries(body, 0, one, 0); got != -1 {
		t.Errorf("expected container start to precede text start, got %d", got)
	}
}

func TestCompareRanges_TextRelationships(t *testing.T) {
	n := &html.Node{Type: html.TextNode, Data: "abcdef"}
	parent := &html.Node{Type: html.ElementNode, Data: "p"}
	parent.AppendChild(n)

	cases := []struct {
		name string
		a, b Range
		want RangeRelationship
	}{
		{"equal", textRange(n, 0, 3), textRange(n, 0, 3), RangesEqual},
		{"before", textRange(n, 0, 3), textRange(n, 3, 6), RangesBefore},
		{"after", textRange(n, 3, 6), textRange(n, 0, 3), RangesAfter},
		{"contains", textRange(n, 0, 6), textRange(n, 2, 4), RangesContains},
		{"contained", textRange(n, 2, 4), textRange(n, 0, 6), RangesContained},
		{"overlapstart", textRange(n, 0, 4), textRange(n, 2, 6), RangesOverlapStart},
		{"overlapend", textRange(n, 2, 6), textRange(n, 0, 4), RangesOverlapEnd},
	}
	for _, tc := range cases {
		got, err := CompareRanges(tc.a, tc.b)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestCompareRanges_Mirror(t *testing.T) {
	n := &html.Node{Type: html.TextNode, Data: "abcdef"}
	parent := &html.Node{Type: html.ElementNode, Data: "p"}
	parent.AppendChild(n)

	mirror := map[RangeRelationship]RangeRelationship{
		RangesEqual:        RangesEqual,
		RangesContains:     RangesContained,
		RangesContained:    RangesContains,
		RangesBefore:       RangesAfter,
		RangesAfter:        RangesBefore,
		RangesOverlapStart: RangesOverlapEnd,
		RangesOverlapEnd:   RangesOverlapStart,
	}
	ranges := []Range{
		textRange(n, 0, 3), textRange(n, 3, 6), textRange(n, 0, 6),
		textRange(n, 2, 4), textRange(n, 0, 4), textRange(n, 2, 6),
	}
	for _, a := range ranges {
		for _, b := range ranges {
			ab, err := CompareRanges(a, b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ba, err := CompareRanges(b, a)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ba != mirror[ab] {
				t.Errorf("compare(%v,%v)=%s but compare(%v,%v)=%s, expected %s",
					a, b, ab, b, a, ba, mirror[ab])
			}
		}
	}
}

func TestCompareRanges_AlmostEqualOverTransparentNodes(t *testing.T) {
	// One comment's range ends before a category link, the next apparent
	// boundary sits after it. The link is rendering-transparent, so the
	// two ends must compare equal, not as an overlap.
	body := parseBody(t, `<p>one</p><link rel="mw:PageProp/Category" href="./Category:X"><p>two</p>`)

	endsBeforeLink := NewRange(body, 0, body, 1)
	endsAfterLink := NewRange(body, 0, body, 2)

	got, err := CompareRanges(endsBeforeLink, endsAfterLink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != RangesEqual {
		t.Errorf("expected equal via the almost-equal rule, got %s", got)
	}
}

func TestCompareRanges_AlmostEqualOverSeparators(t *testing.T) {
	body := parseBody(t, `<div><p>one</p><br><span about="#mwt9"></span><p>two</p></div>`)
	div := body.FirstChild

	a := NewRange(div, 0, div, 1)
	b := NewRange(div, 0, div, 3)

	got, err := CompareRanges(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != RangesEqual {
		t.Errorf("expected equal across br and empty transclusion span, got %s", got)
	}
}

func TestCompareRanges_ContentBlocksAlmostEqual(t *testing.T) {
	body := parseBody(t, "<p>one</p><p>two</p>")

	a := NewRange(body, 0, body, 1)
	b := NewRange(body, 0, body, 2)

	got, err := CompareRanges(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != RangesContained {
		t.Errorf("expected contained when real content separates the ends, got %s", got)
	}
}

func TestCoveredSiblings(t *testing.T) {
	body := parseBody(t, "<div><p>one</p><p>two</p><p>three</p></div>")
	div := body.FirstChild
	p1 := div.FirstChild
	p2 := p1.NextSibling
	p3 := p2.NextSibling

	sibs := CoveredSiblings(NewRange(div, 0, div, 2))
	if len(sibs) != 2 || sibs[0] != p1 || sibs[1] != p2 {
		t.Fatalf("expected [p1 p2], got %d siblings", len(sibs))
	}

	// Boundaries inside the text still select the containing siblings.
	sibs = CoveredSiblings(NewRange(p2.FirstChild, 0, p3.FirstChild, 3))
	if len(sibs) != 2 || sibs[0] != p2 || sibs[1] != p3 {
		t.Fatalf("expected [p2 p3], got %d siblings", len(sibs))
	}

	if sibs := CoveredSiblings(NewRange(div, 1, div, 1)); sibs != nil {
		t.Errorf("expected nil for collapsed range, got %d siblings", len(sibs))
	}
}

func TestFullyCoveredSiblings_ClimbsToParent(t *testing.T) {
	body := parseBody(t, "<div><p>one</p><p>two</p></div>")
	div := body.FirstChild

	sibs, err := FullyCoveredSiblings(NewRange(div, 0, div, 2), body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sibs) != 1 || sibs[0] != div {
		t.Fatalf("expected climb to the single div parent, got %d siblings", len(sibs))
	}
}

func TestFullyCoveredSiblings_PartialCoverageIsNil(t *testing.T) {
	body := parseBody(t, "<div><p>one two</p></div>")
	div := body.FirstChild
	text := div.FirstChild.FirstChild

	// Covers only half the paragraph text.
	sibs, err := FullyCoveredSiblings(NewRange(text, 0, text, 3), body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sibs != nil {
		t.Errorf("expected nil for partial coverage, got %d siblings", len(sibs))
	}
}

func TestFullyCoveredSiblings_StopsAtExcludedAncestor(t *testing.T) {
	body := parseBody(t, "<div><p>one</p><p>two</p></div>")
	div := body.FirstChild

	sibs, err := FullyCoveredSiblings(NewRange(div, 0, div, 2), div)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sibs) != 2 {
		t.Fatalf("expected the two paragraphs without climbing, got %d siblings", len(sibs))
	}
}

func TestRange_Collapsed(t *testing.T) {
	n := &html.Node{Type: html.TextNode, Data: "abc"}
	if !NewRange(n, 1, n, 1).Collapsed() {
		t.Error("expected collapsed range")
	}
	if NewRange(n, 1, n, 2).Collapsed() {
		t.Error("expected non-collapsed range")
	}
}
