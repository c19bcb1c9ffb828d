package dom

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

// buildTree constructs root(a(a1, a2), b) by hand, outside any document.
func buildTree() (root, a, a1, a2, b *html.Node) {
	el := func(tag string) *html.Node {
		return &html.Node{Type: html.ElementNode, Data: tag}
	}
	root, a, b = el("div"), el("p"), el("p")
	a1 = &html.Node{Type: html.TextNode, Data: "one"}
	a2 = &html.Node{Type: html.TextNode, Data: "two"}
	root.AppendChild(a)
	root.AppendChild(b)
	a.AppendChild(a1)
	a.AppendChild(a2)
	return
}

type event struct {
	ev   WalkEvent
	node *html.Node
}

func collect(walk func(*html.Node, WalkFunc) bool, start *html.Node) []event {
	var events []event
	walk(start, func(ev WalkEvent, n *html.Node) bool {
		events = append(events, event{ev, n})
		return false
	})
	return events
}

func TestLinearWalk_Order(t *testing.T) {
	root, a, a1, a2, b := buildTree()
	events := collect(LinearWalk, root)

	want := []event{
		{Enter, root}, {Enter, a}, {Enter, a1}, {Leave, a1},
		{Enter, a2}, {Leave, a2}, {Leave, a}, {Enter, b}, {Leave, b}, {Leave, root},
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, w := range want {
		if events[i] != w {
			t.Errorf("event %d: expected %s %q, got %s %q",
				i, w.ev, w.node.Data, events[i].ev, events[i].node.Data)
		}
	}
}

func TestLinearWalkBackwards_IsReverseOfForward(t *testing.T) {
	root, _, _, _, _ := buildTree()
	forward := collect(LinearWalk, root)
	backward := collect(LinearWalkBackwards, root)

	if len(forward) != len(backward) {
		t.Fatalf("expected %d events, got %d", len(forward), len(backward))
	}
	for i := range forward {
		j := len(forward) - 1 - i
		if backward[i] != forward[j] {
			t.Errorf("backward event %d: expected %s %q, got %s %q",
				i, forward[j].ev, forward[j].node.Data, backward[i].ev, backward[i].node.Data)
		}
	}
}

func TestLinearWalk_StartsMidTree(t *testing.T) {
	root, a, _, a2, b := buildTree()
	events := collect(LinearWalk, a2)

	want := []event{
		{Enter, a2}, {Leave, a2}, {Leave, a}, {Enter, b}, {Leave, b}, {Leave, root},
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, w := range want {
		if events[i] != w {
			t.Errorf("event %d: expected %s %q, got %s %q",
				i, w.ev, w.node.Data, events[i].ev, events[i].node.Data)
		}
	}
}

func TestLinearWalk_EarlyExit(t *testing.T) {
	root, a, _, _, _ := buildTree()
	visited := 0
	stopped := LinearWalk(root, func(ev WalkEvent, n *html.Node) bool {
		visited++
		return ev == Enter && n == a
	})
	if !stopped {
		t.Error("expected walk to report early exit")
	}
	if visited != 2 {
		t.Errorf("expected 2 events before stopping, got %d", visited)
	}
}

func TestLinearWalk_NilStart(t *testing.T) {
	if LinearWalk(nil, func(WalkEvent, *html.Node) bool { return true }) {
		t.Error("expected nil start to report false")
	}
}

func TestLinearWalk_ParsedDocument(t *testing.T) {
	doc, err := html.Parse(strings.NewReader("<p>hello <b>world</b></p>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var texts []string
	LinearWalk(doc, func(ev WalkEvent, n *html.Node) bool {
		if ev == Enter && n.Type == html.TextNode {
			texts = append(texts, n.Data)
		}
		return false
	})
	if len(texts) != 2 || texts[0] != "hello " || texts[1] != "world" {
		t.Errorf("expected [hello , world], got %q", texts)
	}
}
