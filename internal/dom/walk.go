// Package dom provides read-only traversal, classification and range
// arithmetic over rendered-HTML node trees (golang.org/x/net/html). Nothing
// in this package mutates the tree; callers own the document for the
// duration of a parse.
package dom

import (
	"golang.org/x/net/html"
)

// WalkEvent tells a walk callback whether a node is being entered (before
// its descendants) or left (after all of them).
type WalkEvent int

const (
	Enter WalkEvent = iota
	Leave
)

func (e WalkEvent) String() string {
	if e == Enter {
		return "enter"
	}
	return "leave"
}

// WalkFunc receives every traversal event. Returning true stops the walk
// immediately; LinearWalk then reports true to its caller.
type WalkFunc func(event WalkEvent, node *html.Node) bool

// LinearWalk visits nodes in document order starting at node, which may sit
// anywhere in its tree: the walk enters node first, then continues through
// its following siblings and up through the ancestor chain until the tree is
// exhausted or the callback stops it.
//
// The traversal is iterative. Talk pages can nest lists arbitrarily deep, so
// a recursive walk is not an option.
func LinearWalk(node *html.Node, fn WalkFunc) bool {
	if node == nil {
		return false
	}
	// within is the deepest node whose subtree is partially visited;
	// before is the next node to enter, or nil when within must be left.
	within := node.Parent
	before := node
	for before != nil || within != nil {
		if before != nil {
			n := before
			if fn(Enter, n) {
				return true
			}
			within = n
			before = n.FirstChild
		} else {
			n := within
			if fn(Leave, n) {
				return true
			}
			before = n.NextSibling
			within = n.Parent
		}
	}
	return false
}

// LinearWalkBackwards visits nodes in reverse document order starting at
// node. The event sequence is exactly the reverse of what LinearWalk
// produces over the same tree: subtrees are left first and entered last.
func LinearWalkBackwards(node *html.Node, fn WalkFunc) bool {
	if node == nil {
		return false
	}
	within := node.Parent
	before := node
	for before != nil || within != nil {
		if before != nil {
			n := before
			if fn(Leave, n) {
				return true
			}
			within = n
			before = n.LastChild
		} else {
			n := within
			if fn(Enter, n) {
				return true
			}
			before = n.PrevSibling
			within = n.Parent
		}
	}
	return false
}
