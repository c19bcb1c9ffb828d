package thread

import (
	"fmt"
)

// ThreadItemSet is the completed output of one parse: every item in document
// order, the comment subset, lookup maps, and the top-level heading forest.
// It is built incrementally during the single traversal and frozen by
// updateIDAndNameMaps; the ids handed out depend on all same-named items
// being known first.
type ThreadItemSet struct {
	items    []ThreadItem
	comments []*CommentItem
	threads  []*HeadingItem
	byID     map[string]ThreadItem
	byName   map[string][]ThreadItem
	frozen   bool
}

// NewThreadItemSet returns an empty, unfrozen set.
func NewThreadItemSet() *ThreadItemSet {
	return &ThreadItemSet{
		byID:   make(map[string]ThreadItem),
		byName: make(map[string][]ThreadItem),
	}
}

// addThreadItem appends an item in traversal order. The item has a name but
// no id yet; ids are assigned when the set freezes.
func (s *ThreadItemSet) addThreadItem(item ThreadItem) {
	if s.frozen {
		panic("thread: addThreadItem after freeze")
	}
	s.items = append(s.items, item)
	switch it := item.(type) {
	case *CommentItem:
		s.comments = append(s.comments, it)
	case *HeadingItem:
		if it.parent == nil {
			s.threads = append(s.threads, it)
		}
	}
}

// updateIDAndNameMaps assigns disambiguated ids and populates both lookup
// maps, then freezes the set. The first item of each name bucket keeps the
// bare name as its id; the k-th (k >= 2) gets "-k" appended.
func (s *ThreadItemSet) updateIDAndNameMaps() {
	seen := make(map[string]int, len(s.items))
	for _, item := range s.items {
		name := item.Name()
		seen[name]++
		id := name
		if n := seen[name]; n > 1 {
			id = fmt.Sprintf("%s-%d", name, n)
		}
		switch it := item.(type) {
		case *CommentItem:
			it.id = id
		case *HeadingItem:
			it.id = id
		}
		s.byID[id] = item
		s.byName[name] = append(s.byName[name], item)
	}
	s.frozen = true
}

// IsEmpty reports whether the parse found nothing at all.
func (s *ThreadItemSet) IsEmpty() bool { return len(s.items) == 0 }

// ThreadItems returns every item in document order.
func (s *ThreadItemSet) ThreadItems() []ThreadItem { return s.items }

// Comments returns the comment subset in document order.
func (s *ThreadItemSet) Comments() []*CommentItem { return s.comments }

// Threads returns the top-level headings forming the thread forest.
func (s *ThreadItemSet) Threads() []*HeadingItem { return s.threads }

// FindCommentByID looks an item up by its unique id. Returns nil when the
// id is unknown.
func (s *ThreadItemSet) FindCommentByID(id string) ThreadItem {
	return s.byID[id]
}

// FindCommentsByName returns every item sharing the given structural name,
// in document order. Multiple results signal a name collision that the id
// ordinals disambiguate.
func (s *ThreadItemSet) FindCommentsByName(name string) []ThreadItem {
	return s.byName[name]
}
