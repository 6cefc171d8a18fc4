package kcore

import (
	"sync"

	"github.com/twmb/go-rbtree"
)

// serverSet is the Connection's known-servers set: sorted and
// deduplicated, per spec.md §4.5 (Connection.GetKnownServers). It is
// backed by a red-black tree rather than a sorted slice rebuilt on
// every insert, since the teacher's go.mod declares a direct dependency
// on github.com/twmb/go-rbtree that the two retrieved files never
// exercise — this is the slot SPEC_FULL.md gives it (see DESIGN.md).
type serverSet struct {
	mu   sync.Mutex
	tree rbtree.Tree
	size int
}

// serverNode is one entry in the tree: an addr string ("host:port")
// ordered lexically, which is also the canonical map key form spec.md
// §3 requires. It implements rbtree.Item directly; the tree wraps it
// in its own *rbtree.Node on Insert.
type serverNode struct {
	addr string
}

func (n *serverNode) Less(than rbtree.Item) bool {
	return n.addr < than.(*serverNode).addr
}

func newServerSet() *serverSet {
	return &serverSet{}
}

// Add inserts addr if not already present. Returns true if it was new.
func (s *serverSet) Add(addr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.contains(addr) {
		return false
	}
	s.tree.Insert(&serverNode{addr: addr})
	s.size++
	return true
}

// Contains reports whether addr is a known server. The lookup walks the
// tree in ascending order from its smallest entry, so its cost grows
// linearly with the number of entries that sort before addr.
func (s *serverSet) Contains(addr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contains(addr)
}

func (s *serverSet) contains(addr string) bool {
	probe := &serverNode{addr: addr}
	for n := s.tree.Min(); n != nil; n = n.Next() {
		item := n.Item.(*serverNode)
		if item.addr == addr {
			return true
		}
		if probe.Less(item) {
			break
		}
	}
	return false
}

// Sorted returns every known server in ascending order, matching
// spec.md's "Sorted, deduplicated" invariant for GetKnownServers.
func (s *serverSet) Sorted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, s.size)
	for n := s.tree.Min(); n != nil; n = n.Next() {
		out = append(out, n.Item.(*serverNode).addr)
	}
	return out
}

func (s *serverSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}
