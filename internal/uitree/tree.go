// Package uitree is an arena of UI nodes addressed by generational index.
//
// Nodes own their children: removing a node removes its whole subtree, so a
// screen torn down by removing its root cannot leak orphans. A NodeID held
// after its node was removed goes stale and is rejected, even when the slot
// has been reused.
package uitree

import (
	"errors"
	"fmt"
)

// ErrStaleNode is returned for IDs whose node has been removed.
var ErrStaleNode = errors.New("stale or unknown node id")

// NodeID addresses a node. The zero value is never valid.
type NodeID struct {
	index uint32
	gen   uint32
}

// IsZero reports whether id is the zero value.
func (id NodeID) IsZero() bool { return id.gen == 0 }

func (id NodeID) String() string {
	if id.IsZero() {
		return "node(none)"
	}
	return fmt.Sprintf("node(%d@%d)", id.index, id.gen)
}

type slot[T any] struct {
	gen      uint32
	live     bool
	value    T
	parent   NodeID
	children []NodeID
}

// Tree is the arena. It is not safe for concurrent use.
type Tree[T any] struct {
	slots []slot[T]
	free  []uint32
	roots []NodeID
	live  int
}

// New returns an empty tree.
func New[T any]() *Tree[T] {
	return &Tree[T]{}
}

// AddRoot inserts a parentless node.
func (t *Tree[T]) AddRoot(value T) NodeID {
	id := t.alloc(value, NodeID{})
	t.roots = append(t.roots, id)
	return id
}

// Add inserts value as the last child of parent.
func (t *Tree[T]) Add(parent NodeID, value T) (NodeID, error) {
	if _, err := t.slot(parent); err != nil {
		return NodeID{}, err
	}
	id := t.alloc(value, parent)
	// alloc may grow the slice; look the parent up again.
	ps := &t.slots[parent.index]
	ps.children = append(ps.children, id)
	return id, nil
}

func (t *Tree[T]) alloc(value T, parent NodeID) NodeID {
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot[T]{})
	}
	s := &t.slots[idx]
	s.gen++
	s.live = true
	s.value = value
	s.parent = parent
	s.children = nil
	t.live++
	return NodeID{index: idx, gen: s.gen}
}

func (t *Tree[T]) slot(id NodeID) (*slot[T], error) {
	if id.IsZero() || int(id.index) >= len(t.slots) {
		return nil, fmt.Errorf("%w: %s", ErrStaleNode, id)
	}
	s := &t.slots[id.index]
	if !s.live || s.gen != id.gen {
		return nil, fmt.Errorf("%w: %s", ErrStaleNode, id)
	}
	return s, nil
}

// Contains reports whether id refers to a live node.
func (t *Tree[T]) Contains(id NodeID) bool {
	_, err := t.slot(id)
	return err == nil
}

// Get returns the value stored at id.
func (t *Tree[T]) Get(id NodeID) (T, bool) {
	s, err := t.slot(id)
	if err != nil {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Set replaces the value stored at id.
func (t *Tree[T]) Set(id NodeID, value T) error {
	s, err := t.slot(id)
	if err != nil {
		return err
	}
	s.value = value
	return nil
}

// Parent returns the parent of id, or the zero ID for a root.
func (t *Tree[T]) Parent(id NodeID) (NodeID, error) {
	s, err := t.slot(id)
	if err != nil {
		return NodeID{}, err
	}
	return s.parent, nil
}

// Children returns a copy of id's children in insertion order.
func (t *Tree[T]) Children(id NodeID) []NodeID {
	s, err := t.slot(id)
	if err != nil || len(s.children) == 0 {
		return nil
	}
	out := make([]NodeID, len(s.children))
	copy(out, s.children)
	return out
}

// Roots returns a copy of the parentless nodes in insertion order.
func (t *Tree[T]) Roots() []NodeID {
	out := make([]NodeID, len(t.roots))
	copy(out, t.roots)
	return out
}

// Len returns the number of live nodes.
func (t *Tree[T]) Len() int { return t.live }

// Remove deletes id and every descendant. It returns how many nodes were
// removed.
func (t *Tree[T]) Remove(id NodeID) (int, error) {
	s, err := t.slot(id)
	if err != nil {
		return 0, err
	}
	if s.parent.IsZero() {
		t.roots = without(t.roots, id)
	} else if ps, err := t.slot(s.parent); err == nil {
		ps.children = without(ps.children, id)
	}

	// Iterative so deep trees cannot overflow the stack.
	removed := 0
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cs := &t.slots[cur.index]
		stack = append(stack, cs.children...)

		var zero T
		cs.value = zero
		cs.children = nil
		cs.parent = NodeID{}
		cs.live = false
		t.free = append(t.free, cur.index)
		t.live--
		removed++
	}
	return removed, nil
}

// Clear removes every node.
func (t *Tree[T]) Clear() {
	for _, r := range t.Roots() {
		_, _ = t.Remove(r)
	}
}

// Walk visits id and its descendants depth-first, parents before children.
// Returning false from fn skips that node's children.
func (t *Tree[T]) Walk(id NodeID, fn func(id NodeID, depth int, value T) bool) error {
	if _, err := t.slot(id); err != nil {
		return err
	}
	t.walk(id, 0, fn)
	return nil
}

func (t *Tree[T]) walk(id NodeID, depth int, fn func(NodeID, int, T) bool) {
	s := &t.slots[id.index]
	if !fn(id, depth, s.value) {
		return
	}
	for _, c := range t.Children(id) {
		t.walk(c, depth+1, fn)
	}
}

func without(ids []NodeID, id NodeID) []NodeID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
