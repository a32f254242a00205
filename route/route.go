// Package route keeps an ordered sequence of distinct path nodes.
package route

import (
	"errors"
	"fmt"
)

var (
	ErrNilNode         = errors.New("route: nil node")
	ErrDuplicateNode   = errors.New("route: node already in route")
	ErrIndexOutOfRange = errors.New("route: index out of range")
	ErrNodeNotFound    = errors.New("route: node not in route")
)

// Op names the mutation reported to observers.
type Op int

const (
	OpInsert Op = iota
	OpRemove
	OpClear
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Change describes one successful mutation.
type Change[T comparable] struct {
	Op    Op
	Index int
	Node  T
}

// Route is an ordered sequence of distinct nodes. The zero value is empty and
// ready to use.
type Route[T comparable] struct {
	nodes    []T
	onChange []func(Change[T])
}

// New creates a route holding nodes in order.
func New[T comparable](nodes ...T) (*Route[T], error) {
	r := &Route[T]{}
	for _, n := range nodes {
		if err := r.Add(n); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// OnChange registers an observer called after every successful mutation.
func (r *Route[T]) OnChange(fn func(Change[T])) {
	if fn == nil {
		return
	}
	r.onChange = append(r.onChange, fn)
}

func (r *Route[T]) Len() int {
	return len(r.nodes)
}

// At returns the node at index, valid in [0, Len()-1].
func (r *Route[T]) At(index int) (T, error) {
	var zero T
	if index < 0 || index >= len(r.nodes) {
		return zero, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(r.nodes))
	}
	return r.nodes[index], nil
}

func (r *Route[T]) First() (T, bool) {
	var zero T
	if len(r.nodes) == 0 {
		return zero, false
	}
	return r.nodes[0], true
}

func (r *Route[T]) Last() (T, bool) {
	var zero T
	if len(r.nodes) == 0 {
		return zero, false
	}
	return r.nodes[len(r.nodes)-1], true
}

// IndexOf returns the index of node or -1.
func (r *Route[T]) IndexOf(node T) int {
	for i, n := range r.nodes {
		if n == node {
			return i
		}
	}
	return -1
}

func (r *Route[T]) Contains(node T) bool {
	return r.IndexOf(node) >= 0
}

// Nodes returns a copy of the sequence.
func (r *Route[T]) Nodes() []T {
	return append([]T(nil), r.nodes...)
}

// Add appends node.
func (r *Route[T]) Add(node T) error {
	return r.Insert(len(r.nodes), node)
}

// Insert places node at index, valid in [0, Len()].
func (r *Route[T]) Insert(index int, node T) error {
	if err := r.checkNew(node); err != nil {
		return err
	}
	if index < 0 || index > len(r.nodes) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(r.nodes))
	}
	var zero T
	r.nodes = append(r.nodes, zero)
	copy(r.nodes[index+1:], r.nodes[index:])
	r.nodes[index] = node
	r.notify(Change[T]{Op: OpInsert, Index: index, Node: node})
	return nil
}

// InsertBefore places node directly before ref.
func (r *Route[T]) InsertBefore(ref, node T) error {
	idx, err := r.refIndex(ref)
	if err != nil {
		return err
	}
	return r.Insert(idx, node)
}

// InsertAfter places node directly after ref.
func (r *Route[T]) InsertAfter(ref, node T) error {
	idx, err := r.refIndex(ref)
	if err != nil {
		return err
	}
	return r.Insert(idx+1, node)
}

// Remove deletes node from the route.
func (r *Route[T]) Remove(node T) error {
	if isZero(node) {
		return ErrNilNode
	}
	idx := r.IndexOf(node)
	if idx < 0 {
		return ErrNodeNotFound
	}
	_, err := r.RemoveAt(idx)
	return err
}

// RemoveAt deletes and returns the node at index.
func (r *Route[T]) RemoveAt(index int) (T, error) {
	var zero T
	if index < 0 || index >= len(r.nodes) {
		return zero, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(r.nodes))
	}
	node := r.nodes[index]
	copy(r.nodes[index:], r.nodes[index+1:])
	r.nodes[len(r.nodes)-1] = zero
	r.nodes = r.nodes[:len(r.nodes)-1]
	r.notify(Change[T]{Op: OpRemove, Index: index, Node: node})
	return node, nil
}

// Clear removes every node.
func (r *Route[T]) Clear() {
	if len(r.nodes) == 0 {
		return
	}
	r.nodes = nil
	var zero T
	r.notify(Change[T]{Op: OpClear, Index: -1, Node: zero})
}

func (r *Route[T]) checkNew(node T) error {
	if isZero(node) {
		return ErrNilNode
	}
	if r.Contains(node) {
		return ErrDuplicateNode
	}
	return nil
}

func (r *Route[T]) refIndex(ref T) (int, error) {
	if isZero(ref) {
		return -1, ErrNilNode
	}
	idx := r.IndexOf(ref)
	if idx < 0 {
		return -1, ErrNodeNotFound
	}
	return idx, nil
}

func (r *Route[T]) notify(c Change[T]) {
	for _, fn := range r.onChange {
		fn(c)
	}
}

func isZero[T comparable](v T) bool {
	var zero T
	return v == zero
}
