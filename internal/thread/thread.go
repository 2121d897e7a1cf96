// Package thread folds flat parent-linked records into trees.
package thread

// Node is one item with its children in input order.
type Node[T any] struct {
	Item     T
	Children []Node[T]
}

// Build folds items into a forest. Items whose parent func reports no parent
// become roots; every other item is attached under its parent, recursively.
// Items whose parent is not reachable from a root are dropped. Children is
// never nil.
func Build[T any, K comparable](items []T, key func(T) K, parent func(T) (K, bool)) []Node[T] {
	children := make(map[K][]T)
	var roots []T
	for _, it := range items {
		if p, ok := parent(it); ok {
			children[p] = append(children[p], it)
			continue
		}
		roots = append(roots, it)
	}
	return fold(roots, children, key, make(map[K]bool))
}

func fold[T any, K comparable](level []T, children map[K][]T, key func(T) K, seen map[K]bool) []Node[T] {
	nodes := make([]Node[T], 0, len(level))
	for _, it := range level {
		k := key(it)
		if seen[k] {
			continue
		}
		seen[k] = true
		nodes = append(nodes, Node[T]{Item: it, Children: fold(children[k], children, key, seen)})
	}
	return nodes
}
