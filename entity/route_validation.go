package entity

import (
	"fmt"
)

// SkippedNode is a node dropped from construction because it sat too close
// to its kept neighbour.
type SkippedNode struct {
	Index    int
	Node     *RouteNode
	Distance float64
}

// RouteValidation is the outcome of ValidateRoute.
type RouteValidation struct {
	Kept     []*RouteNode
	Skipped  []SkippedNode
	Problems []error
}

// Valid reports whether the route structure is legal. Skipped nodes do not
// make a route invalid.
func (v RouteValidation) Valid() bool {
	return len(v.Problems) == 0
}

// Err joins the structural problems, or returns nil.
func (v RouteValidation) Err() error {
	if len(v.Problems) == 0 {
		return nil
	}
	if len(v.Problems) == 1 {
		return v.Problems[0]
	}
	return fmt.Errorf("%w: %d problems, first: %v", ErrInvalidRoute, len(v.Problems), v.Problems[0])
}

// ValidateRoute checks node roles and drops nodes closer than minSeparation
// to the previously kept node. Routes of two nodes or fewer are always
// structurally valid. The last node is never dropped; when it crowds an
// interior node the interior node goes instead.
func ValidateRoute(nodes []*RouteNode, minSeparation float64) RouteValidation {
	var v RouteValidation
	if len(nodes) > 2 {
		for i, n := range nodes[1 : len(nodes)-1] {
			if n.Type() == Winch {
				v.Problems = append(v.Problems,
					fmt.Errorf("%w: winch node %q at index %d is not an end", ErrInvalidRoute, n.Name(), i+1))
			}
		}
	}

	keptIndex := make([]int, 0, len(nodes))
	for i, n := range nodes {
		if len(v.Kept) == 0 {
			v.Kept = append(v.Kept, n)
			keptIndex = append(keptIndex, i)
			continue
		}
		prev := v.Kept[len(v.Kept)-1]
		d := n.Position().Sub(prev.Position()).Length()
		if d >= minSeparation {
			v.Kept = append(v.Kept, n)
			keptIndex = append(keptIndex, i)
			continue
		}
		last := i == len(nodes)-1
		if last && len(v.Kept) > 1 {
			v.Skipped = append(v.Skipped, SkippedNode{Index: keptIndex[len(keptIndex)-1], Node: prev, Distance: d})
			v.Kept[len(v.Kept)-1] = n
			keptIndex[len(keptIndex)-1] = i
			continue
		}
		v.Skipped = append(v.Skipped, SkippedNode{Index: i, Node: n, Distance: d})
	}
	return v
}
