package pack

import (
	"sort"

	"tensorplan/internal/arena"
)

// BreadthNode is the minimal shape greedy-by-breadth needs from an
// out-variant node: its timestamp and its output LiveRanges, in graph
// order. Keeping it a plain local struct (rather than depending on
// graphir.Node) keeps the pack package's public surface independent
// of the graph IR.
type BreadthNode struct {
	Time    int64
	Outputs []arena.LiveRange
}

// GreedyByBreadth implements §4.D's greedy-by-operator-breadth
// heuristic. sizes maps every managed LiveRange to its byte size;
// nodes lists the out-variant nodes in graph order together with the
// LiveRanges of the values they produce.
func GreedyByBreadth(sizes map[arena.LiveRange]uint64, nodes []BreadthNode) arena.Plan {
	breadth := make([]uint64, len(nodes))
	for i, n := range nodes {
		var sum uint64
		for lvr, size := range sizes {
			if lvr.Begin <= n.Time && n.Time <= lvr.End {
				sum += size
			}
		}
		breadth[i] = sum
	}

	order := make([]int, len(nodes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return breadth[order[i]] > breadth[order[j]] })

	plan := make(arena.Plan, len(sizes))
	var placed []arena.LiveRange

	for _, idx := range order {
		for _, r := range nodes[idx].Outputs {
			var overlapping []arena.Region
			for _, p := range placed {
				if p.Overlaps(r) {
					overlapping = append(overlapping, plan[p])
				}
			}
			offset := lowestFittingOffsetAgainstCandidates(overlapping, sizes[r])
			plan[r] = arena.Region{Offset: offset, Size: sizes[r]}
			placed = append(placed, r)
		}
	}
	return plan
}
