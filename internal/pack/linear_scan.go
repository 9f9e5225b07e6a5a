// Package pack implements the three interval-packing heuristics of
// §4.D: linear scan, greedy-by-size, and greedy-by-breadth. All three
// solve the same problem — map managed LiveRanges to non-colliding
// Regions. LinearScan uses lowestFittingOffset (this file); GreedyBySize
// and GreedyByBreadth share lowestFittingOffsetAgainstCandidates
// (greedy_size.go).
//
// The lowest-offset-that-fits search these heuristics run is the same
// shape as the teacher's Segment.Alloc: scan known-occupied spans for
// a gap big enough, and fall back to the high-water mark if none
// fits (core/segment.go's free-list scan followed by a tail bump).
package pack

import (
	"sort"

	"tensorplan/internal/arena"
)

// LinearScan implements §4.D's linear-scan heuristic: sweep LiveRanges
// by Begin ascending, maintaining an active set of ranges whose
// Region still occupies arena space, evicting any whose End has
// passed before placing the next one.
func LinearScan(sizes map[arena.LiveRange]uint64) arena.Plan {
	ranges := make([]arena.LiveRange, 0, len(sizes))
	for lvr := range sizes {
		ranges = append(ranges, lvr)
	}
	arena.StartCmp(ranges)

	plan := make(arena.Plan, len(ranges))
	active := make([]arena.LiveRange, 0, len(ranges))

	for _, r := range ranges {
		// Evict ranges whose region can no longer collide with r.
		kept := active[:0]
		for _, a := range active {
			if a.End >= r.Begin {
				kept = append(kept, a)
			}
		}
		active = kept

		occupied := make([]arena.Region, len(active))
		for i, a := range active {
			occupied[i] = plan[a]
		}
		offset := lowestFittingOffset(occupied, sizes[r])

		reg := arena.Region{Offset: offset, Size: sizes[r]}
		plan[r] = reg
		active = append(active, r)
	}
	return plan
}

// lowestFittingOffset scans occupied regions in ascending-offset order
// looking for an interior gap of at least size bytes; if none exists,
// it returns the high-water mark (the end of the last occupied
// region), matching §4.D step 2's "scan free gaps... if no interior
// gap is large enough, append at the current high-water mark."
func lowestFittingOffset(occupied []arena.Region, size uint64) uint64 {
	sort.Slice(occupied, func(i, j int) bool { return occupied[i].Offset < occupied[j].Offset })

	var cursor uint64
	for _, reg := range occupied {
		if reg.Offset > cursor && reg.Offset-cursor >= size {
			return cursor
		}
		if end := reg.End(); end > cursor {
			cursor = end
		}
	}
	return cursor
}
