package pack

import (
	"sort"

	"tensorplan/internal/arena"
)

// GreedyBySize implements §4.D's greedy-by-size heuristic: place the
// largest ranges first, each at the lowest offset that avoids the
// regions of every already-placed range it overlaps in time.
func GreedyBySize(sizes map[arena.LiveRange]uint64) arena.Plan {
	ranges := make([]arena.LiveRange, 0, len(sizes))
	for lvr := range sizes {
		ranges = append(ranges, lvr)
	}
	sort.Slice(ranges, func(i, j int) bool {
		si, sj := sizes[ranges[i]], sizes[ranges[j]]
		if si != sj {
			return si > sj
		}
		return ranges[i].Less(ranges[j])
	})

	plan := make(arena.Plan, len(ranges))
	var placed []arena.LiveRange

	for _, r := range ranges {
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
	return plan
}

// lowestFittingOffsetAgainstCandidates implements §4.D step 2's
// candidate-offset scan: offset 0, plus the offset immediately after
// every overlapping placed region; the minimum candidate that avoids
// colliding with all of them wins, ties broken to the lower offset.
func lowestFittingOffsetAgainstCandidates(overlapping []arena.Region, size uint64) uint64 {
	candidates := make([]uint64, 0, len(overlapping)+1)
	candidates = append(candidates, 0)
	for _, reg := range overlapping {
		candidates = append(candidates, reg.End())
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	for _, off := range candidates {
		candidate := arena.Region{Offset: off, Size: size}
		fits := true
		for _, reg := range overlapping {
			if candidate.Collides(reg) {
				fits = false
				break
			}
		}
		if fits {
			return off
		}
	}
	// Every candidate collided (shouldn't happen given the candidate
	// set above is exhaustive for non-colliding existing placements),
	// fall back to the end of the furthest overlapping region.
	var end uint64
	for _, reg := range overlapping {
		if e := reg.End(); e > end {
			end = e
		}
	}
	return end
}
