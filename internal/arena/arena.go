// Package arena holds the planner's value types: LiveRange, Region,
// FrameNodeId and MemEvent. Nothing here allocates or schedules; it is
// the vocabulary the rest of the planner is written in.
package arena

import "sort"

// LiveRange is the closed timestamp interval [Begin, End] during which a
// managed value must stay reachable. Timestamps are topological node
// indices for static planning, or the trace's time/event counter for
// trace-based planning.
type LiveRange struct {
	Begin int64
	End   int64
	// id disambiguates two values that were assigned numerically
	// identical [Begin, End] intervals, keeping LiveRange totally
	// ordered and giving each one a stable map key.
	id uint64
}

// NewLiveRange builds a LiveRange carrying the caller-supplied
// disambiguating id, so two values that happen to share a [begin, end]
// interval still compare and hash distinctly (required by §4.B: such
// values are packed independently, not merged). Callers that extract
// many LiveRanges in one pass hand out ids from a local counter, e.g.
// via an IDGen.
func NewLiveRange(begin, end int64, id uint64) LiveRange {
	return LiveRange{Begin: begin, End: end, id: id}
}

// IDGen hands out a fresh disambiguating id on every call, scoped to a
// single extraction pass. It is not safe for concurrent use, matching
// §5's single-threaded planMemory contract.
type IDGen struct{ next uint64 }

func (g *IDGen) Next() uint64 {
	g.next++
	return g.next
}

// Overlaps reports whether the two closed intervals intersect.
func (r LiveRange) Overlaps(o LiveRange) bool {
	return r.Begin <= o.End && o.Begin <= r.End
}

// Less implements the "starts earlier, then ends earlier, then lower id"
// total order required by §3.
func (r LiveRange) Less(o LiveRange) bool {
	if r.Begin != o.Begin {
		return r.Begin < o.Begin
	}
	if r.End != o.End {
		return r.End < o.End
	}
	return r.id < o.id
}

// StartCmp sorts LiveRanges by Begin ascending, the order the linear-scan
// heuristic sweeps in.
func StartCmp(ranges []LiveRange) {
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Less(ranges[j]) })
}

// Region is a byte span [Offset, Offset+Size) inside the arena.
type Region struct {
	Offset uint64
	Size   uint64
}

// Collides reports whether the two regions' byte spans intersect.
func (r Region) Collides(o Region) bool {
	return r.Offset < o.Offset+o.Size && o.Offset < r.Offset+r.Size
}

// End returns the first byte past the region.
func (r Region) End() uint64 {
	return r.Offset + r.Size
}

// Plan is the packing result: every managed LiveRange mapped to the
// Region it was assigned inside the arena.
type Plan map[LiveRange]Region

// TotalSize returns max(offset+size) over every placement, i.e. the
// smallest arena that holds the whole plan.
func TotalSize(p Plan) uint64 {
	var total uint64
	for _, reg := range p {
		if end := reg.End(); end > total {
			total = end
		}
	}
	return total
}

// FrameNodeId identifies the operator invocation that caused an
// allocation: the moment in time, its operator kind, and its canonical
// schema header.
type FrameNodeId struct {
	Time       int64
	NodeSchema string
	NodeHeader string
}

// FrameCmp orders FrameNodeIds by Time ascending, the order trace-mode
// materialization groups insertions in.
func FrameCmp(ids []FrameNodeId) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Time < ids[j].Time })
}

// EventKind distinguishes the two halves of a MemEvent.
type EventKind int

const (
	Allocate EventKind = iota
	Free
)

func (k EventKind) String() string {
	if k == Allocate {
		return "allocate"
	}
	return "free"
}

// MemEvent is one record of the allocate/free trace the tracing
// allocator (component F) produces and the trace-based liveness
// extractor (component C) consumes.
type MemEvent struct {
	Time       int64
	PC         uint64
	Backtrace  string
	PtrAddr    string
	NodeSchema string
	NodeHeader string
	Size       uint64
	Kind       EventKind
}
