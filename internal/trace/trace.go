// Package trace implements the trace-based liveness extractor (§4.C):
// it sweeps a chronological MemEvent stream once, pairing each Allocate
// with its matching Free, keyed by pointer address — the same "open
// entry, close entry, assert no stragglers" shape the teacher's
// segment free-list bookkeeping uses for its own offset/size-class
// pairs (internal/segment/segment.go's free/truth maps).
package trace

import (
	"fmt"

	"tensorplan/internal/arena"
	"tensorplan/internal/errs"
)

// Result is the output of ExtractManagedFromTrace: every paired
// Allocate/Free turned into a sized LiveRange, plus the FrameNodeId
// that caused the allocation, needed later to group insertions by
// operator invocation (§4.E trace mode).
type Result struct {
	Sizes  map[arena.LiveRange]uint64
	Frames map[arena.LiveRange]arena.FrameNodeId
}

// ExtractManagedFromTrace implements §4.C. It returns
// errs.ErrEmptyTrace if events is empty, and errs.ErrTraceCorrupt
// wrapped with context for any unmatched Free, a Free whose size or
// node header disagrees with its Allocate, an Allocate not preceding
// its Free, or a non-empty open-allocation set once the sweep ends.
func ExtractManagedFromTrace(events []arena.MemEvent) (Result, error) {
	if len(events) == 0 {
		return Result{}, errs.ErrEmptyTrace
	}

	res := Result{
		Sizes:  make(map[arena.LiveRange]uint64),
		Frames: make(map[arena.LiveRange]arena.FrameNodeId),
	}
	idgen := &arena.IDGen{}

	open := make(map[string]arena.MemEvent, len(events)/2)
	for _, ev := range events {
		switch ev.Kind {
		case arena.Allocate:
			open[ev.PtrAddr] = ev
		case arena.Free:
			alloc, ok := open[ev.PtrAddr]
			if !ok {
				return Result{}, fmt.Errorf("%w: free at t=%d of %s has no matching allocate", errs.ErrTraceCorrupt, ev.Time, ev.PtrAddr)
			}
			if alloc.Size != ev.Size {
				return Result{}, fmt.Errorf("%w: %s size mismatch: alloc=%d free=%d", errs.ErrTraceCorrupt, ev.PtrAddr, alloc.Size, ev.Size)
			}
			if alloc.NodeHeader != ev.NodeHeader {
				return Result{}, fmt.Errorf("%w: %s node header mismatch: alloc=%q free=%q", errs.ErrTraceCorrupt, ev.PtrAddr, alloc.NodeHeader, ev.NodeHeader)
			}
			if !(alloc.Time < ev.Time) {
				return Result{}, fmt.Errorf("%w: %s free at t=%d does not follow alloc at t=%d", errs.ErrTraceCorrupt, ev.PtrAddr, ev.Time, alloc.Time)
			}

			lvr := arena.NewLiveRange(alloc.Time, ev.Time, idgen.Next())
			res.Sizes[lvr] = alloc.Size
			res.Frames[lvr] = arena.FrameNodeId{
				Time:       alloc.Time,
				NodeSchema: alloc.NodeSchema,
				NodeHeader: alloc.NodeHeader,
			}
			delete(open, ev.PtrAddr)
		default:
			return Result{}, fmt.Errorf("%w: unknown event kind %v", errs.ErrTraceCorrupt, ev.Kind)
		}
	}
	if len(open) != 0 {
		return Result{}, fmt.Errorf("%w: %d allocation(s) never freed", errs.ErrTraceCorrupt, len(open))
	}
	return res, nil
}
