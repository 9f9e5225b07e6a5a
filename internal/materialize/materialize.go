// Package materialize implements the plan materializer (§4.E): it
// rewrites a graph to carry the storage-allocation decisions a packing
// heuristic produced, inserting AllocateStorage once and then one
// AllocateTensor (static mode) or PreAllocateTensor (trace mode) node
// per managed value. This mirrors the teacher's segment manager
// writing committed offsets back into its on-disk layout once a
// placement decision has been made (internal/segment/manager.go).
package materialize

import (
	"fmt"
	"sort"

	"tensorplan/graphir"
	"tensorplan/internal/arena"
	"tensorplan/internal/errs"
)

// Static implements §4.E's static insertion mode, consuming the output
// of the static liveness extractor (component B): outNodes are the
// retained out-variant nodes in graph order, ranges maps each managed
// value to the LiveRange the extractor assigned it, and plan is the
// packing a heuristic produced for those ranges.
func Static(g graphir.Graph, plan arena.Plan, outNodes []graphir.Node, ranges map[graphir.Value]arena.LiveRange) error {
	total := arena.TotalSize(plan)
	insertAllocateStorage(g, total)

	type placement struct {
		value    graphir.Value
		producer graphir.Node
		lvr      arena.LiveRange
	}
	var placements []placement
	for _, n := range outNodes {
		for _, v := range n.Outputs() {
			lvr, ok := ranges[v]
			if !ok {
				continue
			}
			placements = append(placements, placement{value: v, producer: n, lvr: lvr})
		}
	}
	sort.Slice(placements, func(i, j int) bool { return placements[i].lvr.Less(placements[j].lvr) })

	dev, _ := g.DominantDevice()

	for _, p := range placements {
		reg, ok := plan[p.lvr]
		if !ok {
			continue
		}
		if reg.Offset+reg.Size > total {
			return fmt.Errorf("%w: value %s at offset %d size %d exceeds arena of %d bytes",
				errs.ErrPlanOverflow, p.value.DebugName(), reg.Offset, reg.Size, total)
		}

		tt, _ := p.value.Type()
		sizes := tt.Sizes
		strides := tt.Strides
		if strides == nil {
			strides = contiguousStrides(sizes)
		}
		if len(sizes) == 0 {
			sizes = []int64{0}
		}
		if len(strides) == 0 {
			strides = []int64{0}
		}

		allocNode := g.CreateNode(graphir.KindAllocateTensor, 1)
		g.SetIntAttr(allocNode, graphir.AttrSize, int64(reg.Size))
		g.SetIntAttr(allocNode, graphir.AttrOffset, int64(reg.Offset))
		g.SetIntsAttr(allocNode, graphir.AttrSizes, sizes)
		g.SetIntsAttr(allocNode, graphir.AttrStride, strides)
		g.SetIntAttr(allocNode, graphir.AttrDevice, int64(dev))
		if tt.HasScalarType {
			g.SetIntAttr(allocNode, graphir.AttrDtype, int64(tt.ScalarType))
		}

		p.producer.InsertBefore(allocNode)
		p.producer.AddInput(g.Output(allocNode, 0))
	}
	return nil
}

// Trace implements §4.E's trace insertion mode, consuming the output of
// the trace-based liveness extractor (component C): sizes and frames
// are keyed by the same LiveRanges the packing heuristic placed in
// plan.
//
// The cursor advances monotonically through the graph's nodes,
// matching each frame's NodeHeader against CanonicalSchemaString per
// the §9(c) resolution (advance while the strings differ); a frame
// whose header never occurs among the remaining nodes is
// errs.ErrCursorMismatch.
func Trace(g graphir.Graph, plan arena.Plan, sizes map[arena.LiveRange]uint64, frames map[arena.LiveRange]arena.FrameNodeId) error {
	total := arena.TotalSize(plan)
	insertAllocateStorage(g, total)

	groups := make(map[arena.FrameNodeId][]arena.LiveRange)
	for lvr := range sizes {
		frame := frames[lvr]
		groups[frame] = append(groups[frame], lvr)
	}
	frameIDs := make([]arena.FrameNodeId, 0, len(groups))
	for f := range groups {
		frameIDs = append(frameIDs, f)
	}
	arena.FrameCmp(frameIDs)

	nodes := g.Nodes()
	cursor := 0

	for _, frame := range frameIDs {
		group := groups[frame]
		sort.Slice(group, func(i, j int) bool { return group[i].Less(group[j]) })

		for cursor < len(nodes) && nodes[cursor].CanonicalSchemaString() != frame.NodeHeader {
			cursor++
		}
		if cursor >= len(nodes) {
			return fmt.Errorf("%w: no remaining node matches frame header %q", errs.ErrCursorMismatch, frame.NodeHeader)
		}
		target := nodes[cursor]

		for _, lvr := range group {
			reg, ok := plan[lvr]
			if !ok {
				continue
			}
			if reg.Offset+reg.Size > total {
				return fmt.Errorf("%w: range [%d,%d] at offset %d size %d exceeds arena of %d bytes",
					errs.ErrPlanOverflow, lvr.Begin, lvr.End, reg.Offset, reg.Size, total)
			}

			preNode := g.CreateNode(graphir.KindPreAllocateTensor, 0)
			g.SetIntAttr(preNode, graphir.AttrSize, int64(reg.Size))
			g.SetIntAttr(preNode, graphir.AttrOffset, int64(reg.Offset))
			target.InsertBefore(preNode)
		}
	}
	return nil
}

func insertAllocateStorage(g graphir.Graph, total uint64) {
	dev, _ := g.DominantDevice()
	storageNode := g.CreateNode(graphir.KindAllocateStorage, 0)
	g.SetIntAttr(storageNode, graphir.AttrTotalSize, int64(total))
	g.SetIntAttr(storageNode, graphir.AttrDevice, int64(dev))
	g.InsertFront(storageNode)
}

// contiguousStrides computes the row-major default stride for sizes,
// matching the convention the runtime's out-variant ops expect when a
// Value's static type carries no profiled stride.
func contiguousStrides(sizes []int64) []int64 {
	if len(sizes) == 0 {
		return nil
	}
	strides := make([]int64, len(sizes))
	acc := int64(1)
	for i := len(sizes) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= sizes[i]
	}
	return strides
}
