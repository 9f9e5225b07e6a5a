package tensorplan

import (
	"fmt"

	"tensorplan/internal/arena"
	"tensorplan/internal/errs"
	"tensorplan/internal/liveness"
	"tensorplan/internal/materialize"
	"tensorplan/internal/pack"
	"tensorplan/internal/trace"
)

// Strategy selects the packing heuristic PlanMemory and
// PlanMemoryFromTrace run (§4.D, §6).
type Strategy int

const (
	// Naive is an explicit no-op: both entry points return immediately
	// without touching the graph.
	Naive Strategy = iota
	LinearScan
	GreedyBySize
	// GreedyByBreadth is only valid with PlanMemory; PlanMemoryFromTrace
	// rejects it with ErrInvalidStrategy since trace mode has no static
	// node schedule to compute operator breadth from.
	GreedyByBreadth
)

func (s Strategy) String() string {
	switch s {
	case Naive:
		return "naive"
	case LinearScan:
		return "linear-scan"
	case GreedyBySize:
		return "greedy-by-size"
	case GreedyByBreadth:
		return "greedy-by-breadth"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Sentinel errors, re-exported at the package root so callers can
// errors.Is against them without importing internal/errs.
var (
	ErrEmptyTrace      = errs.ErrEmptyTrace
	ErrTraceCorrupt    = errs.ErrTraceCorrupt
	ErrPlanOverflow    = errs.ErrPlanOverflow
	ErrCursorMismatch  = errs.ErrCursorMismatch
	ErrInvalidStrategy = errs.ErrInvalidStrategy
)

// PlanMemory runs the static liveness extractor (§4.B) over g, packs
// the resulting LiveRanges with strategy, and materializes the result
// back into g by inserting AllocateStorage/AllocateTensor nodes
// (§4.E static mode).
func PlanMemory(g Graph, alias AliasInfo, reg OperatorRegistry, isContainer IsOptimizableContainerType, strategy Strategy) error {
	if strategy == Naive {
		return nil
	}

	res := liveness.ExtractManaged(g, liveness.Options{
		Registry:               reg,
		Alias:                  alias,
		IsOptimizableContainer: isContainer,
	})

	sizes := make(map[arena.LiveRange]uint64, len(res.Ranges))
	for v, lvr := range res.Ranges {
		sizes[lvr] = res.Sizes[v]
	}

	plan, err := runStrategy(strategy, sizes, breadthNodesFor(res))
	if err != nil {
		return err
	}

	return materialize.Static(g, plan, res.OutNodes, res.Ranges)
}

// PlanMemoryFromTrace runs the trace-based liveness extractor (§4.C)
// over events, packs the resulting LiveRanges with strategy, and
// materializes the result back into g by inserting
// AllocateStorage/PreAllocateTensor nodes (§4.E trace mode).
func PlanMemoryFromTrace(g Graph, events []arena.MemEvent, strategy Strategy) error {
	if strategy == Naive {
		return nil
	}
	if strategy == GreedyByBreadth {
		return fmt.Errorf("%w: greedy-by-breadth needs a static node schedule, not available from a trace", ErrInvalidStrategy)
	}

	res, err := trace.ExtractManagedFromTrace(events)
	if err != nil {
		return err
	}

	plan, err := runStrategy(strategy, res.Sizes, nil)
	if err != nil {
		return err
	}

	return materialize.Trace(g, plan, res.Sizes, res.Frames)
}

func runStrategy(strategy Strategy, sizes map[arena.LiveRange]uint64, breadthNodes []pack.BreadthNode) (arena.Plan, error) {
	switch strategy {
	case LinearScan:
		return pack.LinearScan(sizes), nil
	case GreedyBySize:
		return pack.GreedyBySize(sizes), nil
	case GreedyByBreadth:
		return pack.GreedyByBreadth(sizes, breadthNodes), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidStrategy, strategy)
	}
}

// breadthNodesFor derives each retained node's timestamp from the
// lowest Begin among the LiveRanges it produced — the moment its
// outputs become live is the moment the node itself executes.
func breadthNodesFor(res liveness.Result) []pack.BreadthNode {
	nodes := make([]pack.BreadthNode, 0, len(res.OutNodes))
	for _, n := range res.OutNodes {
		var outputs []arena.LiveRange
		var t int64
		have := false
		for _, v := range n.Outputs() {
			lvr, ok := res.Ranges[v]
			if !ok {
				continue
			}
			outputs = append(outputs, lvr)
			if !have || lvr.Begin < t {
				t = lvr.Begin
				have = true
			}
		}
		if !have {
			continue
		}
		nodes = append(nodes, pack.BreadthNode{Time: t, Outputs: outputs})
	}
	return nodes
}
