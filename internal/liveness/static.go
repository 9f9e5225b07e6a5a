// Package liveness implements the static liveness extractor (§4.B):
// it walks a graph's out-variant nodes in topological order and turns
// their sizeable, non-always-alive outputs into arena.LiveRanges ready
// for packing.
package liveness

import (
	"tensorplan/graphir"
	"tensorplan/internal/arena"
	"tensorplan/internal/diag"
)

// Result is the output of ExtractManaged: the retained out-variant
// nodes in graph order, the sizes of every managed value, and the
// LiveRange each managed value was assigned.
type Result struct {
	OutNodes []graphir.Node
	Sizes    map[graphir.Value]uint64
	Ranges   map[graphir.Value]arena.LiveRange
}

// Options bundles the collaborators ExtractManaged needs beyond the
// graph itself: schema resolution, alias info, and the "is this node a
// structural container type" predicate.
type Options struct {
	Registry               graphir.OperatorRegistry
	Alias                  graphir.AliasInfo
	IsOptimizableContainer graphir.IsOptimizableContainerType
}

// ExtractManaged implements §4.B extractManaged(graph, aliasInfo).
func ExtractManaged(g graphir.Graph, opt Options) Result {
	res := Result{
		Sizes:  make(map[graphir.Value]uint64),
		Ranges: make(map[graphir.Value]arena.LiveRange),
	}

	idgen := &arena.IDGen{}
	liveness := opt.Alias.Liveness(g)

	for _, n := range g.Nodes() {
		if !hasOutVariant(n, opt.Registry) {
			continue
		}
		res.OutNodes = append(res.OutNodes, n)

		isContainer := opt.IsOptimizableContainer != nil && opt.IsOptimizableContainer(n)
		for _, out := range n.Outputs() {
			if opt.Alias.AlwaysAlive(out) {
				continue
			}
			size, ok := computeStorageSize(out)
			switch {
			case isContainer:
				diag.Warnf("leaking container-typed output %s", out.DebugName())
			case ok && size > 0:
				res.Sizes[out] = size
			default:
				diag.Warnf("not handling unsupported value %s: unknown or zero storage size", out.DebugName())
			}
		}
	}

	for v := range res.Sizes {
		lr, ok := liveness[v]
		if !ok {
			continue
		}
		res.Ranges[v] = arena.NewLiveRange(lr.Begin, lr.End, idgen.Next())
	}

	return res
}

// computeStorageSize implements §4.B's storageSize = numel * elementSize
// computation, returning ok=false if the scalar type, shape, or numel is
// unavailable — the "check scalar_type.has_value() twice" duplication
// from the original source collapses to the single HasScalarType check
// per §9(b).
func computeStorageSize(v graphir.Value) (uint64, bool) {
	tt, hasType := v.Type()
	if !hasType {
		diag.Warnf("%s: no tensor type", v.DebugName())
		return 0, false
	}
	if !tt.HasScalarType {
		diag.Warnf("%s: profiled output has no scalar type", v.DebugName())
		return 0, false
	}
	width := tt.ScalarType.ElementSize()
	if width == 0 {
		diag.Warnf("%s: unrecognized scalar type %v", v.DebugName(), tt.ScalarType)
		return 0, false
	}
	numel, ok := tt.Numel()
	if !ok {
		diag.Warnf("%s: no concrete numel (likely an in-place mutation site)", v.DebugName())
		return 0, false
	}
	return uint64(numel) * width, true
}

func hasOutVariant(n graphir.Node, reg graphir.OperatorRegistry) bool {
	if reg == nil {
		return false
	}
	for _, s := range reg.AllOperatorsFor(n.Kind()) {
		if graphir.HasOutArgument(s) {
			return true
		}
	}
	return false
}
