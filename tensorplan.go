// Package tensorplan is an offline memory planner for a tensor
// dataflow graph. Given a graph and either a static alias analysis or
// a recorded allocation trace, it decides a single arena large enough
// to hold every managed intermediate tensor, packs each tensor into a
// non-colliding (offset, size) region, and rewrites the graph with the
// storage- and tensor-allocation nodes a runtime needs to execute
// against the plan.
package tensorplan

import "tensorplan/graphir"

// The public surface re-exports the graphir vocabulary under the
// package root so callers implementing a Graph/AliasInfo pair don't
// need to import graphir themselves, while internal/* packages (which
// cannot import this package without a cycle) depend on graphir
// directly.
type (
	Value                      = graphir.Value
	Node                       = graphir.Node
	Graph                      = graphir.Graph
	AliasInfo                  = graphir.AliasInfo
	Schema                     = graphir.Schema
	OperatorRegistry           = graphir.OperatorRegistry
	TensorType                 = graphir.TensorType
	ScalarType                 = graphir.ScalarType
	NodeKind                   = graphir.NodeKind
	Range                      = graphir.Range
	IsOptimizableContainerType = graphir.IsOptimizableContainerType
	Device                     = graphir.Device
	Allocator                  = graphir.Allocator
	AllocatorRegistry          = graphir.AllocatorRegistry
	DataPtr                    = graphir.DataPtr
)

const (
	Float32 = graphir.Float32
	Float64 = graphir.Float64
	Float16 = graphir.Float16
	Int8    = graphir.Int8
	Int16   = graphir.Int16
	Int32   = graphir.Int32
	Int64   = graphir.Int64
	Uint8   = graphir.Uint8
	Bool    = graphir.Bool

	KindAllocateStorage   = graphir.KindAllocateStorage
	KindAllocateTensor    = graphir.KindAllocateTensor
	KindPreAllocateTensor = graphir.KindPreAllocateTensor

	AttrTotalSize = graphir.AttrTotalSize
	AttrSize      = graphir.AttrSize
	AttrOffset    = graphir.AttrOffset
	AttrDevice    = graphir.AttrDevice
	AttrDtype     = graphir.AttrDtype
	AttrSizes     = graphir.AttrSizes
	AttrStride    = graphir.AttrStride

	DeviceHost = graphir.DeviceHost
	DeviceCUDA = graphir.DeviceCUDA
	DeviceXPU  = graphir.DeviceXPU
)
