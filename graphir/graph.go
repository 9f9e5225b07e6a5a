// Package graphir defines the external collaborators the planner
// consumes: the graph IR, its alias analysis, and the operator
// registry. The planner never implements any of these itself — a
// runtime embedding the planner supplies concrete types satisfying
// these interfaces. It is its own leaf package, with no dependency on
// the planner's internal packages, the same way the teacher keeps its
// consumed Allocator interface in its own core/interface package
// rather than inline in core.
package graphir

// ScalarType is the tensor element type of a Value, when known.
type ScalarType int

// ElementSize returns the byte width of one element of t, or 0 if t is
// not a recognized scalar type.
func (t ScalarType) ElementSize() uint64 {
	if size, ok := scalarSizes[t]; ok {
		return size
	}
	return 0
}

const (
	Float32 ScalarType = iota + 1
	Float64
	Float16
	Int8
	Int16
	Int32
	Int64
	Uint8
	Bool
)

var scalarSizes = map[ScalarType]uint64{
	Float32: 4,
	Float64: 8,
	Float16: 2,
	Int8:    1,
	Int16:   2,
	Int32:   4,
	Int64:   8,
	Uint8:   1,
	Bool:    1,
}

// TensorType is the (possibly partial) static type of a Value.
type TensorType struct {
	ScalarType    ScalarType
	HasScalarType bool
	Sizes         []int64 // nil if unknown
	Strides       []int64 // nil if unknown
}

// Numel returns the element count implied by Sizes, and whether Sizes
// was concrete enough to compute one. An empty (zero-length) shape is
// the scalar-tensor case and has numel 1, not 0.
func (t TensorType) Numel() (int64, bool) {
	if t.Sizes == nil {
		return 0, false
	}
	numel := int64(1)
	for _, s := range t.Sizes {
		if s < 0 {
			return 0, false
		}
		numel *= s
	}
	return numel, true
}

// Value is an opaque handle to a tensor-typed result edge in the graph.
type Value interface {
	// Type returns the value's static tensor type, if any has been
	// profiled or inferred.
	Type() (TensorType, bool)
	DebugName() string
}

// Schema describes one overload of an operator: its argument names, in
// order. A schema has an out-variant iff one argument is named "out".
type Schema interface {
	Arguments() []string
	// CanonicalString is the canonicalized header used for trace-mode
	// node matching; two textually distinct schemas that canonicalize
	// identically are the same operator (§9).
	CanonicalString() string
}

// HasOutArgument reports whether s accepts an out-parameter tensor.
func HasOutArgument(s Schema) bool {
	for _, arg := range s.Arguments() {
		if arg == "out" {
			return true
		}
	}
	return false
}

// NodeKind identifies an operator. It is opaque to the planner beyond
// being usable as an OperatorRegistry lookup key.
type NodeKind string

// Special node kinds the planner inserts; the runtime rewrites a node
// carrying one of these kinds by matching its attributes, never by
// resolving it through the OperatorRegistry.
const (
	KindAllocateStorage    NodeKind = "prim::AllocateStorage"
	KindAllocateTensor     NodeKind = "prim::AllocateTensor"
	KindPreAllocateTensor  NodeKind = "prim::PreAllocateTensor"
)

// Node is an opaque handle to an operator invocation.
type Node interface {
	Kind() NodeKind
	// CanonicalSchemaString is the canonical header of the schema this
	// invocation actually resolved to.
	CanonicalSchemaString() string
	Inputs() []Value
	Outputs() []Value

	// InsertBefore inserts a freshly created node immediately before
	// this one in graph order.
	InsertBefore(newNode Node)
	// AddInput appends v as an additional input to this node, used to
	// wire an inserted AllocateTensor's output into its producer.
	AddInput(v Value)
}

// Graph is the dataflow graph IR, consumed read/write.
type Graph interface {
	// Nodes returns every node in topological order.
	Nodes() []Node
	// CreateNode allocates a new, unattached node of the given kind
	// with the given number of outputs; attributes are set afterward
	// via the attribute setters below, and the node is attached to
	// the graph only once it is passed to an attached node's
	// InsertBefore (or to InsertFront).
	CreateNode(kind NodeKind, numOutputs int) Node
	// InsertFront inserts a freshly created node at the very front of
	// the graph, before every existing node.
	InsertFront(n Node)
	// Output returns the i'th output Value of a node created by
	// CreateNode, for wiring into other nodes' inputs.
	Output(n Node, i int) Value
	// DominantDevice reports the device most outputs in the graph are
	// typed for, used to default AllocateStorage's device attribute.
	DominantDevice() (Device, bool)

	// Attribute setters for nodes created by CreateNode.
	SetIntAttr(n Node, key string, v int64)
	SetIntsAttr(n Node, key string, v []int64)
}

// Attribute keys used on AllocateStorage / AllocateTensor / PreAllocateTensor.
const (
	AttrTotalSize = "total_size"
	AttrSize      = "size"
	AttrOffset    = "offset"
	AttrDevice    = "device"
	AttrDtype     = "dtype"
	AttrSizes     = "sizes"
	AttrStride    = "stride"
)

// AliasInfo is the precomputed alias view (external, built by a
// standard backward dataflow pass over the graph).
type AliasInfo interface {
	AlwaysAlive(v Value) bool
	// Liveness returns the per-value LiveRange computed over the
	// whole graph for every value the pass tracks.
	Liveness(g Graph) map[Value]Range
}

// Range is the graph-level liveness interval for one Value, expressed
// in the same (begin, end) shape as arena.LiveRange but kept decoupled
// from the arena package's identity-bearing LiveRange so AliasInfo
// implementations don't need to depend on internal/arena.
type Range struct {
	Begin int64
	End   int64
}

// OperatorRegistry resolves the schema overloads available for a node
// kind, so the planner can decide whether a node has an out-variant.
type OperatorRegistry interface {
	AllOperatorsFor(kind NodeKind) []Schema
}

// IsOptimizableContainerType reports whether a node is a structural
// operator (e.g. list construction) whose outputs can never be
// individually planned and must always be leaked to the default
// allocator.
type IsOptimizableContainerType func(n Node) bool
