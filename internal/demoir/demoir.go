// Package demoir is a minimal, in-memory implementation of the
// graphir.Graph collaborator, used by cmd/tensorplan-demo to exercise
// the planner end-to-end without a real runtime graph IR behind it.
// It mirrors the node/value shape of graphir.Graph directly, the same
// way the teacher's demo binary drove its engine.DB straight from
// main() rather than through an extra abstraction layer.
package demoir

import (
	"fmt"

	"tensorplan/graphir"
)

// Value is a demo tensor handle: a debug name and an optional static type.
type Value struct {
	Name string
	TT   graphir.TensorType
	Has  bool
}

func (v *Value) Type() (graphir.TensorType, bool) { return v.TT, v.Has }
func (v *Value) DebugName() string                { return v.Name }

// Node is a demo operator invocation.
type Node struct {
	graph   *Graph
	kind    graphir.NodeKind
	schema  string
	inputs  []graphir.Value
	outputs []graphir.Value
	ints    map[string]int64
	intArrs map[string][]int64
}

func (n *Node) Kind() graphir.NodeKind            { return n.kind }
func (n *Node) CanonicalSchemaString() string     { return n.schema }
func (n *Node) Inputs() []graphir.Value           { return n.inputs }
func (n *Node) Outputs() []graphir.Value          { return n.outputs }
func (n *Node) AddInput(v graphir.Value)          { n.inputs = append(n.inputs, v) }

// IntAttr returns an attribute set by the materializer, for printing.
func (n *Node) IntAttr(key string) (int64, bool) { v, ok := n.ints[key]; return v, ok }

// IntsAttr returns an int-array attribute set by the materializer.
func (n *Node) IntsAttr(key string) ([]int64, bool) { v, ok := n.intArrs[key]; return v, ok }

func (n *Node) InsertBefore(newNode graphir.Node) {
	fn := newNode.(*Node)
	fn.graph = n.graph
	idx := n.graph.indexOf(n)
	n.graph.nodes = append(n.graph.nodes[:idx:idx], append([]*Node{fn}, n.graph.nodes[idx:]...)...)
}

// Graph is a demo graphir.Graph: an ordered, mutable node list.
type Graph struct {
	nodes  []*Node
	device graphir.Device
	hasDev bool
	seq    int
}

// New returns an empty Graph whose DominantDevice is device.
func New(device graphir.Device) *Graph {
	return &Graph{device: device, hasDev: true}
}

func (g *Graph) indexOf(n *Node) int {
	for i, x := range g.nodes {
		if x == n {
			return i
		}
	}
	panic("demoir: node not attached to this graph")
}

// AddNode appends a node already carrying its kind, canonical schema
// string, and outputs to the end of the graph, simulating a node that
// existed before planning ran.
func (g *Graph) AddNode(kind graphir.NodeKind, schema string, outputs ...*Value) *Node {
	vs := make([]graphir.Value, len(outputs))
	for i, v := range outputs {
		vs[i] = v
	}
	n := &Node{graph: g, kind: kind, schema: schema, outputs: vs, ints: map[string]int64{}, intArrs: map[string][]int64{}}
	g.nodes = append(g.nodes, n)
	return n
}

func (g *Graph) Nodes() []graphir.Node {
	out := make([]graphir.Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n
	}
	return out
}

func (g *Graph) CreateNode(kind graphir.NodeKind, numOutputs int) graphir.Node {
	n := &Node{graph: g, kind: kind, ints: map[string]int64{}, intArrs: map[string][]int64{}}
	for i := 0; i < numOutputs; i++ {
		g.seq++
		n.outputs = append(n.outputs, &Value{Name: fmt.Sprintf("%%%d", g.seq)})
	}
	return n
}

func (g *Graph) InsertFront(n graphir.Node) {
	fn := n.(*Node)
	fn.graph = g
	g.nodes = append([]*Node{fn}, g.nodes...)
}

func (g *Graph) Output(n graphir.Node, i int) graphir.Value {
	return n.(*Node).outputs[i]
}

func (g *Graph) DominantDevice() (graphir.Device, bool) { return g.device, g.hasDev }

func (g *Graph) SetIntAttr(n graphir.Node, key string, v int64) {
	n.(*Node).ints[key] = v
}

func (g *Graph) SetIntsAttr(n graphir.Node, key string, v []int64) {
	n.(*Node).intArrs[key] = v
}

// Dump returns every node in order with its kind and attributes, for
// the demo binary to print after planning.
func (g *Graph) Dump() []*Node {
	return g.nodes
}
