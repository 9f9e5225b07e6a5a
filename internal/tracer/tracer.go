package tracer

import (
	"fmt"
	"sync"

	"tensorplan/graphir"
	"tensorplan/internal/arena"
)

// FrameIDSource is the ambient "what operator invocation is running
// right now" query the runtime interpreter supplies (§4.F): the
// tracer stamps every MemEvent with whatever frame id it returns at
// the moment of the call.
type FrameIDSource func() arena.FrameNodeId

// Registry is a minimal graphir.AllocatorRegistry with DeviceHost
// preloaded with a HostAllocator (§4.F.1) — the allocator DeviceHost
// uses before a tracing session installs an interceptor. Every other
// device has no allocator (GetAllocator returns nil) until one is set.
type Registry struct {
	mu    sync.Mutex
	byDev map[graphir.Device]graphir.Allocator
}

// NewRegistry returns a Registry with DeviceHost bound to a
// HostAllocator.
func NewRegistry() *Registry {
	return &Registry{byDev: map[graphir.Device]graphir.Allocator{
		graphir.DeviceHost: HostAllocator{},
	}}
}

func (r *Registry) GetAllocator(d graphir.Device) graphir.Allocator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byDev[d]
}

func (r *Registry) SetAllocator(d graphir.Device, a graphir.Allocator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byDev[d] = a
}

// TracingAllocator is the scoped interceptor of §4.F: it wraps a
// captured allocator, appending an Allocate MemEvent on every call
// and a Free MemEvent when a returned DataPtr's Release fires. This
// is the same "own the mutable state behind a lock, restore the prior
// state on scope exit" shape as the teacher's DB guarding its segment
// manager with writeMu/lifeMu (internal/engine/db.go) — here the
// guarded state is the event list instead of a segment set, and
// "restore" means reinstalling the original allocator rather than
// closing segment files.
//
// §5 expects a single executor thread per profiling session; the
// mutex is cheap insurance against an accidental second allocation
// racing a Stop, not a concurrency guarantee for general use.
type TracingAllocator struct {
	orig  graphir.Allocator
	frame FrameIDSource

	mu     sync.Mutex
	events []arena.MemEvent
	seq    uint64
}

// Install captures reg's current allocator for device, replaces it
// with a new TracingAllocator, and returns the tracer. Callers must
// call Stop on every exit path out of the profiling scope, typically
// via defer, to guarantee the original allocator is restored.
func Install(reg graphir.AllocatorRegistry, device graphir.Device, frame FrameIDSource) *TracingAllocator {
	t := &TracingAllocator{orig: reg.GetAllocator(device), frame: frame}
	reg.SetAllocator(device, t)
	return t
}

// Stop restores the captured allocator on reg for device and returns
// every MemEvent recorded during the session, in the order they were
// recorded.
func (t *TracingAllocator) Stop(reg graphir.AllocatorRegistry, device graphir.Device) []arena.MemEvent {
	reg.SetAllocator(device, t.orig)

	t.mu.Lock()
	defer t.mu.Unlock()
	events := t.events
	t.events = nil
	return events
}

// Allocate implements graphir.Allocator by delegating to the captured
// allocator, recording an Allocate MemEvent stamped with the current
// frame, and wrapping the real DataPtr's deleter so its eventual
// Release records a Free MemEvent. The Free event carries the same
// NodeSchema/NodeHeader as its Allocate — required by §4.C's
// node_header equality check — with a freshly queried Time marking
// when the release actually happened.
func (t *TracingAllocator) Allocate(nbytes uint64) (graphir.DataPtr, error) {
	ptr, err := t.orig.Allocate(nbytes)
	if err != nil {
		return graphir.DataPtr{}, err
	}

	allocFrame := t.frame()
	ptrAddr := ptrKey(ptr.Addr)

	t.mu.Lock()
	t.seq++
	t.events = append(t.events, arena.MemEvent{
		Time:       allocFrame.Time,
		PC:         t.seq,
		PtrAddr:    ptrAddr,
		NodeSchema: allocFrame.NodeSchema,
		NodeHeader: allocFrame.NodeHeader,
		Size:       nbytes,
		Kind:       arena.Allocate,
	})
	t.mu.Unlock()

	release := ptr.Release
	ptr.Release = func() {
		if release != nil {
			release()
		}
		freeTime := t.frame().Time

		t.mu.Lock()
		t.seq++
		t.events = append(t.events, arena.MemEvent{
			Time:       freeTime,
			PC:         t.seq,
			PtrAddr:    ptrAddr,
			NodeSchema: allocFrame.NodeSchema,
			NodeHeader: allocFrame.NodeHeader,
			Size:       nbytes,
			Kind:       arena.Free,
		})
		t.mu.Unlock()
	}
	return ptr, nil
}

func ptrKey(addr uintptr) string {
	return fmt.Sprintf("0x%x", addr)
}
