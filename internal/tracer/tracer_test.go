package tracer

import (
	"testing"

	"tensorplan/graphir"
	"tensorplan/internal/arena"
	"tensorplan/internal/trace"
)

func TestInstallStopRoundTrip(t *testing.T) {
	reg := NewRegistry()
	orig := reg.GetAllocator(graphir.DeviceHost)

	clock := int64(0)
	frame := func() arena.FrameNodeId {
		clock++
		return arena.FrameNodeId{Time: clock, NodeSchema: "aten::relu", NodeHeader: "aten::relu.out"}
	}

	tr := Install(reg, graphir.DeviceHost, frame)
	if _, ok := reg.GetAllocator(graphir.DeviceHost).(*TracingAllocator); !ok {
		t.Fatalf("Install did not replace the registry's allocator")
	}

	ptr, err := tr.Allocate(64)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	ptr.Release()

	events := tr.Stop(reg, graphir.DeviceHost)
	if reg.GetAllocator(graphir.DeviceHost) != orig {
		t.Errorf("Stop did not restore the original allocator")
	}

	if len(events) != 2 {
		t.Fatalf("want 2 events, got %d", len(events))
	}
	if events[0].Kind != arena.Allocate || events[1].Kind != arena.Free {
		t.Errorf("events = %+v, want [Allocate, Free]", events)
	}
	if events[0].PtrAddr != events[1].PtrAddr {
		t.Errorf("allocate/free pointer mismatch: %s vs %s", events[0].PtrAddr, events[1].PtrAddr)
	}
	if events[0].NodeHeader != events[1].NodeHeader {
		t.Errorf("allocate/free node header mismatch: %q vs %q", events[0].NodeHeader, events[1].NodeHeader)
	}
	if events[0].Size != 64 || events[1].Size != 64 {
		t.Errorf("event sizes = %d, %d, want 64, 64", events[0].Size, events[1].Size)
	}
	if !(events[0].Time < events[1].Time) {
		t.Errorf("free time %d should follow allocate time %d", events[1].Time, events[0].Time)
	}
}

func TestTracedEventsFeedExtractManagedFromTrace(t *testing.T) {
	reg := NewRegistry()
	clock := int64(0)
	frame := func() arena.FrameNodeId {
		clock++
		return arena.FrameNodeId{Time: clock, NodeSchema: "aten::add", NodeHeader: "aten::add.out"}
	}

	tr := Install(reg, graphir.DeviceHost, frame)
	ptrA, err := tr.Allocate(128)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	ptrB, err := tr.Allocate(256)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	ptrA.Release()
	ptrB.Release()

	events := tr.Stop(reg, graphir.DeviceHost)
	if len(events) != 4 {
		t.Fatalf("want 4 events, got %d", len(events))
	}

	res, err := trace.ExtractManagedFromTrace(events)
	if err != nil {
		t.Fatalf("ExtractManagedFromTrace: %v", err)
	}
	if len(res.Sizes) != 2 {
		t.Errorf("got %d ranges, want 2", len(res.Sizes))
	}
}

func TestHostAllocatorRoundsUpToPage(t *testing.T) {
	if got := roundUpToPage(1); got != pageSize {
		t.Errorf("roundUpToPage(1) = %d, want %d", got, pageSize)
	}

	var a HostAllocator
	ptr, err := a.Allocate(1)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if ptr.Addr == 0 {
		t.Errorf("Addr should be non-zero")
	}
	if ptr.Device != graphir.DeviceHost {
		t.Errorf("Device = %v, want DeviceHost", ptr.Device)
	}
	ptr.Release()
}
