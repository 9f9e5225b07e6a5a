package trace

import (
	"errors"
	"testing"

	"tensorplan/internal/arena"
	"tensorplan/internal/errs"
)

func alloc(t int64, ptr string, size uint64) arena.MemEvent {
	return arena.MemEvent{Time: t, PtrAddr: ptr, Size: size, NodeSchema: "aten::add", NodeHeader: "aten::add(Tensor, Tensor) -> Tensor", Kind: arena.Allocate}
}

func free(t int64, ptr string, size uint64) arena.MemEvent {
	return arena.MemEvent{Time: t, PtrAddr: ptr, Size: size, NodeSchema: "aten::add", NodeHeader: "aten::add(Tensor, Tensor) -> Tensor", Kind: arena.Free}
}

// TestExtractManagedFromTraceScenario matches §8's trace scenario.
func TestExtractManagedFromTraceScenario(t *testing.T) {
	events := []arena.MemEvent{
		alloc(1, "X", 16),
		alloc(2, "Y", 8),
		free(5, "Y", 8),
		free(9, "X", 16),
	}
	res, err := ExtractManagedFromTrace(events)
	if err != nil {
		t.Fatalf("ExtractManagedFromTrace: %v", err)
	}
	if len(res.Sizes) != 2 {
		t.Fatalf("got %d ranges, want 2", len(res.Sizes))
	}
	var sawX, sawY bool
	for lvr, size := range res.Sizes {
		switch {
		case lvr.Begin == 1 && lvr.End == 9:
			sawX = true
			if size != 16 {
				t.Errorf("X size = %d, want 16", size)
			}
		case lvr.Begin == 2 && lvr.End == 5:
			sawY = true
			if size != 8 {
				t.Errorf("Y size = %d, want 8", size)
			}
		default:
			t.Errorf("unexpected range [%d,%d]", lvr.Begin, lvr.End)
		}
	}
	if !sawX || !sawY {
		t.Fatalf("missing expected range: sawX=%v sawY=%v", sawX, sawY)
	}
}

func TestExtractManagedFromTraceEmpty(t *testing.T) {
	_, err := ExtractManagedFromTrace(nil)
	if !errors.Is(err, errs.ErrEmptyTrace) {
		t.Fatalf("err = %v, want ErrEmptyTrace", err)
	}
}

func TestExtractManagedFromTraceSizeMismatch(t *testing.T) {
	events := []arena.MemEvent{
		alloc(1, "X", 16),
		free(5, "X", 8),
	}
	_, err := ExtractManagedFromTrace(events)
	if !errors.Is(err, errs.ErrTraceCorrupt) {
		t.Fatalf("err = %v, want ErrTraceCorrupt", err)
	}
}

func TestExtractManagedFromTraceUnmatchedFree(t *testing.T) {
	events := []arena.MemEvent{free(5, "X", 8)}
	_, err := ExtractManagedFromTrace(events)
	if !errors.Is(err, errs.ErrTraceCorrupt) {
		t.Fatalf("err = %v, want ErrTraceCorrupt", err)
	}
}

func TestExtractManagedFromTraceUnfreedAllocation(t *testing.T) {
	events := []arena.MemEvent{alloc(1, "X", 16)}
	_, err := ExtractManagedFromTrace(events)
	if !errors.Is(err, errs.ErrTraceCorrupt) {
		t.Fatalf("err = %v, want ErrTraceCorrupt", err)
	}
}

func TestExtractManagedFromTraceNodeHeaderMismatch(t *testing.T) {
	a := alloc(1, "X", 16)
	f := free(5, "X", 16)
	f.NodeHeader = "aten::mul(Tensor, Tensor) -> Tensor"
	_, err := ExtractManagedFromTrace([]arena.MemEvent{a, f})
	if !errors.Is(err, errs.ErrTraceCorrupt) {
		t.Fatalf("err = %v, want ErrTraceCorrupt", err)
	}
}
