// Package tracer implements the tracing allocator of §4.F: a scoped
// interceptor installed on a device's allocator for the duration of a
// single profiling run, plus the host-memory backend of §4.F.1 that
// stands in for a device-specific allocator before the runtime wires
// one in.
package tracer

import (
	"fmt"
	"unsafe"

	"tensorplan/graphir"
	"tensorplan/internal/mmap"
)

// pageSize is the rounding granularity HostAllocator reserves in,
// mirroring the teacher's size-class rounding in
// internal/segment/size.go (there rounding byte requests up to an
// alignment boundary before committing a block; here rounding up to a
// whole page before calling into the kernel).
const pageSize = 4096

func roundUpToPage(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return (n + pageSize - 1) / pageSize * pageSize
}

// HostAllocator is the default graphir.Allocator for DeviceHost: every
// Allocate reserves a fresh anonymous, private mmap region and returns
// a DataPtr whose Release unmaps it. It is stateless and safe to share
// across planning invocations; TracingAllocator wraps an instance of
// it (or whatever allocator the runtime has installed) during a
// profiling session.
type HostAllocator struct{}

// Allocate reserves nbytes of anonymous host memory, rounded up to a
// whole page (a zero-byte request reserves one page); DataPtr carries
// no size, so callers cannot observe the rounding.
func (HostAllocator) Allocate(nbytes uint64) (graphir.DataPtr, error) {
	size := roundUpToPage(nbytes)
	if size == 0 {
		size = pageSize
	}
	region, err := mmap.Reserve(int(size))
	if err != nil {
		return graphir.DataPtr{}, fmt.Errorf("tensorplan: host allocate %d bytes: %w", nbytes, err)
	}
	addr := regionAddr(region)
	return graphir.DataPtr{
		Addr:   addr,
		Device: graphir.DeviceHost,
		Release: func() {
			_ = mmap.Release(region)
		},
	}, nil
}

// regionAddr returns the address of a reserved region's first byte,
// the raw handle DataPtr.Addr carries. The slice is kept alive for the
// lifetime of the DataPtr by the closure captured in its Release field.
func regionAddr(region []byte) uintptr {
	return uintptr(unsafe.Pointer(&region[0]))
}
