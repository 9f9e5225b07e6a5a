//go:build unix

package mmap

import (
	"golang.org/x/sys/unix"
)

// Reserve maps an anonymous, private region of exactly size bytes. The
// kernel rounds the mapping up to a whole number of pages internally;
// callers never observe that through the returned slice's length.
func Reserve(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

// Release unmaps a region obtained from Reserve.
func Release(data []byte) error {
	return unix.Munmap(data)
}
