// Package record frames a MemEvent trace for on-disk storage: a fixed
// magic/version/count/crc header followed by length-prefixed event
// records, the same little-endian-plus-CRC32 shape the teacher used
// to frame one key/value record (magic/version/len/crc), adapted here
// to frame a whole trace instead of a single record.
package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"tensorplan/internal/arena"
)

const (
	magic      uint32 = 0x544e5350 // "TNSP"
	version    uint16 = 1
	headerSize        = 4 + 2 + 4 + 4
)

// Header is the fixed-size preamble of an encoded trace file.
type Header struct {
	Magic   uint32
	Version uint16
	Count   uint32
	CRC32   uint32
}

// EncodeTrace serializes events into the on-disk trace format.
func EncodeTrace(events []arena.MemEvent) []byte {
	var body bytes.Buffer
	for _, ev := range events {
		writeEvent(&body, ev)
	}
	payload := body.Bytes()

	out := make([]byte, headerSize, headerSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], magic)
	binary.LittleEndian.PutUint16(out[4:6], version)
	binary.LittleEndian.PutUint32(out[6:10], uint32(len(events)))
	binary.LittleEndian.PutUint32(out[10:14], crc32.ChecksumIEEE(payload))
	return append(out, payload...)
}

// DecodeTrace parses the format EncodeTrace produces, verifying the
// magic number, version, and checksum before returning the events.
func DecodeTrace(data []byte) ([]arena.MemEvent, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("tensorplan: trace file too short (%d bytes)", len(data))
	}
	h := Header{
		Magic:   binary.LittleEndian.Uint32(data[0:4]),
		Version: binary.LittleEndian.Uint16(data[4:6]),
		Count:   binary.LittleEndian.Uint32(data[6:10]),
		CRC32:   binary.LittleEndian.Uint32(data[10:14]),
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("tensorplan: bad trace magic %#x", h.Magic)
	}
	if h.Version != version {
		return nil, fmt.Errorf("tensorplan: unsupported trace version %d", h.Version)
	}
	payload := data[headerSize:]
	if crc32.ChecksumIEEE(payload) != h.CRC32 {
		return nil, fmt.Errorf("tensorplan: trace file failed crc check")
	}

	events := make([]arena.MemEvent, 0, h.Count)
	r := bytes.NewReader(payload)
	for i := uint32(0); i < h.Count; i++ {
		ev, err := readEvent(r)
		if err != nil {
			return nil, fmt.Errorf("tensorplan: decoding event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func writeEvent(buf *bytes.Buffer, ev arena.MemEvent) {
	var fixed [17]byte
	binary.LittleEndian.PutUint64(fixed[0:8], uint64(ev.Time))
	binary.LittleEndian.PutUint64(fixed[8:16], ev.PC)
	fixed[16] = byte(ev.Kind)
	buf.Write(fixed[:])

	writeString(buf, ev.PtrAddr)
	writeString(buf, ev.NodeSchema)
	writeString(buf, ev.NodeHeader)
	writeString(buf, ev.Backtrace)

	var size [8]byte
	binary.LittleEndian.PutUint64(size[:], ev.Size)
	buf.Write(size[:])
}

func writeString(buf *bytes.Buffer, s string) {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
}

func readEvent(r *bytes.Reader) (arena.MemEvent, error) {
	var fixed [17]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return arena.MemEvent{}, err
	}
	ev := arena.MemEvent{
		Time: int64(binary.LittleEndian.Uint64(fixed[0:8])),
		PC:   binary.LittleEndian.Uint64(fixed[8:16]),
		Kind: arena.EventKind(fixed[16]),
	}

	var err error
	if ev.PtrAddr, err = readString(r); err != nil {
		return arena.MemEvent{}, err
	}
	if ev.NodeSchema, err = readString(r); err != nil {
		return arena.MemEvent{}, err
	}
	if ev.NodeHeader, err = readString(r); err != nil {
		return arena.MemEvent{}, err
	}
	if ev.Backtrace, err = readString(r); err != nil {
		return arena.MemEvent{}, err
	}

	var size [8]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return arena.MemEvent{}, err
	}
	ev.Size = binary.LittleEndian.Uint64(size[:])
	return ev, nil
}

func readString(r *bytes.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.LittleEndian.Uint16(lenBuf[:])
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
