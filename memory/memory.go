// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package memory implements the bounds-checked address space of a ZM2
// machine.
package memory

import (
	"encoding/binary"
	"fmt"
	"iter"
	"maps"

	"github.com/ezrec/zm2/story"
)

const (
	VERSION_SUPPORTED = uint16(0x0200) // The only story version the machine runs.
)

var _memory_defines = map[string]string{
	"VERSION_SUPPORTED": fmt.Sprintf("%#x", VERSION_SUPPORTED),
}

// AddressSpace is the full memory of a machine. All accesses are
// big-endian, need no alignment, and fail rather than truncate.
type AddressSpace struct {
	header story.Header
	data   []byte
}

// Defines for the address space.
func Defines() iter.Seq2[string, string] {
	return maps.All(_memory_defines)
}

// Validate checks that a header describes a story this machine can run.
func Validate(hdr *story.Header) (err error) {
	if hdr.Version != VERSION_SUPPORTED {
		err = ErrUnsupportedVersion(hdr.Version)
	}
	return
}

// NewAddressSpace creates an address space backed by data, which must
// start with a valid story header. data is retained, not copied.
func NewAddressSpace(data []byte) (as *AddressSpace, err error) {
	hdr, err := story.ParseHeader(data)
	if err != nil {
		return
	}

	err = Validate(&hdr)
	if err != nil {
		return
	}

	as = &AddressSpace{
		header: hdr,
		data:   data,
	}

	return
}

// Header returns the story header the address space was built from.
// Callers must not modify it.
func (as *AddressSpace) Header() *story.Header {
	return &as.header
}

// Len returns the size of the address space in bytes.
func (as *AddressSpace) Len() int {
	return len(as.data)
}

// Bytes returns the backing store.
func (as *AddressSpace) Bytes() []byte {
	return as.data
}

// span returns the slice for width bytes at address.
func (as *AddressSpace) span(address uint64, width int) (buf []byte, err error) {
	size := uint64(len(as.data))
	if address > size || uint64(width) > size-address {
		err = ErrOutOfBounds{Address: address, Width: width, Size: len(as.data)}
		return
	}

	buf = as.data[address : address+uint64(width)]
	return
}

// ReadU8 reads the byte at address.
func (as *AddressSpace) ReadU8(address uint64) (value uint8, err error) {
	buf, err := as.span(address, 1)
	if err != nil {
		return
	}
	value = buf[0]
	return
}

// WriteU8 writes the byte at address.
func (as *AddressSpace) WriteU8(address uint64, value uint8) (err error) {
	buf, err := as.span(address, 1)
	if err != nil {
		return
	}
	buf[0] = value
	return
}

// ReadU16 reads the 16-bit value at address.
func (as *AddressSpace) ReadU16(address uint64) (value uint16, err error) {
	buf, err := as.span(address, 2)
	if err != nil {
		return
	}
	value = binary.BigEndian.Uint16(buf)
	return
}

// WriteU16 writes the 16-bit value at address.
func (as *AddressSpace) WriteU16(address uint64, value uint16) (err error) {
	buf, err := as.span(address, 2)
	if err != nil {
		return
	}
	binary.BigEndian.PutUint16(buf, value)
	return
}

// ReadU32 reads the 32-bit value at address.
func (as *AddressSpace) ReadU32(address uint64) (value uint32, err error) {
	buf, err := as.span(address, 4)
	if err != nil {
		return
	}
	value = binary.BigEndian.Uint32(buf)
	return
}

// WriteU32 writes the 32-bit value at address.
func (as *AddressSpace) WriteU32(address uint64, value uint32) (err error) {
	buf, err := as.span(address, 4)
	if err != nil {
		return
	}
	binary.BigEndian.PutUint32(buf, value)
	return
}

// ReadWord reads the 64-bit word at address.
func (as *AddressSpace) ReadWord(address uint64) (value uint64, err error) {
	buf, err := as.span(address, 8)
	if err != nil {
		return
	}
	value = binary.BigEndian.Uint64(buf)
	return
}

// WriteWord writes the 64-bit word at address.
func (as *AddressSpace) WriteWord(address uint64, value uint64) (err error) {
	buf, err := as.span(address, 8)
	if err != nil {
		return
	}
	binary.BigEndian.PutUint64(buf, value)
	return
}
