// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package story decodes ZM2 story files.
//
// A story file starts with a fixed 1024 byte big-endian header that
// describes where the code, static data, and dynamic data sections live
// in the machine's address space.
package story

import (
	"encoding/binary"
	"fmt"
	"iter"
	"maps"
)

const (
	HEADER_SIZE   = 1024 // Size of the story header, in bytes.
	RESERVED_PTRS = 5    // Number of reserved context pointers.
)

// Header field offsets.
const (
	OFFSET_VERSION           = 0
	OFFSET_RELEASE           = 2
	OFFSET_STORY_ID          = 4
	OFFSET_CHECKSUM          = 12
	OFFSET_CODE_START        = 20
	OFFSET_CODE_LENGTH       = 28
	OFFSET_STATIC_START      = 36
	OFFSET_STATIC_LENGTH     = 44
	OFFSET_DYNAMIC_START     = 52
	OFFSET_DYNAMIC_LENGTH    = 60
	OFFSET_GLOBALS_START     = 68
	OFFSET_OBJECT_TABLE      = 76
	OFFSET_DICTIONARY        = 84
	OFFSET_ABBREVIATIONS     = 92
	OFFSET_FLAGS1            = 100
	OFFSET_FLAGS2            = 104
	OFFSET_RESERVED          = 108
	OFFSET_PROPERTY_DEFAULTS = 148
)

var _story_defines = map[string]string{
	"HEADER_SIZE": fmt.Sprintf("%#x", HEADER_SIZE),
}

// Header is the decoded story file header.
type Header struct {
	Version                uint16
	Release                uint16
	StoryId                uint64
	Checksum               uint64
	CodeStart              uint64
	CodeLength             uint64
	StaticStart            uint64
	StaticLength           uint64
	DynamicStart           uint64
	DynamicLength          uint64
	GlobalsStart           uint64
	ObjectTableStart       uint64
	DictionaryStart        uint64
	AbbreviationTableStart uint64
	Flags1                 uint32
	Flags2                 uint32
	Reserved               [RESERVED_PTRS]uint64 // Dynamic context pointers, not interpreted.
	PropertyDefaultsStart  uint64
}

// Defines returns the story format defines, for use as assembler equates.
func Defines() iter.Seq2[string, string] {
	return maps.All(_story_defines)
}

// ParseHeader decodes the header from the first HEADER_SIZE bytes of data.
// No field is validated.
func ParseHeader(data []byte) (hdr Header, err error) {
	if len(data) < HEADER_SIZE {
		err = ErrTooShort(len(data))
		return
	}

	be := binary.BigEndian
	u64 := func(off int) uint64 { return be.Uint64(data[off : off+8]) }

	hdr = Header{
		Version:                be.Uint16(data[OFFSET_VERSION:]),
		Release:                be.Uint16(data[OFFSET_RELEASE:]),
		StoryId:                u64(OFFSET_STORY_ID),
		Checksum:               u64(OFFSET_CHECKSUM),
		CodeStart:              u64(OFFSET_CODE_START),
		CodeLength:             u64(OFFSET_CODE_LENGTH),
		StaticStart:            u64(OFFSET_STATIC_START),
		StaticLength:           u64(OFFSET_STATIC_LENGTH),
		DynamicStart:           u64(OFFSET_DYNAMIC_START),
		DynamicLength:          u64(OFFSET_DYNAMIC_LENGTH),
		GlobalsStart:           u64(OFFSET_GLOBALS_START),
		ObjectTableStart:       u64(OFFSET_OBJECT_TABLE),
		DictionaryStart:        u64(OFFSET_DICTIONARY),
		AbbreviationTableStart: u64(OFFSET_ABBREVIATIONS),
		Flags1:                 be.Uint32(data[OFFSET_FLAGS1:]),
		Flags2:                 be.Uint32(data[OFFSET_FLAGS2:]),
		PropertyDefaultsStart:  u64(OFFSET_PROPERTY_DEFAULTS),
	}

	for n := range hdr.Reserved {
		hdr.Reserved[n] = u64(OFFSET_RESERVED + 8*n)
	}

	return
}

// MarshalBinary encodes the header as exactly HEADER_SIZE bytes.
func (hdr *Header) MarshalBinary() (data []byte, err error) {
	data = make([]byte, HEADER_SIZE)

	be := binary.BigEndian
	put := func(off int, value uint64) { be.PutUint64(data[off:off+8], value) }

	be.PutUint16(data[OFFSET_VERSION:], hdr.Version)
	be.PutUint16(data[OFFSET_RELEASE:], hdr.Release)
	put(OFFSET_STORY_ID, hdr.StoryId)
	put(OFFSET_CHECKSUM, hdr.Checksum)
	put(OFFSET_CODE_START, hdr.CodeStart)
	put(OFFSET_CODE_LENGTH, hdr.CodeLength)
	put(OFFSET_STATIC_START, hdr.StaticStart)
	put(OFFSET_STATIC_LENGTH, hdr.StaticLength)
	put(OFFSET_DYNAMIC_START, hdr.DynamicStart)
	put(OFFSET_DYNAMIC_LENGTH, hdr.DynamicLength)
	put(OFFSET_GLOBALS_START, hdr.GlobalsStart)
	put(OFFSET_OBJECT_TABLE, hdr.ObjectTableStart)
	put(OFFSET_DICTIONARY, hdr.DictionaryStart)
	put(OFFSET_ABBREVIATIONS, hdr.AbbreviationTableStart)
	be.PutUint32(data[OFFSET_FLAGS1:], hdr.Flags1)
	be.PutUint32(data[OFFSET_FLAGS2:], hdr.Flags2)
	for n, ptr := range hdr.Reserved {
		put(OFFSET_RESERVED+8*n, ptr)
	}
	put(OFFSET_PROPERTY_DEFAULTS, hdr.PropertyDefaultsStart)

	return
}

// InitialSp is the address just past the dynamic data section, where the
// stack starts.
func (hdr *Header) InitialSp() uint64 {
	return hdr.DynamicStart + hdr.DynamicLength
}

// UnmarshalBinary decodes a header from exactly HEADER_SIZE bytes.
func (hdr *Header) UnmarshalBinary(data []byte) (err error) {
	if len(data) != HEADER_SIZE {
		err = ErrHeaderSize(len(data))
		return
	}

	*hdr, err = ParseHeader(data)
	return
}
