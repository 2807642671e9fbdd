package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/zm2/story"
)

// newStoryData creates a 2048 byte story with the given version, with the
// area after the header filled with 0xCC.
func newStoryData(version uint16) []byte {
	hdr := story.Header{
		Version:       version,
		StoryId:       0xAA,
		Checksum:      0x123456789ABCDEF0,
		CodeStart:     1024,
		CodeLength:    256,
		StaticStart:   1280,
		StaticLength:  128,
		DynamicStart:  1408,
		DynamicLength: 64,
	}
	data, _ := hdr.MarshalBinary()
	for len(data) < 2048 {
		data = append(data, 0xCC)
	}
	return data
}

func TestNewAddressSpace(t *testing.T) {
	assert := assert.New(t)

	data := newStoryData(VERSION_SUPPORTED)
	as, err := NewAddressSpace(data)
	assert.NoError(err)
	assert.Equal(VERSION_SUPPORTED, as.Header().Version)
	assert.Equal(uint64(1408), as.Header().DynamicStart)
	assert.Equal(len(data), as.Len())
	assert.Equal(data, as.Bytes())
}

func TestNewAddressSpace_TooShort(t *testing.T) {
	assert := assert.New(t)

	as, err := NewAddressSpace(make([]byte, 512))
	assert.Nil(as)
	assert.True(errors.Is(err, story.ErrTooShort(0)))
}

func TestNewAddressSpace_Version(t *testing.T) {
	assert := assert.New(t)

	as, err := NewAddressSpace(newStoryData(0x0100))
	assert.Nil(as)
	assert.Equal(ErrUnsupportedVersion(0x0100), err)
	assert.True(errors.Is(err, ErrUnsupportedVersion(0)))
}

func TestReadU8(t *testing.T) {
	assert := assert.New(t)

	as, _ := NewAddressSpace(newStoryData(VERSION_SUPPORTED))

	val, err := as.ReadU8(0x0B)
	assert.NoError(err)
	assert.Equal(uint8(0xAA), val)

	val, err = as.ReadU8(1024)
	assert.NoError(err)
	assert.Equal(uint8(0xCC), val)
}

func TestReadWord(t *testing.T) {
	assert := assert.New(t)

	as, _ := NewAddressSpace(newStoryData(VERSION_SUPPORTED))

	val, err := as.ReadWord(0x04)
	assert.NoError(err)
	assert.Equal(uint64(0xAA), val)

	val, err = as.ReadWord(0x0C)
	assert.NoError(err)
	assert.Equal(uint64(0x123456789ABCDEF0), val)
}

func TestWriteWord(t *testing.T) {
	assert := assert.New(t)

	as, _ := NewAddressSpace(newStoryData(VERSION_SUPPORTED))

	addr := uint64(1033)
	assert.NoError(as.WriteWord(addr, 0xAABBCCDDEEFF0011))

	val, err := as.ReadWord(addr)
	assert.NoError(err)
	assert.Equal(uint64(0xAABBCCDDEEFF0011), val)

	expected := []uint8{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00, 0x11}
	for n, b := range expected {
		got, err := as.ReadU8(addr + uint64(n))
		assert.NoError(err)
		assert.Equal(b, got)
	}
}

func TestReadWriteU16(t *testing.T) {
	assert := assert.New(t)

	as, _ := NewAddressSpace(newStoryData(VERSION_SUPPORTED))

	assert.NoError(as.WriteU16(1024, 0xABCD))
	val, err := as.ReadU16(1024)
	assert.NoError(err)
	assert.Equal(uint16(0xABCD), val)

	b, _ := as.ReadU8(1024)
	assert.Equal(uint8(0xAB), b)
	b, _ = as.ReadU8(1025)
	assert.Equal(uint8(0xCD), b)
}

func TestReadWriteU32(t *testing.T) {
	assert := assert.New(t)

	as, _ := NewAddressSpace(newStoryData(VERSION_SUPPORTED))

	assert.NoError(as.WriteU32(1028, 0x12345678))
	val, err := as.ReadU32(1028)
	assert.NoError(err)
	assert.Equal(uint32(0x12345678), val)

	for n, expected := range []uint8{0x12, 0x34, 0x56, 0x78} {
		b, _ := as.ReadU8(1028 + uint64(n))
		assert.Equal(expected, b)
	}
}

func TestWriteU8(t *testing.T) {
	assert := assert.New(t)

	as, _ := NewAddressSpace(newStoryData(VERSION_SUPPORTED))

	assert.NoError(as.WriteU8(1025, 0xFF))
	val, err := as.ReadU8(1025)
	assert.NoError(err)
	assert.Equal(uint8(0xFF), val)
}

// TestBounds checks every width at the exact top of the address space.
func TestBounds(t *testing.T) {
	as, _ := NewAddressSpace(newStoryData(VERSION_SUPPORTED))
	size := uint64(as.Len())

	table := [](struct {
		name  string
		width uint64
		read  func(addr uint64) error
		write func(addr uint64) error
	}){
		{"byte", 1,
			func(addr uint64) (err error) { _, err = as.ReadU8(addr); return },
			func(addr uint64) error { return as.WriteU8(addr, 1) }},
		{"u16", 2,
			func(addr uint64) (err error) { _, err = as.ReadU16(addr); return },
			func(addr uint64) error { return as.WriteU16(addr, 1) }},
		{"u32", 4,
			func(addr uint64) (err error) { _, err = as.ReadU32(addr); return },
			func(addr uint64) error { return as.WriteU32(addr, 1) }},
		{"word", 8,
			func(addr uint64) (err error) { _, err = as.ReadWord(addr); return },
			func(addr uint64) error { return as.WriteWord(addr, 1) }},
	}

	for _, entry := range table {
		assert := assert.New(t)

		last := size - entry.width
		assert.NoError(entry.read(last), entry.name)
		assert.NoError(entry.write(last), entry.name)

		for _, addr := range []uint64{last + 1, size, ^uint64(0), ^uint64(0) - entry.width + 1} {
			err := entry.read(addr)
			assert.True(errors.Is(err, ErrOutOfBounds{}), entry.name)
			err = entry.write(addr)
			assert.True(errors.Is(err, ErrOutOfBounds{}), entry.name)
		}
	}
}

func TestOutOfBounds_Fields(t *testing.T) {
	assert := assert.New(t)

	as, _ := NewAddressSpace(newStoryData(VERSION_SUPPORTED))
	size := as.Len()

	_, err := as.ReadWord(uint64(size - 7))
	assert.Equal(ErrOutOfBounds{Address: uint64(size - 7), Width: 8, Size: size}, err)
}
