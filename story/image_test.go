package story

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func storyBytes(hdr Header, size int, fill byte) []byte {
	data, _ := hdr.MarshalBinary()
	for len(data) < size {
		data = append(data, fill)
	}
	return data
}

func TestImage(t *testing.T) {
	assert := assert.New(t)

	hdr := Header{
		Version:       0x0200,
		CodeStart:     1024,
		CodeLength:    8,
		StaticStart:   1032,
		StaticLength:  8,
		DynamicStart:  1040,
		DynamicLength: 256,
	}
	data := storyBytes(hdr, 1048, 0xDA)

	image, err := Image(&hdr, data)
	assert.NoError(err)
	assert.Equal(1040+256, len(image))
	assert.Equal(data[:1040], image[:1040])
	for n := 1040; n < len(image); n++ {
		assert.Equal(byte(0), image[n])
	}
}

func TestImage_DropsUndeclaredBytes(t *testing.T) {
	assert := assert.New(t)

	hdr := Header{
		Version:       0x0200,
		CodeStart:     1024,
		CodeLength:    8,
		DynamicStart:  1040,
		DynamicLength: 16,
	}
	data := storyBytes(hdr, 1056, 0x5A)

	image, err := Image(&hdr, data)
	assert.NoError(err)
	assert.Equal(1056, len(image))
	assert.Equal(byte(0x5A), image[1031])
	assert.Equal(byte(0), image[1032])
	assert.Equal(byte(0), image[1055])
}

func TestImage_MinimumSize(t *testing.T) {
	assert := assert.New(t)

	hdr := Header{Version: 0x0200}
	image, err := Image(&hdr, storyBytes(hdr, HEADER_SIZE, 0))
	assert.NoError(err)
	assert.Equal(HEADER_SIZE, len(image))
}

func TestImage_SectionOutOfBounds(t *testing.T) {
	table := [](struct {
		name string
		hdr  Header
	}){
		{"code_past_file", Header{CodeStart: 1024, CodeLength: 64}},
		{"static_past_file", Header{StaticStart: 1024, StaticLength: 64}},
		{"code_wraps", Header{CodeStart: ^uint64(0), CodeLength: 2}},
		{"dynamic_wraps", Header{DynamicStart: 8, DynamicLength: ^uint64(0)}},
		{"dynamic_huge", Header{DynamicStart: 1024, DynamicLength: MEMORY_LIMIT}},
	}

	for _, entry := range table {
		assert := assert.New(t)

		_, err := Image(&entry.hdr, storyBytes(entry.hdr, 1032, 0))
		assert.Error(err, entry.name)
		assert.True(errors.Is(err, ErrSectionOutOfBounds{}), entry.name)
	}
}

func TestImage_TooShort(t *testing.T) {
	assert := assert.New(t)

	hdr := Header{}
	_, err := Image(&hdr, make([]byte, 10))
	assert.True(errors.Is(err, ErrTooShort(0)))
}
