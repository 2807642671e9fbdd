package story

import (
	"math/bits"
)

const (
	MEMORY_LIMIT = uint64(1) << 32 // Largest memory image that will be allocated.
)

// section is a header-declared address range.
type section struct {
	name   string
	start  uint64
	length uint64
	loaded bool // Copied from the story file.
}

func (hdr *Header) sections() []section {
	return []section{
		{"code", hdr.CodeStart, hdr.CodeLength, true},
		{"static", hdr.StaticStart, hdr.StaticLength, true},
		{"dynamic", hdr.DynamicStart, hdr.DynamicLength, false},
	}
}

// end returns the first address past the section.
func (s section) end() (end uint64, err error) {
	end, carry := bits.Add64(s.start, s.length, 0)
	if carry != 0 || end > MEMORY_LIMIT {
		err = ErrSectionOutOfBounds{Section: s.name, Start: s.start, Length: s.length}
	}
	return
}

// Image builds the memory image for a story.
//
// The image covers the header and every section the header declares. The
// header, code, and static data are copied from data; everything else,
// including the dynamic data section, starts zeroed.
func Image(hdr *Header, data []byte) (image []byte, err error) {
	if len(data) < HEADER_SIZE {
		err = ErrTooShort(len(data))
		return
	}

	size := uint64(HEADER_SIZE)
	for _, s := range hdr.sections() {
		var end uint64
		end, err = s.end()
		if err != nil {
			return
		}
		if s.loaded && s.length > 0 && end > uint64(len(data)) {
			err = ErrSectionOutOfBounds{Section: s.name, Start: s.start, Length: s.length}
			return
		}
		size = max(size, end)
	}

	image = make([]byte, size)
	copy(image, data[:HEADER_SIZE])

	for _, s := range hdr.sections() {
		if !s.loaded || s.length == 0 {
			continue
		}
		copy(image[s.start:s.start+s.length], data[s.start:s.start+s.length])
	}

	return
}
