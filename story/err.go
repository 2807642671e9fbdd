package story

import (
	"github.com/ezrec/zm2/translate"
)

var f = translate.From

// ErrTooShort is returned when the story is smaller than its header.
type ErrTooShort int

func (err ErrTooShort) Error() string {
	return f("story too short: %#x bytes, need %#x", int(err), HEADER_SIZE)
}

func (err ErrTooShort) Is(target error) (ok bool) {
	_, ok = target.(ErrTooShort)
	return
}

// ErrSectionOutOfBounds is returned when a header section cannot be placed
// in the memory image.
type ErrSectionOutOfBounds struct {
	Section string
	Start   uint64
	Length  uint64
}

func (err ErrSectionOutOfBounds) Error() string {
	return f("%v section [%#x +%#x] out of bounds", err.Section, err.Start, err.Length)
}

func (err ErrSectionOutOfBounds) Is(target error) (ok bool) {
	_, ok = target.(ErrSectionOutOfBounds)
	return
}

// ErrHeaderSize is returned when an encoded header is not exactly
// HEADER_SIZE bytes.
type ErrHeaderSize int

func (err ErrHeaderSize) Error() string {
	return f("header size %#x bytes, need %#x", int(err), HEADER_SIZE)
}

func (err ErrHeaderSize) Is(target error) (ok bool) {
	_, ok = target.(ErrHeaderSize)
	return
}
