package memory

import (
	"github.com/ezrec/zm2/translate"
)

var f = translate.From

// ErrOutOfBounds is returned for any access that extends past the end of
// the address space.
type ErrOutOfBounds struct {
	Address uint64
	Width   int
	Size    int
}

func (err ErrOutOfBounds) Error() string {
	return f("address %#x (width %v) out of bounds, memory size %#x", err.Address, err.Width, err.Size)
}

func (err ErrOutOfBounds) Is(target error) (ok bool) {
	_, ok = target.(ErrOutOfBounds)
	return
}

// ErrUnsupportedVersion is returned when a story header has a version
// other than VERSION_SUPPORTED.
type ErrUnsupportedVersion uint16

func (err ErrUnsupportedVersion) Error() string {
	return f("unsupported story version %#04x, expected %#04x", uint16(err), VERSION_SUPPORTED)
}

func (err ErrUnsupportedVersion) Is(target error) (ok bool) {
	_, ok = target.(ErrUnsupportedVersion)
	return
}
