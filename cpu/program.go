package cpu

import (
	"github.com/ezrec/zm2/memory"
	"github.com/ezrec/zm2/story"
)

const (
	DYNAMIC_LENGTH_DEFAULT = 4096 // Default size of the dynamic data section.
)

// Link is the kind of label fixup an opcode needs.
type Link int

const (
	LINK_NONE     = Link(0) // No fixup.
	LINK_PACKED   = Link(1) // 32-bit offset from the code section start.
	LINK_RELATIVE = Link(2) // Signed 16-bit offset from the end of the field.
)

// Statement represents a line of assembled code with its source location and
// generated bytes.
type Statement struct {
	LineNo    int      // Source line number.
	Addr      int      // Offset of the first byte from the code section start.
	Words     []string // Source words.
	Bytes     []byte   // Encoded instruction or data.
	LinkLabel string   // Label to resolve into Bytes, if any.
	Link      Link     // Kind of fixup for LinkLabel.
	LinkAt    int      // Offset of the fixup field within Bytes.
}

// Program is an assembled instruction stream.
type Program struct {
	Statements []Statement
	Labels     map[string]int // Label offsets from the code section start.
}

type Debug struct {
	*Statement
	Index int // Byte index within the opcode.
}

// Layout controls how a program is placed in a story file.
type Layout struct {
	Release       uint16
	StoryId       uint64
	CodeStart     uint64 // Zero places code right after the header.
	DynamicLength uint64 // Zero uses DYNAMIC_LENGTH_DEFAULT.
}

// Debug finds the opcode that assembled the byte at addr.
func (prog *Program) Debug(addr int) (dbg Debug) {
	for n, op := range prog.Statements {
		if addr >= op.Addr && addr < op.Addr+len(op.Bytes) {
			dbg = Debug{
				Statement: &prog.Statements[n],
				Index:     addr - op.Addr,
			}
			break
		}
	}

	return
}

// Size returns the size of the code section.
func (prog *Program) Size() (size int) {
	for _, op := range prog.Statements {
		size = max(size, op.Addr+len(op.Bytes))
	}
	return
}

// Binary returns the code section bytes.
func (prog *Program) Binary() (code []byte) {
	code = make([]byte, prog.Size())
	for _, op := range prog.Statements {
		copy(code[op.Addr:], op.Bytes)
	}

	return
}

// align rounds value up to a multiple of WORD_SIZE.
func align(value uint64) uint64 {
	return (value + WORD_SIZE - 1) &^ (WORD_SIZE - 1)
}

// Story builds a complete story file for the program.
//
// The code section is followed by the globals table, which forms the static
// data section, and then by the dynamic data section that holds the stack.
// The dynamic data section is not stored in the file.
func (prog *Program) Story(layout Layout) (data []byte, err error) {
	code_start := layout.CodeStart
	if code_start == 0 {
		code_start = story.HEADER_SIZE
	}
	if code_start < story.HEADER_SIZE || code_start%WORD_SIZE != 0 {
		err = ErrLayoutInvalid
		return
	}

	dynamic_length := layout.DynamicLength
	if dynamic_length == 0 {
		dynamic_length = DYNAMIC_LENGTH_DEFAULT
	}

	code := prog.Binary()
	static_start := align(code_start + uint64(len(code)))
	static_length := uint64(GLOBALS_MAX * WORD_SIZE)

	hdr := story.Header{
		Version:       memory.VERSION_SUPPORTED,
		Release:       layout.Release,
		StoryId:       layout.StoryId,
		CodeStart:     code_start,
		CodeLength:    uint64(len(code)),
		StaticStart:   static_start,
		StaticLength:  static_length,
		DynamicStart:  static_start + static_length,
		DynamicLength: dynamic_length,
		GlobalsStart:  static_start,
	}

	header, err := hdr.MarshalBinary()
	if err != nil {
		return
	}

	data = make([]byte, hdr.DynamicStart)
	copy(data, header)
	copy(data[code_start:], code)

	return
}
