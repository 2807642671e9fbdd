package cpu

import (
	"fmt"
	"iter"
	"maps"
	"strings"
)

// Opcode is a 64-bit instruction opcode.
type Opcode uint64

const (
	OPCODE_SIZE = 8 // Size of an encoded opcode, in bytes.
)

// 0OP opcodes
const (
	OP_RTRUE  = Opcode(0x0000)
	OP_RFALSE = Opcode(0x0001)
	OP_QUIT   = Opcode(0x0006)
	OP_NOP    = Opcode(0x0007)
)

// 1OP opcodes
const (
	OP_RET  = Opcode(0x010A)
	OP_JUMP = Opcode(0x010B)
	OP_LOAD = Opcode(0x010D)
)

// 2OP opcodes
const (
	OP_ADD = Opcode(0x0203)
	OP_SUB = Opcode(0x0204)
)

// VAROP opcodes
const (
	OP_CALL  = Opcode(0x0300)
	OP_STORE = Opcode(0x0301)
	OP_PUSH  = Opcode(0x0308)
	OP_PULL  = Opcode(0x0309)
)

var opcodeName = map[Opcode]string{
	OP_RTRUE:  "rtrue",
	OP_RFALSE: "rfalse",
	OP_QUIT:   "quit",
	OP_NOP:    "nop",
	OP_RET:    "ret",
	OP_JUMP:   "jump",
	OP_LOAD:   "load",
	OP_ADD:    "add",
	OP_SUB:    "sub",
	OP_CALL:   "call",
	OP_STORE:  "store",
	OP_PUSH:   "push",
	OP_PULL:   "pull",
}

var _cpu_defines = func() map[string]string {
	defines := map[string]string{
		"WORD_SIZE":   fmt.Sprintf("%v", WORD_SIZE),
		"OPCODE_SIZE": fmt.Sprintf("%v", OPCODE_SIZE),
	}
	for op, name := range opcodeName {
		defines[fmt.Sprintf("OP_%v", strings.ToUpper(name))] = fmt.Sprintf("%#x", uint64(op))
	}
	return defines
}()

// Defines for the cpu
func Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Known returns true if the opcode is implemented.
func (op Opcode) Known() (ok bool) {
	_, ok = opcodeName[op]
	return
}

// String returns the mnemonic for the opcode.
func (op Opcode) String() string {
	name, ok := opcodeName[op]
	if !ok {
		return fmt.Sprintf("op_%#x", uint64(op))
	}
	return name
}

// OperandType is the type byte that precedes each operand.
type OperandType int

//go:generate go tool stringer -linecomment -type=OperandType
const (
	OPERAND_LARGE    = OperandType(0x00) // large
	OPERAND_SMALL    = OperandType(0x01) // small
	OPERAND_VARIABLE = OperandType(0x02) // var
	OPERAND_PACKED   = OperandType(0x03) // paddr
)

// Size returns the number of operand bytes that follow the type byte.
func (ot OperandType) Size() int {
	switch ot {
	case OPERAND_LARGE:
		return 8
	case OPERAND_SMALL, OPERAND_VARIABLE:
		return 1
	case OPERAND_PACKED:
		return 4
	}
	return 0
}

// Valid returns true for the four defined operand types.
func (ot OperandType) Valid() bool {
	return ot >= OPERAND_LARGE && ot <= OPERAND_PACKED
}

// VariableKind selects the storage a variable specifier refers to.
type VariableKind int

//go:generate go tool stringer -linecomment -type=VariableKind
const (
	VAR_STACK  = VariableKind(0) // stack
	VAR_LOCAL  = VariableKind(1) // local
	VAR_GLOBAL = VariableKind(2) // global
)

// Variable specifier ranges.
const (
	SPEC_STACK       = 0x00
	SPEC_LOCAL_FIRST = 0x01
	SPEC_LOCAL_LAST  = 0x0F
	SPEC_GLOBAL      = 0x10

	LOCALS_MAX  = SPEC_LOCAL_LAST - SPEC_LOCAL_FIRST + 1 // L0-L14
	GLOBALS_MAX = 0x100 - SPEC_GLOBAL                    // G0-G239
)

// Variable is a decoded variable specifier.
type Variable struct {
	Kind  VariableKind
	Index int // Local or global number; zero for the stack.
}

// DecodeVariable decodes a variable specifier byte.
func DecodeVariable(spec uint8) (v Variable) {
	switch {
	case spec == SPEC_STACK:
		v = Variable{Kind: VAR_STACK}
	case spec <= SPEC_LOCAL_LAST:
		v = Variable{Kind: VAR_LOCAL, Index: int(spec - SPEC_LOCAL_FIRST)}
	default:
		v = Variable{Kind: VAR_GLOBAL, Index: int(spec - SPEC_GLOBAL)}
	}
	return
}

// StackVariable is the evaluation stack.
func StackVariable() Variable {
	return Variable{Kind: VAR_STACK}
}

// LocalVariable is local n of the active frame.
func LocalVariable(n int) Variable {
	return Variable{Kind: VAR_LOCAL, Index: n}
}

// GlobalVariable is global n.
func GlobalVariable(n int) Variable {
	return Variable{Kind: VAR_GLOBAL, Index: n}
}

// Valid returns true if the variable can be encoded as a specifier.
func (v Variable) Valid() bool {
	switch v.Kind {
	case VAR_STACK:
		return v.Index == 0
	case VAR_LOCAL:
		return v.Index >= 0 && v.Index < LOCALS_MAX
	case VAR_GLOBAL:
		return v.Index >= 0 && v.Index < GLOBALS_MAX
	}
	return false
}

// Specifier encodes the variable as a specifier byte.
func (v Variable) Specifier() (spec uint8) {
	switch v.Kind {
	case VAR_LOCAL:
		spec = uint8(SPEC_LOCAL_FIRST + v.Index)
	case VAR_GLOBAL:
		spec = uint8(SPEC_GLOBAL + v.Index)
	default:
		spec = SPEC_STACK
	}
	return
}

// String returns the assembly language name of the variable.
func (v Variable) String() string {
	switch v.Kind {
	case VAR_LOCAL:
		return fmt.Sprintf("l%v", v.Index)
	case VAR_GLOBAL:
		return fmt.Sprintf("g%v", v.Index)
	}
	return "sp"
}
