package emulator

import (
	"errors"

	"github.com/ezrec/zm2/cpu"
	"github.com/ezrec/zm2/translate"
)

var f = translate.From

var (
	ErrOperandType   = errors.New(f("operand type unknown"))
	ErrOpcodeUnknown = errors.New(f("opcode unknown"))
	ErrLocalInvalid  = errors.New(f("local variable invalid"))
	ErrGlobalInvalid = errors.New(f("global variable invalid"))
	ErrCallOperand   = errors.New(f("call target is not a packed address"))
	ErrJumpNegative  = errors.New(f("jump target negative"))
	ErrSnapshot      = errors.New(f("snapshot invalid"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Pc      uint64     // Address of the failing instruction.
	Fetched bool       // Set if the opcode word was read.
	Opcode  cpu.Opcode // Opcode of the failing instruction, if Fetched.
	LineNo  int        // Source line, if a program listing is attached.
	Err     error
}

func (err *ErrRuntime) Error() string {
	where := f("pc %#x", err.Pc)
	if err.LineNo != 0 {
		where = f("line %v %v", err.LineNo, where)
	}
	if !err.Fetched {
		return f("%v fetch: %v", where, err.Err)
	}
	return f("%v %v: %v", where, err.Opcode, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrOperand is an undefined operand type byte.
type ErrOperand uint8

func (eo ErrOperand) Error() string {
	return f("operand type %#02x", uint8(eo))
}

func (eo ErrOperand) Is(err error) (ok bool) {
	_, ok = err.(ErrOperand)
	return
}

// ErrVariable names the variable an access failed on.
type ErrVariable cpu.Variable

func (ev ErrVariable) Error() string {
	return f("variable %v", cpu.Variable(ev).String())
}

func (ev ErrVariable) Is(err error) (ok bool) {
	_, ok = err.(ErrVariable)
	return
}
