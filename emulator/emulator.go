// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/zm2/cpu"
	"github.com/ezrec/zm2/internal"
	"github.com/ezrec/zm2/memory"
	"github.com/ezrec/zm2/story"
)

const (
	RETURN_TRUE  = 1 // Value stored by rtrue.
	RETURN_FALSE = 0 // Value stored by rfalse.
	FRAME_SLOTS  = 5 // Words pushed by call before the locals.
)

var _emulator_defines = map[string]string{
	"RETURN_TRUE":  "1",
	"RETURN_FALSE": "0",
	"FRAME_SLOTS":  "5",
}

// Emulator state. CPU + address space.
type Emulator struct {
	Verbose       bool                 // If set, enables verbose logging.
	StrictGlobals bool                 // If set, globals may not alias the header or the live stack.
	*cpu.Cpu                           // Reference to the CPU registers.
	Memory        *memory.AddressSpace // Reference to the machine memory.
	Program       *cpu.Program         // Program listing, if the story was assembled.
	Ticks         int                  // Instructions executed since load.

	running bool
	err     error
}

// Load creates a running machine from the bytes of a story file.
func Load(data []byte) (emu *Emulator, err error) {
	hdr, err := story.ParseHeader(data)
	if err != nil {
		return
	}

	err = memory.Validate(&hdr)
	if err != nil {
		return
	}

	image, err := story.Image(&hdr, data)
	if err != nil {
		return
	}

	mem, err := memory.NewAddressSpace(image)
	if err != nil {
		return
	}

	emu = &Emulator{
		Cpu:     cpu.NewCpu(mem),
		Memory:  mem,
		running: true,
	}

	return
}

// LoadProgram assembles a story from prog and loads it, keeping the
// listing for line numbers.
func LoadProgram(prog *cpu.Program, layout cpu.Layout) (emu *Emulator, err error) {
	data, err := prog.Story(layout)
	if err != nil {
		return
	}

	emu, err = Load(data)
	if err != nil {
		return
	}

	emu.Program = prog
	return
}

// Defines returns an iterator over all of the machine defines.
func Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		story.Defines(),
		memory.Defines(),
		cpu.Defines(),
	)
}

// Running returns true until the machine halts.
func (emu *Emulator) Running() bool {
	return emu.running
}

// Err returns the error that halted the machine, if any.
func (emu *Emulator) Err() error {
	return emu.err
}

// LineNo returns the source line number of the instruction at pc.
func (emu *Emulator) LineNo(pc uint64) int {
	if emu.Program == nil {
		return 0
	}

	start := emu.Memory.Header().CodeStart
	if pc < start {
		return 0
	}

	dbg := emu.Program.Debug(int(pc - start))
	if dbg.Statement == nil {
		return 0
	}

	return dbg.LineNo
}

// Run executes until the machine halts, returning the halt error.
// QUIT halts with no error.
func (emu *Emulator) Run() (err error) {
	for done := false; !done; {
		done, err = emu.Tick()
	}

	return
}

// Tick performs a single instruction of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	if !emu.running {
		done = true
		err = emu.err
		return
	}

	pc := emu.Pc
	var op cpu.Opcode
	fetched := false

	defer func() {
		if err != nil {
			err = &ErrRuntime{Pc: pc, Fetched: fetched, Opcode: op, LineNo: emu.LineNo(pc), Err: err}
			emu.err = err
			emu.running = false
		}
		done = !emu.running
	}()

	word, err := emu.fetchWord()
	if err != nil {
		return
	}
	op = cpu.Opcode(word)
	fetched = true

	if emu.Verbose {
		log.Printf("%08x: %v", pc, op)
	}

	emu.Ticks++
	err = emu.Execute(op)

	return
}

// Execute runs a single opcode, with PC just past the opcode.
func (emu *Emulator) Execute(op cpu.Opcode) (err error) {
	switch op {
	case cpu.OP_NOP:
	case cpu.OP_QUIT:
		emu.running = false
	case cpu.OP_PUSH:
		var value uint64
		value, err = emu.operand()
		if err != nil {
			return
		}
		err = emu.Push(value, emu.Memory)
	case cpu.OP_PULL:
		var value uint64
		value, err = emu.Pop(emu.Memory)
		if err != nil {
			return
		}
		var v cpu.Variable
		v, err = emu.variable()
		if err != nil {
			return
		}
		// Pulling into the stack discards the value.
		if v.Kind != cpu.VAR_STACK {
			err = emu.setVariable(v, value)
		}
	case cpu.OP_STORE:
		var v cpu.Variable
		v, err = emu.variable()
		if err != nil {
			return
		}
		var value uint64
		value, err = emu.operand()
		if err != nil {
			return
		}
		err = emu.setVariable(v, value)
	case cpu.OP_LOAD:
		var src, dst cpu.Variable
		src, err = emu.variable()
		if err != nil {
			return
		}
		var value uint64
		value, err = emu.getVariable(src)
		if err != nil {
			return
		}
		dst, err = emu.variable()
		if err != nil {
			return
		}
		err = emu.setVariable(dst, value)
	case cpu.OP_ADD, cpu.OP_SUB:
		var a, b uint64
		a, err = emu.operand()
		if err != nil {
			return
		}
		b, err = emu.operand()
		if err != nil {
			return
		}
		var v cpu.Variable
		v, err = emu.variable()
		if err != nil {
			return
		}
		if op == cpu.OP_ADD {
			err = emu.setVariable(v, a+b)
		} else {
			err = emu.setVariable(v, a-b)
		}
	case cpu.OP_JUMP:
		var offset uint16
		offset, err = emu.fetchU16()
		if err != nil {
			return
		}
		target := int64(emu.Pc) + int64(int16(offset))
		if target < 0 {
			err = ErrJumpNegative
			return
		}
		emu.Pc = uint64(target)
	case cpu.OP_CALL:
		err = emu.call()
	case cpu.OP_RET:
		var value uint64
		value, err = emu.operand()
		if err != nil {
			return
		}
		err = emu.ret(value)
	case cpu.OP_RTRUE:
		err = emu.ret(RETURN_TRUE)
	case cpu.OP_RFALSE:
		err = emu.ret(RETURN_FALSE)
	default:
		emu.running = false
		err = ErrOpcodeUnknown
	}

	return
}

// call builds a new frame and enters the routine.
func (emu *Emulator) call() (err error) {
	kind, err := emu.fetchByte()
	if err != nil {
		return
	}
	if cpu.OperandType(kind) != cpu.OPERAND_PACKED {
		err = ErrCallOperand
		return
	}

	packed, err := emu.fetchU32()
	if err != nil {
		return
	}
	target := emu.Memory.Header().CodeStart + uint64(packed)

	dest, err := emu.fetchByte()
	if err != nil {
		return
	}

	return_pc := (emu.Pc + cpu.WORD_SIZE - 1) &^ (cpu.WORD_SIZE - 1)

	// Argument passing does not exist, so the supplied count is zero.
	for _, value := range []uint64{return_pc, emu.Fp, uint64(dest), 0} {
		err = emu.Push(value, emu.Memory)
		if err != nil {
			return
		}
	}

	locals, err := emu.Memory.ReadU8(target)
	if err != nil {
		return
	}

	err = emu.Push(uint64(locals), emu.Memory)
	if err != nil {
		return
	}
	emu.Fp = emu.Sp

	for range locals {
		err = emu.Push(0, emu.Memory)
		if err != nil {
			return
		}
	}

	emu.Pc = target + 1

	return
}

// ret tears down the active frame and stores value in the caller.
func (emu *Emulator) ret(value uint64) (err error) {
	emu.Sp = emu.Fp

	var frame [FRAME_SLOTS]uint64
	for n := range frame {
		frame[n], err = emu.Pop(emu.Memory)
		if err != nil {
			return
		}
	}

	// frame[0] is the locals count, frame[1] the unused argument count.
	dest := uint8(frame[2])
	emu.Fp = frame[3]
	emu.Pc = frame[4]

	err = emu.setVariable(cpu.DecodeVariable(dest), value)

	return
}

// operand fetches a type byte and its operand, and returns the value.
func (emu *Emulator) operand() (value uint64, err error) {
	kind, err := emu.fetchByte()
	if err != nil {
		return
	}

	switch cpu.OperandType(kind) {
	case cpu.OPERAND_LARGE:
		value, err = emu.fetchWord()
	case cpu.OPERAND_SMALL:
		var small uint8
		small, err = emu.fetchByte()
		value = uint64(small)
	case cpu.OPERAND_VARIABLE:
		var v cpu.Variable
		v, err = emu.variable()
		if err != nil {
			return
		}
		value, err = emu.getVariable(v)
	case cpu.OPERAND_PACKED:
		var packed uint32
		packed, err = emu.fetchU32()
		value = uint64(packed)
	default:
		err = errors.Join(ErrOperandType, ErrOperand(kind))
	}

	return
}

// variable fetches a variable specifier.
func (emu *Emulator) variable() (v cpu.Variable, err error) {
	spec, err := emu.fetchByte()
	if err != nil {
		return
	}

	v = cpu.DecodeVariable(spec)
	return
}

// localAddress returns the address of local index in the active frame.
func (emu *Emulator) localAddress(index int) (addr uint64, err error) {
	count, err := emu.Memory.ReadWord(emu.Fp)
	if err != nil {
		return
	}

	if index >= int(uint8(count)) {
		err = errors.Join(ErrLocalInvalid, ErrVariable(cpu.LocalVariable(index)))
		return
	}

	addr = emu.Fp + uint64(cpu.WORD_SIZE*(1+index))
	return
}

// globalAddress returns the address of global index.
func (emu *Emulator) globalAddress(index int) (addr uint64, err error) {
	addr = emu.Memory.Header().GlobalsStart + uint64(cpu.WORD_SIZE*index)

	if emu.StrictGlobals {
		end := addr + cpu.WORD_SIZE
		if addr < story.HEADER_SIZE || end < addr || (addr < emu.InitialSp() && end > emu.Sp) {
			err = errors.Join(ErrGlobalInvalid, ErrVariable(cpu.GlobalVariable(index)))
			return
		}
	}

	return
}

// getVariable reads a variable. Reading the stack pops it.
func (emu *Emulator) getVariable(v cpu.Variable) (value uint64, err error) {
	var addr uint64

	switch v.Kind {
	case cpu.VAR_STACK:
		value, err = emu.Pop(emu.Memory)
		return
	case cpu.VAR_LOCAL:
		addr, err = emu.localAddress(v.Index)
	case cpu.VAR_GLOBAL:
		addr, err = emu.globalAddress(v.Index)
	}
	if err != nil {
		return
	}

	value, err = emu.Memory.ReadWord(addr)
	return
}

// setVariable writes a variable. Writing the stack pushes it.
func (emu *Emulator) setVariable(v cpu.Variable, value uint64) (err error) {
	var addr uint64

	switch v.Kind {
	case cpu.VAR_STACK:
		err = emu.Push(value, emu.Memory)
		return
	case cpu.VAR_LOCAL:
		addr, err = emu.localAddress(v.Index)
	case cpu.VAR_GLOBAL:
		addr, err = emu.globalAddress(v.Index)
	}
	if err != nil {
		return
	}

	err = emu.Memory.WriteWord(addr, value)
	return
}

func (emu *Emulator) fetchByte() (value uint8, err error) {
	value, err = emu.Memory.ReadU8(emu.Pc)
	if err != nil {
		return
	}
	emu.Pc += 1
	return
}

func (emu *Emulator) fetchU16() (value uint16, err error) {
	value, err = emu.Memory.ReadU16(emu.Pc)
	if err != nil {
		return
	}
	emu.Pc += 2
	return
}

func (emu *Emulator) fetchU32() (value uint32, err error) {
	value, err = emu.Memory.ReadU32(emu.Pc)
	if err != nil {
		return
	}
	emu.Pc += 4
	return
}

func (emu *Emulator) fetchWord() (value uint64, err error) {
	value, err = emu.Memory.ReadWord(emu.Pc)
	if err != nil {
		return
	}
	emu.Pc += cpu.WORD_SIZE
	return
}
