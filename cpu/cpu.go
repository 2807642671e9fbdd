package cpu

import (
	"fmt"

	"github.com/ezrec/zm2/story"
)

const (
	WORD_SIZE = 8 // Size of a stack slot, in bytes.
)

// Memory is the part of the address space the CPU needs.
type Memory interface {
	Header() *story.Header
	ReadWord(address uint64) (value uint64, err error)
	WriteWord(address uint64, value uint64) (err error)
}

// Cpu is the register state of a ZM2 machine.
type Cpu struct {
	Pc uint64 // Address of the next instruction.
	Sp uint64 // Address of the top of stack.
	Fp uint64 // Address of the active frame's locals-count slot.

	initialSp uint64 // Address of the empty stack.
}

// NewCpu creates a CPU ready to run the story in mem.
func NewCpu(mem Memory) (cpu *Cpu) {
	hdr := mem.Header()
	sp := hdr.InitialSp()

	cpu = &Cpu{
		Pc:        hdr.CodeStart,
		Sp:        sp,
		Fp:        sp,
		initialSp: sp,
	}

	return
}

// InitialSp returns the address of the empty stack.
func (cpu *Cpu) InitialSp() uint64 {
	return cpu.initialSp
}

// Depth returns the number of words on the stack.
func (cpu *Cpu) Depth() int {
	if cpu.Sp >= cpu.initialSp {
		return 0
	}
	return int((cpu.initialSp - cpu.Sp) / WORD_SIZE)
}

// Push a word onto the stack. On failure SP is unchanged.
func (cpu *Cpu) Push(value uint64, mem Memory) (err error) {
	floor := mem.Header().DynamicStart
	if cpu.Sp < WORD_SIZE || cpu.Sp-WORD_SIZE < floor {
		err = ErrStackOverflow
		return
	}

	cpu.Sp -= WORD_SIZE
	err = mem.WriteWord(cpu.Sp, value)
	if err != nil {
		cpu.Sp += WORD_SIZE
	}

	return
}

// Pop a word from the stack. On failure SP is unchanged.
func (cpu *Cpu) Pop(mem Memory) (value uint64, err error) {
	if cpu.Sp >= cpu.initialSp {
		err = ErrStackUnderflow
		return
	}

	value, err = mem.ReadWord(cpu.Sp)
	if err != nil {
		return
	}

	cpu.Sp += WORD_SIZE
	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := [](struct {
		name  string
		value uint64
	}){
		{"pc", cpu.Pc},
		{"sp", cpu.Sp},
		{"fp", cpu.Fp},
	}
	for _, reg := range regs {
		text += fmt.Sprintf("% 5s: %08X_%08X\n", reg.name, reg.value>>32, reg.value&0xffffffff)
	}
	text += fmt.Sprintf("% 5s: %v\n", "depth", cpu.Depth())

	return
}
