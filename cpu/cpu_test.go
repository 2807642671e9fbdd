package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/zm2/memory"
	"github.com/ezrec/zm2/story"
)

// newTestMemory creates an address space with a dynamic region of
// dynamic_length bytes at 1032.
func newTestMemory(t *testing.T, dynamic_length uint64) *memory.AddressSpace {
	hdr := story.Header{
		Version:       memory.VERSION_SUPPORTED,
		CodeStart:     1024,
		CodeLength:    8,
		DynamicStart:  1032,
		DynamicLength: dynamic_length,
	}
	data, err := hdr.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	data = append(data, make([]byte, 8+dynamic_length)...)

	mem, err := memory.NewAddressSpace(data)
	if err != nil {
		t.Fatal(err)
	}
	return mem
}

func TestNewCpu(t *testing.T) {
	assert := assert.New(t)

	mem := newTestMemory(t, 256)
	cpu := NewCpu(mem)

	assert.Equal(uint64(1024), cpu.Pc)
	assert.Equal(uint64(1032+256), cpu.Sp)
	assert.Equal(cpu.Sp, cpu.Fp)
	assert.Equal(cpu.Sp, cpu.InitialSp())
	assert.Equal(0, cpu.Depth())
}

func TestCpuPushPop(t *testing.T) {
	assert := assert.New(t)

	mem := newTestMemory(t, 256)
	cpu := NewCpu(mem)
	sp := cpu.Sp

	values := []uint64{1, 0x100, 0xFFFFFFFFFFFFFFFF, 0, 42}
	for n, value := range values {
		err := cpu.Push(value, mem)
		assert.NoError(err)
		assert.Equal(sp-uint64(8*(n+1)), cpu.Sp)
	}
	assert.Equal(len(values), cpu.Depth())

	word, err := mem.ReadWord(cpu.Sp)
	assert.NoError(err)
	assert.Equal(uint64(42), word)

	for n := len(values) - 1; n >= 0; n-- {
		value, err := cpu.Pop(mem)
		assert.NoError(err)
		assert.Equal(values[n], value)
	}
	assert.Equal(sp, cpu.Sp)
	assert.Equal(0, cpu.Depth())
}

func TestCpuOverflow(t *testing.T) {
	assert := assert.New(t)

	mem := newTestMemory(t, 32)
	cpu := NewCpu(mem)

	for n := range 4 {
		assert.NoError(cpu.Push(uint64(n), mem))
	}
	assert.Equal(uint64(1032), cpu.Sp)

	err := cpu.Push(99, mem)
	assert.ErrorIs(err, ErrStackOverflow)
	assert.Equal(uint64(1032), cpu.Sp)

	value, err := cpu.Pop(mem)
	assert.NoError(err)
	assert.Equal(uint64(3), value)
}

func TestCpuOverflow_LowSp(t *testing.T) {
	assert := assert.New(t)

	mem := newTestMemory(t, 32)
	cpu := NewCpu(mem)
	cpu.Sp = 4

	err := cpu.Push(1, mem)
	assert.ErrorIs(err, ErrStackOverflow)
	assert.Equal(uint64(4), cpu.Sp)
}

func TestCpuUnderflow(t *testing.T) {
	assert := assert.New(t)

	mem := newTestMemory(t, 32)
	cpu := NewCpu(mem)
	sp := cpu.Sp

	_, err := cpu.Pop(mem)
	assert.ErrorIs(err, ErrStackUnderflow)
	assert.Equal(sp, cpu.Sp)
}

func TestCpuString(t *testing.T) {
	assert := assert.New(t)

	mem := newTestMemory(t, 32)
	cpu := NewCpu(mem)

	text := cpu.String()
	assert.Contains(text, "pc: 00000000_00000400")
	assert.Contains(text, "depth: 0")
}
