package emulator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/zm2/cpu"
)

func TestSnapshot(t *testing.T) {
	assert := assert.New(t)

	emu := assemble(t, []string{
		"push 7",
		"store g2 0x1234",
		"quit",
	})
	err := emu.Run()
	assert.NoError(err)

	snap := emu.Snapshot()
	assert.Equal(emu.Pc, snap.Pc)
	assert.Equal(emu.Sp, snap.Sp)
	assert.Equal(emu.Fp, snap.Fp)
	assert.Equal(3, snap.Ticks)
	assert.False(snap.Running)
	assert.Equal("", snap.Error)
	assert.Equal(*emu.Memory.Header(), snap.Header)
	assert.Equal(emu.Memory.Bytes(), snap.Memory)

	data, err := MarshalSnapshot(snap)
	assert.NoError(err)

	again, err := MarshalSnapshot(snap)
	assert.NoError(err)
	assert.Equal(data, again)

	decoded, err := UnmarshalSnapshot(data)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(snap, decoded)
	assert.Equal(*emu.Memory.Header(), decoded.Header)

	restored, err := Restore(decoded)
	assert.NoError(err)
	assert.Equal(emu.Pc, restored.Pc)
	assert.Equal(emu.Sp, restored.Sp)
	assert.Equal(emu.InitialSp(), restored.InitialSp())
	assert.Equal(1, restored.Depth())
	assert.Equal(uint64(0x1234), global(t, restored, 2))
	assert.False(restored.Running())
}

func TestSnapshot_Running(t *testing.T) {
	assert := assert.New(t)

	emu := assemble(t, []string{
		"push 1",
		"push 2",
		"add sp sp g0",
		"quit",
	})

	done, err := emu.Tick()
	assert.False(done)
	assert.NoError(err)

	restored, err := Restore(emu.Snapshot())
	assert.NoError(err)
	assert.True(restored.Running())

	// The copy runs independently.
	err = restored.Run()
	assert.NoError(err)
	assert.Equal(uint64(3), global(t, restored, 0))
	assert.Equal(uint64(0), global(t, emu, 0))
	assert.True(emu.Running())
}

func TestSnapshot_Halted(t *testing.T) {
	assert := assert.New(t)

	emu := assemble(t, []string{"pull g0"})
	err := emu.Run()
	assert.ErrorIs(err, cpu.ErrStackUnderflow)

	snap := emu.Snapshot()
	assert.Equal(err.Error(), snap.Error)

	restored, err := Restore(snap)
	assert.NoError(err)
	assert.False(restored.Running())
	assert.EqualError(restored.Err(), snap.Error)
	assert.Equal(restored.Err(), restored.Run())
}

func TestSnapshot_Invalid(t *testing.T) {
	assert := assert.New(t)

	_, err := UnmarshalSnapshot([]byte{0xff, 0x00})
	assert.ErrorIs(err, ErrSnapshot)

	_, err = Restore(nil)
	assert.ErrorIs(err, ErrSnapshot)

	emu := assemble(t, []string{"quit"})
	snap := emu.Snapshot()
	snap.Header.StoryId = 99
	_, err = Restore(snap)
	assert.ErrorIs(err, ErrSnapshot)

	snap = emu.Snapshot()
	snap.Memory = snap.Memory[:100]
	_, err = Restore(snap)
	assert.ErrorIs(err, ErrSnapshot)
}
