package emulator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/fxamacker/cbor/v2"

	"github.com/ezrec/zm2/cpu"
	"github.com/ezrec/zm2/memory"
	"github.com/ezrec/zm2/story"
)

// Snapshot is the complete state of a machine, for post-mortem
// inspection by hosts.
type Snapshot struct {
	Pc      uint64       `cbor:"pc"`
	Sp      uint64       `cbor:"sp"`
	Fp      uint64       `cbor:"fp"`
	Ticks   int          `cbor:"ticks"`
	Running bool         `cbor:"running"`
	Error   string       `cbor:"error,omitempty"`
	Header  story.Header `cbor:"header"`
	Memory  []byte       `cbor:"memory"`
}

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("emulator: snapshot encoder: %v", err))
	}
	snapshotEncMode = em
}

// Snapshot captures the machine state. The memory is copied.
func (emu *Emulator) Snapshot() (snap *Snapshot) {
	snap = &Snapshot{
		Pc:      emu.Pc,
		Sp:      emu.Sp,
		Fp:      emu.Fp,
		Ticks:   emu.Ticks,
		Running: emu.running,
		Header:  *emu.Memory.Header(),
		Memory:  slices.Clone(emu.Memory.Bytes()),
	}
	if emu.err != nil {
		snap.Error = emu.err.Error()
	}

	return
}

// Restore creates a machine from a snapshot. A snapshot of a machine
// halted by an error restores as halted, with the error text only.
func Restore(snap *Snapshot) (emu *Emulator, err error) {
	if snap == nil {
		err = ErrSnapshot
		return
	}

	mem, err := memory.NewAddressSpace(slices.Clone(snap.Memory))
	if err != nil {
		err = errors.Join(ErrSnapshot, err)
		return
	}

	if *mem.Header() != snap.Header {
		err = ErrSnapshot
		return
	}

	emu = &Emulator{
		Cpu:     cpu.NewCpu(mem),
		Memory:  mem,
		Ticks:   snap.Ticks,
		running: snap.Running,
	}
	emu.Pc = snap.Pc
	emu.Sp = snap.Sp
	emu.Fp = snap.Fp

	if len(snap.Error) != 0 {
		emu.running = false
		emu.err = errors.New(snap.Error)
	}

	return
}

// MarshalSnapshot serializes a Snapshot to CBOR bytes.
func MarshalSnapshot(snap *Snapshot) ([]byte, error) {
	return snapshotEncMode.Marshal(snap)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return nil, errors.Join(ErrSnapshot, err)
	}
	return &snap, nil
}
