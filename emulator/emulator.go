// Package emulator binds the assembler and the machine into one host
// surface, with source-level error locations for both phases.
package emulator

import (
	"fmt"
	"io"
	"iter"
	"maps"

	"github.com/epie-vm/epie/internal"
	"github.com/epie-vm/epie/vm"
)

const (
	MEMORY_SIZE = 64 * 1024 // Default machine memory, image loads at 0.
)

var _emulator_defines = map[string]string{
	"MEMORY_SIZE": fmt.Sprintf("%v", MEMORY_SIZE),
}

// Emulator state. Assembler + machine + loaded image.
type Emulator struct {
	Verbose    bool      // If set, enables verbose logging.
	Output     io.Writer // Machine print destination.
	MemorySize int       // Machine memory size, MEMORY_SIZE when zero.
	StepLimit  int       // Execution budget, 0 = unlimited.

	Assembler vm.Assembler // Assembler for source loads, holds the listing.
	Machine   *vm.VM       // Machine running the loaded image.
	Image     *vm.Image    // Currently loaded image.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		MemorySize: MEMORY_SIZE,
	}

	return
}

// Defines returns an iterator over all of the defines.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		vm.Defines(),
	)
}

func (emu *Emulator) memorySize() int {
	if emu.MemorySize > 0 {
		return emu.MemorySize
	}
	return MEMORY_SIZE
}

func (emu *Emulator) attach(img *vm.Image) (err error) {
	machine, err := vm.NewVM(img, emu.memorySize())
	if err != nil {
		return
	}

	machine.Verbose = emu.Verbose
	machine.Output = emu.Output
	machine.StepLimit = emu.StepLimit

	emu.Image = img
	emu.Machine = machine

	return
}

// LoadSource assembles a program and loads the image into a fresh
// machine. The assembler listing is retained for LineNo.
func (emu *Emulator) LoadSource(input io.Reader) (err error) {
	emu.Assembler.Verbose = emu.Verbose
	for attr, value := range _emulator_defines {
		emu.Assembler.Predefine(attr, value)
	}

	img, err := emu.Assembler.Assemble(input)
	if err != nil {
		return
	}

	return emu.attach(img)
}

// LoadImage loads a serialized image into a fresh machine. No listing
// is available; LineNo reports 0.
func (emu *Emulator) LoadImage(raw []byte) (err error) {
	emu.Assembler.Listing = nil

	img, err := vm.LoadImage(raw)
	if err != nil {
		return
	}

	return emu.attach(img)
}

// LineNo returns the source line of the instruction at the current
// program counter, or 0 when unknown.
func (emu *Emulator) LineNo() int {
	if emu.Machine == nil {
		return 0
	}

	pc := emu.Machine.PC()
	for _, entry := range emu.Assembler.Listing {
		if pc >= entry.Addr && pc < entry.Addr+uint32(entry.Length) {
			return entry.LineNo
		}
	}

	return 0
}

// Step performs a single machine cycle, locating any fault in the
// source text.
func (emu *Emulator) Step() (done bool, err error) {
	if emu.Machine == nil {
		return false, ErrNoProgram
	}

	lineno := emu.LineNo()
	done, err = emu.Machine.Step()
	if err != nil {
		err = &ErrRuntime{LineNo: lineno, Err: err}
	}

	return
}

// Run executes the loaded program to completion. A fault is wrapped
// with the source line it stopped on.
func (emu *Emulator) Run() (state vm.FinalState) {
	if emu.Machine == nil {
		return vm.FinalState{Fault: ErrNoProgram}
	}

	state = emu.Machine.Run()
	if state.Fault != nil {
		state.Fault = &ErrRuntime{LineNo: emu.LineNo(), Err: state.Fault}
	}

	return
}

// Stop requests cooperative cancellation of a running machine.
func (emu *Emulator) Stop() {
	if emu.Machine != nil {
		emu.Machine.Stop()
	}
}
