package vm

import (
	"encoding/binary"
	"io"
	"log"
	"sync/atomic"
)

const (
	RegisterCount     = 32        // General purpose registers $0..$31.
	DefaultMemorySize = 64 * 1024 // Memory size when the host passes 0.
)

// FinalState is the outcome of a run: either Halted (clean HLT) or
// faulted, with the machine state at the moment execution stopped.
// Rendering this state is the host's job, never the VM's.
type FinalState struct {
	Halted    bool
	Fault     error // nil when Halted
	Registers [RegisterCount]int32
	Equality  bool
	Remainder uint32
	Steps     int
	Memory    []byte
}

// VM executes one loaded program image. Registers and memory are owned
// exclusively by the instance; independent VMs need no coordination.
type VM struct {
	Verbose   bool
	Output    io.Writer // PRTS destination, discarded when nil.
	StepLimit int       // Fetch-decode budget, 0 = unlimited.

	Registers [RegisterCount]int32
	Equality  bool
	Remainder uint32
	Memory    []byte

	pc    uint32
	steps int
	stop  atomic.Bool
}

// NewVM copies an image into a fresh zero-initialized memory of the
// given size and parks the program counter at the image entry address.
func NewVM(img *Image, memorySize int) (m *VM, err error) {
	if memorySize <= 0 {
		memorySize = DefaultMemorySize
	}

	raw := img.Bytes()
	if len(raw) > memorySize {
		return nil, ErrImageTooLarge
	}

	m = &VM{
		Memory: make([]byte, memorySize),
		pc:     img.Entry(),
	}
	copy(m.Memory, raw)

	return
}

// PC returns the current program counter.
func (m *VM) PC() uint32 {
	return m.pc
}

// Steps returns the executed fetch-decode cycles since construction.
func (m *VM) Steps() int {
	return m.steps
}

// Stop requests cooperative cancellation. Safe from other goroutines;
// the run loop checks once per fetch-decode cycle.
func (m *VM) Stop() {
	m.stop.Store(true)
}

func (m *VM) reg(index uint8) (value int32, err error) {
	if int(index) >= RegisterCount {
		return 0, ErrOutOfBounds
	}
	return m.Registers[index], nil
}

func (m *VM) setReg(index uint8, value int32) (err error) {
	if int(index) >= RegisterCount {
		return ErrOutOfBounds
	}
	m.Registers[index] = value
	return
}

func (m *VM) checkSpan(addr uint32, width int) error {
	if uint64(addr)+uint64(width) > uint64(len(m.Memory)) {
		return ErrOutOfBounds
	}
	return nil
}

// loadMemory reads a byte/half/word at addr. Halves and words
// sign-extend, bytes zero-extend.
func (m *VM) loadMemory(addr uint32, width int) (value int32, err error) {
	if err = m.checkSpan(addr, width); err != nil {
		return
	}
	switch width {
	case 1:
		value = int32(m.Memory[addr])
	case 2:
		value = int32(int16(binary.BigEndian.Uint16(m.Memory[addr:])))
	case 4:
		value = int32(binary.BigEndian.Uint32(m.Memory[addr:]))
	}
	return
}

func (m *VM) storeMemory(addr uint32, width int, value int32) (err error) {
	if err = m.checkSpan(addr, width); err != nil {
		return
	}
	switch width {
	case 1:
		m.Memory[addr] = byte(value)
	case 2:
		binary.BigEndian.PutUint16(m.Memory[addr:], uint16(value))
	case 4:
		binary.BigEndian.PutUint32(m.Memory[addr:], uint32(value))
	}
	return
}

func transferWidth(op Opcode) int {
	switch op {
	case LDB, STRB:
		return 1
	case LDH, STRH:
		return 2
	}
	return 4
}

// load handles LD{B,H,W}{I,D,R}. Immediate supplies the literal
// directly, Direct reads memory at the literal address, Register reads
// memory at the address held in the second register.
func (m *VM) load(code Code) (err error) {
	dst, ptr, _ := code.Regs()
	width := transferWidth(code.Op())

	switch code.Mode() {
	case ModeImmediate:
		value := int32(code.Value())
		if width == 1 {
			value &= 0xff
		}
		return m.setReg(dst, value)

	case ModeDirect:
		value, lerr := m.loadMemory(uint32(code.Value()), width)
		if lerr != nil {
			return lerr
		}
		return m.setReg(dst, value)

	case ModeRegister:
		addr, rerr := m.reg(ptr)
		if rerr != nil {
			return rerr
		}
		value, lerr := m.loadMemory(uint32(addr), width)
		if lerr != nil {
			return lerr
		}
		return m.setReg(dst, value)
	}

	return ErrIllegalInstruction(code)
}

// store handles STR{B,H,W}{I,R}: the first register's content goes to
// memory, at a literal address (I) or the address held in the second
// register (R).
func (m *VM) store(code Code) (err error) {
	src, ptr, _ := code.Regs()
	width := transferWidth(code.Op())

	value, err := m.reg(src)
	if err != nil {
		return
	}

	switch code.Mode() {
	case ModeImmediate:
		return m.storeMemory(uint32(code.Value()), width, value)

	case ModeRegister:
		addr, rerr := m.reg(ptr)
		if rerr != nil {
			return rerr
		}
		return m.storeMemory(uint32(addr), width, value)
	}

	return ErrIllegalInstruction(code)
}

// arith handles ADD/SUB/MUL/DIV. Register form writes a third register
// from two sources; immediate form updates the destination in place
// with the sign-extended literal. A zero divisor faults.
func (m *VM) arith(code Code) (err error) {
	var dst uint8
	var a, b int32

	switch code.Mode() {
	case ModeImmediate:
		reg, _, _ := code.Regs()
		dst = reg
		if a, err = m.reg(reg); err != nil {
			return
		}
		b = int32(int16(code.Value()))

	case ModeRegister:
		r1, r2, r3 := code.Regs()
		dst = r1
		if a, err = m.reg(r2); err != nil {
			return
		}
		if b, err = m.reg(r3); err != nil {
			return
		}

	default:
		return ErrIllegalInstruction(code)
	}

	var result int32
	switch code.Op() {
	case ADD:
		result = a + b
	case SUB:
		result = a - b
	case MUL:
		result = a * b
	case DIV:
		if b == 0 {
			return ErrDivisionByZero
		}
		result = a / b
		m.Remainder = uint32(a % b)
	}

	return m.setReg(dst, result)
}

// compare handles EQ/NEQ/GT/GTE/LT/LTE. Every comparison overwrites the
// single equality flag; the previous value is discarded.
func (m *VM) compare(code Code) (err error) {
	var a, b int32

	switch code.Mode() {
	case ModeImmediate:
		reg, _, _ := code.Regs()
		if a, err = m.reg(reg); err != nil {
			return
		}
		b = int32(int16(code.Value()))

	case ModeRegister:
		r1, r2, _ := code.Regs()
		if a, err = m.reg(r1); err != nil {
			return
		}
		if b, err = m.reg(r2); err != nil {
			return
		}

	default:
		return ErrIllegalInstruction(code)
	}

	switch code.Op() {
	case EQ:
		m.Equality = a == b
	case NEQ:
		m.Equality = a != b
	case GT:
		m.Equality = a > b
	case GTE:
		m.Equality = a >= b
	case LT:
		m.Equality = a < b
	case LTE:
		m.Equality = a <= b
	}

	return
}

// jump handles JMP/JMPE/JMPNE. A taken jump replaces the next program
// counter outright; the default increment never also applies.
func (m *VM) jump(code Code, next *uint32) (err error) {
	switch code.Op() {
	case JMPE:
		if !m.Equality {
			return
		}
	case JMPNE:
		if m.Equality {
			return
		}
	}

	var target uint32
	switch code.Mode() {
	case ModeImmediate:
		target = code.Addr()

	case ModeDirect:
		word, lerr := m.loadMemory(code.Addr(), 4)
		if lerr != nil {
			return lerr
		}
		target = uint32(word)

	case ModeRegister:
		reg, _, _ := code.Regs()
		value, rerr := m.reg(reg)
		if rerr != nil {
			return rerr
		}
		target = uint32(value)

	default:
		return ErrIllegalInstruction(code)
	}

	if err = m.checkSpan(target, 4); err != nil {
		return
	}

	*next = target
	return
}

// prts scans memory forward from the operand address, emitting bytes to
// the output until a zero terminator, then a line break. Scanning past
// the end of memory faults.
func (m *VM) prts(code Code) (err error) {
	var start uint32
	switch code.Mode() {
	case ModeDirect:
		start = code.Addr()

	case ModeRegister:
		reg, _, _ := code.Regs()
		value, rerr := m.reg(reg)
		if rerr != nil {
			return rerr
		}
		start = uint32(value)

	default:
		return ErrIllegalInstruction(code)
	}

	if err = m.checkSpan(start, 1); err != nil {
		return
	}

	end := start
	for m.Memory[end] != 0 {
		end++
		if int(end) == len(m.Memory) {
			return ErrUnterminatedScan
		}
	}

	out := m.Output
	if out == nil {
		out = io.Discard
	}
	if _, err = out.Write(m.Memory[start:end]); err != nil {
		return
	}
	_, err = out.Write([]byte{'\n'})
	return
}

// Step runs one fetch-decode-execute cycle. done reports a clean HLT;
// a non-nil error is a fault and the machine must not be stepped again.
func (m *VM) Step() (done bool, err error) {
	if err = m.checkSpan(m.pc, 4); err != nil {
		return
	}
	code := DecodeCode(m.Memory[m.pc : m.pc+4])
	m.steps++

	if m.Verbose {
		log.Printf("%04x: %v", m.pc, code)
	}

	next := m.pc + 4

	switch op := code.Op(); op {
	case HLT:
		m.pc = next
		return true, nil

	case LDB, LDH, LDW:
		err = m.load(code)
	case STRB, STRH, STRW:
		err = m.store(code)

	case MOV:
		dst, src, _ := code.Regs()
		var value int32
		if value, err = m.reg(src); err == nil {
			err = m.setReg(dst, value)
		}

	case ADD, SUB, MUL, DIV:
		err = m.arith(code)

	case EQ, NEQ, GT, GTE, LT, LTE:
		err = m.compare(code)

	case JMP, JMPE, JMPNE:
		err = m.jump(code, &next)

	case PRTS:
		err = m.prts(code)

	default:
		err = ErrIllegalInstruction(code)
	}

	if err != nil {
		return false, err
	}

	m.pc = next
	return false, nil
}

// Run executes until HLT, a fault, cancellation, or an exhausted step
// budget. The stop flag and budget are checked once per cycle so a host
// can always terminate a runaway program.
func (m *VM) Run() FinalState {
	var fault error
	var halted bool

	for {
		if m.stop.Load() {
			fault = ErrCanceled
			break
		}
		if m.StepLimit > 0 && m.steps >= m.StepLimit {
			fault = ErrStepLimit
			break
		}

		done, err := m.Step()
		if err != nil {
			fault = err
			break
		}
		if done {
			halted = true
			break
		}
	}

	return FinalState{
		Halted:    halted,
		Fault:     fault,
		Registers: m.Registers,
		Equality:  m.Equality,
		Remainder: m.Remainder,
		Steps:     m.steps,
		Memory:    m.Memory,
	}
}

// Run loads an image into a fresh VM and executes it to completion.
func Run(img *Image, memorySize int) FinalState {
	m, err := NewVM(img, memorySize)
	if err != nil {
		return FinalState{Fault: err}
	}
	return m.Run()
}
