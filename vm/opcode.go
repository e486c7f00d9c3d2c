package vm

import (
	"fmt"
)

// Opcode is the 6-bit base operation stored in the top bits of byte 0.
// The gaps in the numbering leave room in each operation group (data
// transfer, arithmetic, comparison, flow control).
type Opcode int

//go:generate go tool stringer -linecomment -type=Opcode
const (
	HLT   = Opcode(0)  // HLT
	LDB   = Opcode(1)  // LDB
	LDH   = Opcode(2)  // LDH
	LDW   = Opcode(3)  // LDW
	STRB  = Opcode(4)  // STRB
	STRH  = Opcode(5)  // STRH
	STRW  = Opcode(6)  // STRW
	MOV   = Opcode(7)  // MOV
	ADD   = Opcode(16) // ADD
	SUB   = Opcode(17) // SUB
	MUL   = Opcode(18) // MUL
	DIV   = Opcode(19) // DIV
	EQ    = Opcode(32) // EQ
	NEQ   = Opcode(33) // NEQ
	GT    = Opcode(34) // GT
	GTE   = Opcode(35) // GTE
	LT    = Opcode(36) // LT
	LTE   = Opcode(37) // LTE
	JMP   = Opcode(40) // JMP
	JMPE  = Opcode(41) // JMPE
	JMPNE = Opcode(42) // JMPNE
	PRTS  = Opcode(43) // PRTS
	IGL   = Opcode(63) // IGL
)

// AddressMode is the 2-bit addressing mode stored in the low bits of byte 0.
// The I/D/R suffix of a mnemonic selects the mode; operand syntax does not.
type AddressMode int

//go:generate go tool stringer -linecomment -type=AddressMode
const (
	ModeImmediate = AddressMode(0) // I
	ModeDirect    = AddressMode(1) // D
	ModeRegister  = AddressMode(2) // R
)

// Code is one fixed-width instruction word:
//
//	byte 0:    opcode<<2 | mode
//	bytes 1-3: 24-bit operand field, laid out per operand class
//
// Operand classes (fixed here, held constant across encode and execute):
//   - three registers  [r1][r2][r3]
//   - register + value [reg][hi][lo] (big-endian 16-bit value or address)
//   - bare address     [hi][mid][lo] (big-endian 24-bit address)
//   - one register     [reg][0][0]   (register-indirect jumps and PRTS)
type Code uint32

// MakeCodeRegs builds a word in the three-register layout.
func MakeCodeRegs(op Opcode, mode AddressMode, r1, r2, r3 uint8) Code {
	return Code(uint32(op)<<26 | uint32(mode)<<24 |
		uint32(r1)<<16 | uint32(r2)<<8 | uint32(r3))
}

// MakeCodeRegVal builds a word in the register + 16-bit value layout.
func MakeCodeRegVal(op Opcode, mode AddressMode, reg uint8, value uint16) Code {
	return Code(uint32(op)<<26 | uint32(mode)<<24 |
		uint32(reg)<<16 | uint32(value))
}

// MakeCodeAddr builds a word in the bare 24-bit address layout.
func MakeCodeAddr(op Opcode, mode AddressMode, addr uint32) Code {
	return Code(uint32(op)<<26 | uint32(mode)<<24 | addr&0xffffff)
}

// Op returns the 6-bit base operation.
func (c Code) Op() Opcode {
	return Opcode(c >> 26)
}

// Mode returns the 2-bit addressing mode.
func (c Code) Mode() AddressMode {
	return AddressMode((c >> 24) & 0x3)
}

// Regs decodes the three-register layout. The register + value layout
// shares the first slot.
func (c Code) Regs() (r1, r2, r3 uint8) {
	r1 = uint8(c >> 16)
	r2 = uint8(c >> 8)
	r3 = uint8(c)
	return
}

// Value decodes the 16-bit value of the register + value layout.
func (c Code) Value() uint16 {
	return uint16(c)
}

// Addr decodes the bare 24-bit address layout.
func (c Code) Addr() uint32 {
	return uint32(c) & 0xffffff
}

// Bytes returns the word in wire order.
func (c Code) Bytes() [4]byte {
	return [4]byte{byte(c >> 24), byte(c >> 16), byte(c >> 8), byte(c)}
}

// DecodeCode reassembles a word from wire order.
func DecodeCode(b []byte) Code {
	_ = b[3]
	return Code(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

// Legal reports whether the base operation is a defined, executable opcode.
// IGL and every unassigned opcode number are illegal.
func (op Opcode) Legal() bool {
	switch op {
	case HLT, LDB, LDH, LDW, STRB, STRH, STRW, MOV,
		ADD, SUB, MUL, DIV,
		EQ, NEQ, GT, GTE, LT, LTE,
		JMP, JMPE, JMPNE, PRTS:
		return true
	}
	return false
}

// String renders the word as mnemonic plus raw hex.
func (c Code) String() string {
	return fmt.Sprintf("%v.%v %#08x", c.Op(), c.Mode(), uint32(c))
}

// operandClass selects how the 24-bit operand field is packed.
type operandClass int

const (
	classNone      = operandClass(iota) // no operands
	classRegVal                         // [reg][value16]
	classRegReg                         // [reg][reg][0]
	classRegRegReg                      // [reg][reg][reg]
	classAddr                           // [addr24]
	classReg                            // [reg][0][0]
)

// mnemonic binds an assembly mnemonic to its opcode, fixed addressing
// mode, operand layout, and the bit width of its value operand.
type mnemonic struct {
	Op    Opcode
	Mode  AddressMode
	Class operandClass
	Width int // value field width in bits, 0 when the class has no value
}

// mnemonicMap is the full instruction set as written in source text.
// Lookups are done on the lowercased mnemonic.
var mnemonicMap = map[string]mnemonic{
	"hlt": {HLT, ModeImmediate, classNone, 0},

	"ldbi": {LDB, ModeImmediate, classRegVal, 8},
	"ldbd": {LDB, ModeDirect, classRegVal, 16},
	"ldbr": {LDB, ModeRegister, classRegReg, 0},
	"ldhi": {LDH, ModeImmediate, classRegVal, 16},
	"ldhd": {LDH, ModeDirect, classRegVal, 16},
	"ldhr": {LDH, ModeRegister, classRegReg, 0},
	"ldwd": {LDW, ModeDirect, classRegVal, 16},
	"ldwr": {LDW, ModeRegister, classRegReg, 0},

	"strbi": {STRB, ModeImmediate, classRegVal, 16},
	"strbr": {STRB, ModeRegister, classRegReg, 0},
	"strhi": {STRH, ModeImmediate, classRegVal, 16},
	"strhr": {STRH, ModeRegister, classRegReg, 0},
	"strwi": {STRW, ModeImmediate, classRegVal, 16},
	"strwr": {STRW, ModeRegister, classRegReg, 0},

	"mov": {MOV, ModeRegister, classRegReg, 0},

	"addi": {ADD, ModeImmediate, classRegVal, 16},
	"addr": {ADD, ModeRegister, classRegRegReg, 0},
	"subi": {SUB, ModeImmediate, classRegVal, 16},
	"subr": {SUB, ModeRegister, classRegRegReg, 0},
	"muli": {MUL, ModeImmediate, classRegVal, 16},
	"mulr": {MUL, ModeRegister, classRegRegReg, 0},
	"divi": {DIV, ModeImmediate, classRegVal, 16},
	"divr": {DIV, ModeRegister, classRegRegReg, 0},

	"eqi":  {EQ, ModeImmediate, classRegVal, 16},
	"eqr":  {EQ, ModeRegister, classRegReg, 0},
	"neqi": {NEQ, ModeImmediate, classRegVal, 16},
	"neqr": {NEQ, ModeRegister, classRegReg, 0},
	"gti":  {GT, ModeImmediate, classRegVal, 16},
	"gtr":  {GT, ModeRegister, classRegReg, 0},
	"gtei": {GTE, ModeImmediate, classRegVal, 16},
	"gter": {GTE, ModeRegister, classRegReg, 0},
	"lti":  {LT, ModeImmediate, classRegVal, 16},
	"ltr":  {LT, ModeRegister, classRegReg, 0},
	"ltei": {LTE, ModeImmediate, classRegVal, 16},
	"lter": {LTE, ModeRegister, classRegReg, 0},

	"jmpi":   {JMP, ModeImmediate, classAddr, 24},
	"jmpd":   {JMP, ModeDirect, classAddr, 24},
	"jmpr":   {JMP, ModeRegister, classReg, 0},
	"jmpei":  {JMPE, ModeImmediate, classAddr, 24},
	"jmped":  {JMPE, ModeDirect, classAddr, 24},
	"jmper":  {JMPE, ModeRegister, classReg, 0},
	"jmpnei": {JMPNE, ModeImmediate, classAddr, 24},
	"jmpned": {JMPNE, ModeDirect, classAddr, 24},
	"jmpner": {JMPNE, ModeRegister, classReg, 0},

	"prtsd": {PRTS, ModeDirect, classAddr, 24},
	"prtsr": {PRTS, ModeRegister, classReg, 0},
}
