package vm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates, available to source text and $( ... )
// expressions.
var sysEquate = map[string]string{
	"LINENO":         "0",
	"HEADER_LENGTH":  fmt.Sprintf("%#v", HeaderLength),
	"REGISTER_COUNT": fmt.Sprintf("%#v", RegisterCount),
}

// Defines returns the assembler's predefined equates.
func Defines() iter.Seq2[string, string] {
	return maps.All(sysEquate)
}

// Assembler is the two-pass assembler: Parse produces the statement
// list, Resolve computes the symbol table, Encode emits the image.
// A zero Assembler is ready to use.
type Assembler struct {
	Verbose bool   // If set, verbosely logs the assembler actions.
	Base    uint32 // Address of the first emitted byte; HeaderLength when zero.

	Equate  map[string]string // Map of equates, reset per Parse.
	Listing []ListEntry       // Statement address map from the last Encode.

	predefine map[string]string
	section   Section
}

// Predefine defines a new equate or redefines an existing equate before
// parsing begins.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

func (asm *Assembler) base() uint32 {
	if asm.Base != 0 {
		return asm.Base
	}
	return HeaderLength
}

// parenEval does compile-time $( ... ) evaluations. All numeric equates
// are bound as starlark ints.
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v64, perr := strconv.ParseInt(str, 0, 33)
		if perr != nil {
			// Ignore non-integer equates.
			continue
		}
		pred[key] = starlark.MakeInt(int(v64))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// Parse lexes an input stream into a section-tagged statement list.
func (asm *Assembler) Parse(input io.Reader) (stmts []Statement, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		var located ErrSyntax
		if err != nil && !errors.As(err, &located) {
			err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.section = SectionNone
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		line = scanner.Text()
		lineno++

		asm.Equate["LINENO"] = strconv.Itoa(lineno)

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, line)
		}

		var parsed []Statement
		parsed, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}
		stmts = append(stmts, parsed...)
	}

	err = scanner.Err()

	return
}

// fieldValue resolves a value-or-label operand into an unsigned field of
// the given bit width. Literals may be negative (two's complement);
// label addresses may not exceed the field.
func fieldValue(arg Operand, symbols *SymbolTable, width int) (value uint32, err error) {
	limit := int64(1)<<width - 1

	switch arg.Kind {
	case OperandLabel:
		sym, ok := symbols.Lookup(arg.Label)
		if !ok {
			return 0, ErrUndefinedLabel(arg.Label)
		}
		if int64(sym.Address) > limit {
			return 0, ErrOperandRange
		}
		return sym.Address, nil

	case OperandValue:
		v := int64(arg.Value)
		if v < -(int64(1)<<(width-1)) || v > limit {
			return 0, ErrOperandRange
		}
		return uint32(v) & uint32(limit), nil
	}

	return 0, ErrBadOperand
}

// registerField checks a register operand against the register file.
func registerField(arg Operand) (reg uint8, err error) {
	if arg.Kind != OperandRegister {
		return 0, ErrBadOperand
	}
	if int(arg.Reg) >= RegisterCount {
		return 0, ErrBadRegister
	}
	return arg.Reg, nil
}

// encodeInstruction packs one instruction statement into its 4-byte
// word, substituting resolved label addresses.
func encodeInstruction(stmt *Statement, symbols *SymbolTable) (code Code, err error) {
	mn := stmt.mn

	switch mn.Class {
	case classNone:
		if len(stmt.Args) != 0 {
			return 0, ErrBadOperand
		}
		return MakeCodeAddr(mn.Op, mn.Mode, 0), nil

	case classRegVal:
		if len(stmt.Args) != 2 {
			return 0, ErrBadOperand
		}
		reg, rerr := registerField(stmt.Args[0])
		if rerr != nil {
			return 0, rerr
		}
		value, verr := fieldValue(stmt.Args[1], symbols, mn.Width)
		if verr != nil {
			return 0, verr
		}
		return MakeCodeRegVal(mn.Op, mn.Mode, reg, uint16(value)), nil

	case classRegReg, classRegRegReg:
		want := 2
		if mn.Class == classRegRegReg {
			want = 3
		}
		if len(stmt.Args) != want {
			return 0, ErrBadOperand
		}
		var regs [3]uint8
		for n, arg := range stmt.Args {
			if regs[n], err = registerField(arg); err != nil {
				return 0, err
			}
		}
		return MakeCodeRegs(mn.Op, mn.Mode, regs[0], regs[1], regs[2]), nil

	case classAddr:
		if len(stmt.Args) != 1 {
			return 0, ErrBadOperand
		}
		addr, verr := fieldValue(stmt.Args[0], symbols, mn.Width)
		if verr != nil {
			return 0, verr
		}
		return MakeCodeAddr(mn.Op, mn.Mode, addr), nil

	case classReg:
		if len(stmt.Args) != 1 {
			return 0, ErrBadOperand
		}
		reg, rerr := registerField(stmt.Args[0])
		if rerr != nil {
			return 0, rerr
		}
		return MakeCodeRegs(mn.Op, mn.Mode, reg, 0, 0), nil
	}

	return 0, ErrBadOperand
}

// encodeDirective appends a directive's literal bytes.
func encodeDirective(out []byte, stmt *Statement, symbols *SymbolTable, addr uint32) (grown []byte, err error) {
	switch stmt.Dir {
	case DirAlign:
		size, _ := directiveSize(stmt, addr)
		return append(out, make([]byte, size)...), nil

	case DirSpace:
		size, serr := directiveSize(stmt, addr)
		if serr != nil {
			return nil, serr
		}
		return append(out, make([]byte, size)...), nil

	case DirAscii:
		return append(out, stmt.Str...), nil

	case DirAsciiz:
		out = append(out, stmt.Str...)
		return append(out, 0), nil

	case DirByte:
		for _, arg := range stmt.Args {
			value, verr := fieldValue(arg, symbols, 8)
			if verr != nil {
				return nil, verr
			}
			out = append(out, byte(value))
		}
		return out, nil

	case DirHalf:
		for _, arg := range stmt.Args {
			value, verr := fieldValue(arg, symbols, 16)
			if verr != nil {
				return nil, verr
			}
			out = append(out, byte(value>>8), byte(value))
		}
		return out, nil

	case DirWord:
		for _, arg := range stmt.Args {
			value, verr := fieldValue(arg, symbols, 32)
			if verr != nil {
				return nil, verr
			}
			out = append(out, byte(value>>24), byte(value>>16), byte(value>>8), byte(value))
		}
		return out, nil
	}

	return nil, ErrUnknownDirective
}

// Encode is assembler pass two: re-walk the statements with the symbol
// table from pass one and emit the program image. The data section is
// padded to a multiple of 4 so the entry address, and every instruction
// word after it, stays word-aligned.
func (asm *Assembler) Encode(stmts []Statement, symbols *SymbolTable) (img *Image, err error) {
	base := asm.base()
	asm.Listing = asm.Listing[:0]

	var data []byte
	dataEnd, err := sectionWalk(stmts, SectionData, base, func(stmt *Statement, addr uint32) error {
		if stmt.Kind != StmtDirective {
			return nil
		}
		before := len(data)
		var derr error
		data, derr = encodeDirective(data, stmt, symbols, addr)
		if derr != nil {
			return derr
		}
		asm.Listing = append(asm.Listing, ListEntry{
			LineNo: stmt.LineNo, Addr: addr, Length: len(data) - before, Source: stmt.Source,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := alignUp(dataEnd, 2)
	data = append(data, make([]byte, entry-dataEnd)...)

	var code []byte
	_, err = sectionWalk(stmts, SectionCode, entry, func(stmt *Statement, addr uint32) error {
		switch stmt.Kind {
		case StmtDirective:
			var derr error
			before := len(code)
			code, derr = encodeDirective(code, stmt, symbols, addr)
			if derr != nil {
				return derr
			}
			asm.Listing = append(asm.Listing, ListEntry{
				LineNo: stmt.LineNo, Addr: addr, Length: len(code) - before, Source: stmt.Source,
			})

		case StmtInstruction:
			word, ierr := encodeInstruction(stmt, symbols)
			if ierr != nil {
				return ierr
			}
			b := word.Bytes()
			code = append(code, b[:]...)
			asm.Listing = append(asm.Listing, ListEntry{
				LineNo: stmt.LineNo, Addr: addr, Length: 4, Source: stmt.Source,
			})

			if asm.Verbose {
				log.Printf("%04x: %v", addr, word)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return NewImage(data, code, entry), nil
}

// Assemble runs both passes over an input stream.
func (asm *Assembler) Assemble(input io.Reader) (img *Image, err error) {
	stmts, err := asm.Parse(input)
	if err != nil {
		return
	}

	symbols, err := asm.Resolve(stmts)
	if err != nil {
		return
	}

	return asm.Encode(stmts, symbols)
}

// Assemble compiles source text into a program image.
func Assemble(source string) (*Image, error) {
	asm := &Assembler{}
	return asm.Assemble(strings.NewReader(source))
}
