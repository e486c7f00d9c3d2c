package vm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	stmts, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(stmts))

	assert.Equal("0", asm.Equate["LINENO"])
	assert.Equal(fmt.Sprintf("%#v", HeaderLength), asm.Equate["HEADER_LENGTH"])
	assert.Equal(fmt.Sprintf("%#v", RegisterCount), asm.Equate["REGISTER_COUNT"])
}

func TestLexLine(t *testing.T) {
	assert := assert.New(t)

	tokens, err := lexLine(`loop: ldbd $1, @msg ; fetch`, 7)
	assert.NoError(err)
	assert.Equal([]Token{
		{TokenLabelDef, "loop", 7, 1},
		{TokenIdent, "ldbd", 7, 7},
		{TokenRegister, "1", 7, 12},
		{TokenComma, ",", 7, 14},
		{TokenLabelRef, "msg", 7, 16},
	}, tokens)

	tokens, err = lexLine(`.asciiz "a\tb\0"`, 1)
	assert.NoError(err)
	assert.Equal([]Token{
		{TokenDirective, "asciiz", 1, 1},
		{TokenString, "a\tb\x00", 1, 9},
	}, tokens)

	tokens, err = lexLine(`.byte 'Z' 0x10 -1`, 1)
	assert.NoError(err)
	assert.Equal(TokenChar, tokens[1].Kind)
	assert.Equal("Z", tokens[1].Text)
	assert.Equal(TokenNumber, tokens[2].Kind)
	assert.Equal(TokenNumber, tokens[3].Kind)

	_, err = lexLine(`.ascii "open`, 3)
	assert.ErrorIs(err, ErrUnterminatedString)
	var located ErrSyntax
	assert.ErrorAs(err, &located)
	assert.Equal(3, located.LineNo)

	_, err = lexLine(`ldbi $0, #5`, 1)
	assert.ErrorIs(err, ErrUnknownToken)
}

func mustAssemble(t *testing.T, program []string) *Image {
	t.Helper()

	img, err := Assemble(strings.Join(program, "\n"))
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestAssembleImage(t *testing.T) {
	assert := assert.New(t)

	img := mustAssemble(t, []string{
		".data",
		"msg:    .asciiz \"hi\"",
		".code",
		"start:  ldbd $1, @msg",
		"        hlt",
	})

	// "hi\0" occupies 64..67; the entry pads up to the next word.
	assert.Equal(uint32(68), img.Entry())
	assert.Equal([]byte{'h', 'i', 0, 0}, img.Data())
	assert.Equal([]byte{
		0x05, 0x01, 0x00, 0x40, // ldbd $1, 64
		0x00, 0x00, 0x00, 0x00, // hlt
	}, img.Code())
}

func TestAssembleListing(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	program := []string{
		".data",
		"a: .byte 1 2 3",
		".code",
		"   hlt",
	}

	img, err := asm.Assemble(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)
	assert.NotNil(img)

	assert.Equal(2, len(asm.Listing))
	assert.Equal(ListEntry{LineNo: 2, Addr: 64, Length: 3, Source: "a: .byte 1 2 3"}, asm.Listing[0])
	assert.Equal(ListEntry{LineNo: 4, Addr: 68, Length: 4, Source: "   hlt"}, asm.Listing[1])
}

func TestResolve(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	stmts, err := asm.Parse(strings.NewReader(strings.Join([]string{
		".data",
		"one: .asciiz \"1\"",
		"two: .asciiz \"22\"",
		"     .align 2",
		"big: .word 0",
		".code",
		"go:  hlt",
	}, "\n")))
	assert.NoError(err)

	symbols, err := asm.Resolve(stmts)
	assert.NoError(err)
	assert.Equal(4, symbols.Len())

	expected := map[string]Symbol{
		"one": {64, SectionData},
		"two": {66, SectionData}, // distinct region, not deduplicated
		"big": {72, SectionData}, // .align 2 from cursor 69
		"go":  {76, SectionCode},
	}
	for name, want := range expected {
		sym, ok := symbols.Lookup(name)
		assert.True(ok, name)
		assert.Equal(want, sym, name)
	}
}

// Identical string contents are never interned; each directive owns its
// own region.
func TestResolveDistinctStrings(t *testing.T) {
	assert := assert.New(t)

	img := mustAssemble(t, []string{
		".data",
		"a: .asciiz \"same\"",
		"b: .asciiz \"same\"",
		".code",
		"hlt",
	})

	assert.Equal([]byte("same\x00same\x00\x00\x00"), img.Data())
	assert.Equal(uint32(76), img.Entry())
}

func TestResolveDuplicateLabel(t *testing.T) {
	assert := assert.New(t)

	_, err := Assemble(strings.Join([]string{
		".code",
		"here: hlt",
		"here: hlt",
	}, "\n"))
	assert.ErrorIs(err, ErrDuplicateLabel)

	var located ErrSyntax
	assert.ErrorAs(err, &located)
	assert.Equal(3, located.LineNo)
}

func TestEncodeUndefinedLabel(t *testing.T) {
	assert := assert.New(t)

	_, err := Assemble(strings.Join([]string{
		".code",
		"jmpi @nowhere",
	}, "\n"))
	assert.ErrorIs(err, ErrUndefinedLabel(""))
}

func TestEquates(t *testing.T) {
	assert := assert.New(t)

	img := mustAssemble(t, []string{
		".equ COUNT 3",
		".code",
		"ldbi $0, COUNT",
		"addi $0, $(COUNT * 10 + REGISTER_COUNT)",
		"hlt",
	})

	code := img.Code()
	assert.Equal(MakeCodeRegVal(LDB, ModeImmediate, 0, 3), DecodeCode(code[0:4]))
	assert.Equal(MakeCodeRegVal(ADD, ModeImmediate, 0, 62), DecodeCode(code[4:8]))
}

func TestEquateErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := Assemble(".equ LINENO 9")
	assert.ErrorIs(err, ErrEquateDuplicate)

	_, err = Assemble(".equ ONLYNAME")
	assert.ErrorIs(err, ErrEquateSyntax)

	_, err = Assemble(strings.Join([]string{
		".code",
		"ldbi $0, $(1 +)",
	}, "\n"))
	assert.Error(err)
}

func TestPredefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("BASE", "0x40")

	img, err := asm.Assemble(strings.NewReader(strings.Join([]string{
		".code",
		"ldhi $5, BASE",
		"hlt",
	}, "\n")))
	assert.NoError(err)
	assert.Equal(MakeCodeRegVal(LDH, ModeImmediate, 5, 0x40), DecodeCode(img.Code()[0:4]))
}

func TestDirectives(t *testing.T) {
	assert := assert.New(t)

	img := mustAssemble(t, []string{
		".data",
		"        .byte 1 -1 'A'",
		"        .half 0x1234 @tag",
		"        .align 3",
		"tag:    .word 0xdeadbeef",
		"        .space 2",
		"        .ascii \"ab\"",
		".code",
		"        hlt",
	})

	assert.Equal([]byte{
		1, 0xff, 'A', // .byte at 64
		0x12, 0x34, 0x00, 0x48, // .half at 67, @tag = 72
		0x00, // .align 3 pad
		0xde, 0xad, 0xbe, 0xef, // .word at 72
		0x00, 0x00, // .space
		'a', 'b', // .ascii, no terminator
	}, img.Data())
	assert.Equal(uint32(64+16), img.Entry())
}

func TestDirectiveErrors(t *testing.T) {
	assert := assert.New(t)

	for _, tc := range []struct {
		line string
		err  error
	}{
		{".data\n.align 13", ErrBadAlignment},
		{".data\n.align -1", ErrBadAlignment},
		{".data\n.space 0x1000001", ErrOperandRange},
		{".data\n.byte 256", ErrOperandRange},
		{".data\n.byte @later\n.code\nlater: hlt", ErrBadOperand},
		{".data\n.byte $3", ErrBadOperand},
		{".data\n.bogus 1", ErrUnknownDirective},
		{".code\n.word 1", ErrDirectivePlacement},
		{"hlt", ErrNoSection},
		{".data\nhlt", ErrNoSection},
		{".data\nbogus $0", ErrUnknownMnemonic},
		{".code\nldbi $99, 0", ErrBadRegister},
		{".code\nldbi $0", ErrBadOperand},
		{".code\nldbi $0, , 1", ErrBadOperand},
		{".code\nmov $0, $1, $2", ErrBadOperand},
	} {
		_, err := Assemble(tc.line)
		assert.ErrorIs(err, tc.err, tc.line)
	}
}

// Every mnemonic assembles to a word that decodes back to its own
// opcode, mode, and operand fields.
func TestMnemonicRoundTrip(t *testing.T) {
	assert := assert.New(t)

	for name, mn := range mnemonicMap {
		var operands string
		switch mn.Class {
		case classNone:
		case classRegVal:
			operands = " $1, 9"
		case classRegReg:
			operands = " $1, $2"
		case classRegRegReg:
			operands = " $1, $2, $3"
		case classAddr:
			operands = " 0x123456"
		case classReg:
			operands = " $1"
		}

		img, err := Assemble(".code\n" + name + operands)
		assert.NoError(err, name)
		if err != nil {
			continue
		}

		code := DecodeCode(img.Code()[0:4])
		assert.Equal(mn.Op, code.Op(), name)
		assert.Equal(mn.Mode, code.Mode(), name)

		switch mn.Class {
		case classRegVal:
			r1, _, _ := code.Regs()
			assert.Equal(uint8(1), r1, name)
			assert.Equal(uint16(9), code.Value(), name)
		case classRegReg:
			r1, r2, _ := code.Regs()
			assert.Equal([2]uint8{1, 2}, [2]uint8{r1, r2}, name)
		case classRegRegReg:
			r1, r2, r3 := code.Regs()
			assert.Equal([3]uint8{1, 2, 3}, [3]uint8{r1, r2, r3}, name)
		case classAddr:
			assert.Equal(uint32(0x123456), code.Addr(), name)
		case classReg:
			r1, _, _ := code.Regs()
			assert.Equal(uint8(1), r1, name)
		}
	}
}

func TestAssembleDeterministic(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".data",
		"greet: .asciiz \"hello\"",
		".code",
		"start: prtsd @greet",
		"       hlt",
	}

	first := mustAssemble(t, program)
	second := mustAssemble(t, program)
	assert.Equal(first.Bytes(), second.Bytes())
}

func TestMultipleLabels(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	img, err := asm.Assemble(strings.NewReader(strings.Join([]string{
		".code",
		"a: b:",
		"c: hlt",
	}, "\n")))
	assert.NoError(err)
	assert.NotNil(img)

	symbols, err := asm.Resolve(mustParse(t, asm, ".code\na: b:\nc: hlt"))
	assert.NoError(err)
	for _, name := range []string{"a", "b", "c"} {
		sym, ok := symbols.Lookup(name)
		assert.True(ok, name)
		assert.Equal(uint32(HeaderLength), sym.Address, name)
	}
}

func mustParse(t *testing.T, asm *Assembler, source string) []Statement {
	t.Helper()

	stmts, err := asm.Parse(strings.NewReader(source))
	if err != nil {
		t.Fatal(err)
	}
	return stmts
}
