package vm

import (
	"strconv"
	"strings"
)

// Section tags a statement with the region whose cursor it advances.
type Section int

//go:generate go tool stringer -linecomment -type=Section
const (
	SectionNone = Section(iota) // none
	SectionData                 // data
	SectionCode                 // code
)

// Directive is a layout directive. The section switches .data/.code and
// the .equ definitions are consumed during parsing and never appear in
// the statement list.
type Directive int

//go:generate go tool stringer -linecomment -type=Directive
const (
	DirAlign  = Directive(iota) // .align
	DirAscii                    // .ascii
	DirAsciiz                   // .asciiz
	DirByte                     // .byte
	DirHalf                     // .half
	DirWord                     // .word
	DirSpace                    // .space
)

var directiveMap = map[string]Directive{
	"align":  DirAlign,
	"ascii":  DirAscii,
	"asciiz": DirAsciiz,
	"byte":   DirByte,
	"half":   DirHalf,
	"word":   DirWord,
	"space":  DirSpace,
}

// OperandKind tags an Operand.
type OperandKind int

const (
	OperandRegister = OperandKind(iota)
	OperandValue
	OperandLabel
)

// Operand is one parsed instruction or directive argument. Label
// references stay symbolic until the encoder substitutes their pass-one
// address.
type Operand struct {
	Kind  OperandKind
	Reg   uint8
	Value int32
	Label string
}

// StatementKind tags a Statement.
type StatementKind int

const (
	StmtLabel = StatementKind(iota) // bare label line
	StmtDirective
	StmtInstruction
)

// Statement is one section-scoped line of the program.
type Statement struct {
	Kind    StatementKind
	LineNo  int
	Source  string
	Label   string // leading label definition, may be empty
	Section Section

	Dir  Directive // StmtDirective
	Str  string    // .ascii/.asciiz payload
	Args []Operand

	Op   Opcode // StmtInstruction
	Mode AddressMode
	mn   mnemonic
}

// parseValue evaluates a value-position token to an integer. Equates
// substitute their raw text, $( ... ) expressions go through starlark.
func (asm *Assembler) parseValue(tok Token) (value int32, err error) {
	switch tok.Kind {
	case TokenChar:
		return int32(tok.Text[0]), nil

	case TokenExpr:
		v, eerr := asm.parenEval(tok.Text)
		if eerr != nil {
			return 0, eerr
		}
		return int32(v), nil

	case TokenIdent:
		raw, ok := asm.Equate[tok.Text]
		if !ok {
			return 0, ErrParseNumber(tok.Text)
		}
		v64, perr := strconv.ParseInt(raw, 0, 33)
		if perr != nil {
			return 0, ErrParseNumber(raw)
		}
		return int32(v64), nil

	case TokenNumber:
		v64, perr := strconv.ParseInt(tok.Text, 0, 33)
		if perr != nil {
			return 0, ErrParseNumber(tok.Text)
		}
		return int32(v64), nil
	}

	return 0, ErrBadOperand
}

// parseOperand converts one token in operand position.
func (asm *Assembler) parseOperand(tok Token) (op Operand, err error) {
	switch tok.Kind {
	case TokenRegister:
		reg, perr := strconv.ParseUint(tok.Text, 0, 8)
		if perr != nil {
			return op, ErrBadRegister
		}
		return Operand{Kind: OperandRegister, Reg: uint8(reg)}, nil

	case TokenLabelRef:
		return Operand{Kind: OperandLabel, Label: tok.Text}, nil

	default:
		value, verr := asm.parseValue(tok)
		if verr != nil {
			return op, verr
		}
		return Operand{Kind: OperandValue, Value: value}, nil
	}
}

// parseOperands consumes the remaining tokens as a comma- or
// space-separated operand list.
func (asm *Assembler) parseOperands(tokens []Token) (ops []Operand, err error) {
	wantOperand := true
	for _, tok := range tokens {
		if tok.Kind == TokenComma {
			if wantOperand {
				return nil, ErrBadOperand
			}
			wantOperand = true
			continue
		}
		op, oerr := asm.parseOperand(tok)
		if oerr != nil {
			return nil, oerr
		}
		ops = append(ops, op)
		wantOperand = false
	}

	return
}

// parseDirective builds a directive statement from its argument tokens.
func (asm *Assembler) parseDirective(stmt *Statement, tokens []Token) (err error) {
	stmt.Kind = StmtDirective

	switch stmt.Dir {
	case DirAscii, DirAsciiz:
		if len(tokens) != 1 ||
			(tokens[0].Kind != TokenString && tokens[0].Kind != TokenChar) {
			return ErrBadOperand
		}
		stmt.Str = tokens[0].Text
		return

	case DirAlign, DirSpace:
		if len(tokens) != 1 {
			return ErrBadOperand
		}
		value, verr := asm.parseValue(tokens[0])
		if verr != nil {
			return verr
		}
		stmt.Args = []Operand{{Kind: OperandValue, Value: value}}
		return
	}

	// .byte/.half/.word take one or more values; .half/.word also take
	// label references (address constants for direct-mode jumps).
	stmt.Args, err = asm.parseOperands(tokens)
	if err != nil {
		return
	}
	if len(stmt.Args) == 0 {
		return ErrBadOperand
	}
	for _, arg := range stmt.Args {
		switch arg.Kind {
		case OperandRegister:
			return ErrBadOperand
		case OperandLabel:
			if stmt.Dir == DirByte {
				return ErrBadOperand
			}
		}
	}

	return
}

// parseLine converts one source line into zero or more statements.
// Section switches and .equ definitions update assembler state and
// produce no statement.
func (asm *Assembler) parseLine(line string, lineno int) (stmts []Statement, err error) {
	tokens, err := lexLine(line, lineno)
	if err != nil {
		return
	}
	if len(tokens) == 0 {
		return
	}

	// .equ NAME value
	if tokens[0].Kind == TokenDirective && tokens[0].Text == "equ" {
		if len(tokens) != 3 || tokens[1].Kind != TokenIdent {
			return nil, ErrEquateSyntax
		}
		name := tokens[1].Text
		if _, ok := asm.Equate[name]; ok {
			return nil, ErrEquateDuplicate
		}
		value, verr := asm.parseValue(tokens[2])
		if verr != nil {
			return nil, verr
		}
		asm.Equate[name] = strconv.FormatInt(int64(value), 10)
		return
	}

	// Section switches
	if tokens[0].Kind == TokenDirective &&
		(tokens[0].Text == "data" || tokens[0].Text == "code") {
		if len(tokens) != 1 {
			return nil, ErrBadOperand
		}
		if tokens[0].Text == "data" {
			asm.section = SectionData
		} else {
			asm.section = SectionCode
		}
		return
	}

	// Leading label definitions; all but the last become bare label
	// statements, the last attaches to the body on the same line.
	var label string
	for len(tokens) > 0 && tokens[0].Kind == TokenLabelDef {
		if label != "" {
			stmts = append(stmts, Statement{
				Kind: StmtLabel, LineNo: lineno, Source: line,
				Label: label, Section: asm.section,
			})
		}
		label = tokens[0].Text
		tokens = tokens[1:]
	}

	if asm.section == SectionNone && (label != "" || len(tokens) > 0) {
		return nil, ErrNoSection
	}

	if len(tokens) == 0 {
		if label != "" {
			stmts = append(stmts, Statement{
				Kind: StmtLabel, LineNo: lineno, Source: line,
				Label: label, Section: asm.section,
			})
		}
		return
	}

	stmt := Statement{
		LineNo:  lineno,
		Source:  line,
		Label:   label,
		Section: asm.section,
	}

	switch tokens[0].Kind {
	case TokenDirective:
		dir, ok := directiveMap[tokens[0].Text]
		if !ok {
			return nil, ErrUnknownDirective
		}
		stmt.Dir = dir
		if dir != DirAlign && stmt.Section != SectionData {
			return nil, ErrDirectivePlacement
		}
		if err = asm.parseDirective(&stmt, tokens[1:]); err != nil {
			return nil, err
		}

	case TokenIdent:
		mn, ok := mnemonicMap[strings.ToLower(tokens[0].Text)]
		if !ok {
			return nil, ErrUnknownMnemonic
		}
		stmt.Kind = StmtInstruction
		stmt.Op = mn.Op
		stmt.Mode = mn.Mode
		stmt.mn = mn
		if stmt.Section != SectionCode {
			return nil, ErrNoSection
		}
		if stmt.Args, err = asm.parseOperands(tokens[1:]); err != nil {
			return nil, err
		}

	default:
		return nil, ErrUnknownToken
	}

	stmts = append(stmts, stmt)

	return
}
