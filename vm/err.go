package vm

import (
	"errors"

	"github.com/epie-vm/epie/translate"
)

var f = translate.From

var (
	// Assembler errors
	ErrUnknownDirective   = errors.New(f("unknown directive"))
	ErrUnknownMnemonic    = errors.New(f("unknown mnemonic"))
	ErrUnknownToken       = errors.New(f("unknown token"))
	ErrUnterminatedString = errors.New(f("unterminated string literal"))
	ErrDuplicateLabel     = errors.New(f("label duplicated"))
	ErrBadOperand         = errors.New(f("operand does not match mnemonic"))
	ErrOperandRange       = errors.New(f("operand out of range"))
	ErrBadAlignment       = errors.New(f("invalid alignment exponent"))
	ErrBadRegister        = errors.New(f("register invalid"))
	ErrNoSection          = errors.New(f("statement outside .data/.code section"))
	ErrDirectivePlacement = errors.New(f("directive not allowed in this section"))
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))

	// Program image errors
	ErrBadMagic      = errors.New(f("image header magic mismatch"))
	ErrTruncated     = errors.New(f("image truncated"))
	ErrImageTooLarge = errors.New(f("image larger than memory"))

	// Execution faults
	ErrOutOfBounds      = errors.New(f("register or address out of bounds"))
	ErrDivisionByZero   = errors.New(f("division by zero"))
	ErrUnterminatedScan = errors.New(f("string scan missing terminator"))
	ErrCanceled         = errors.New(f("execution canceled"))
	ErrStepLimit        = errors.New(f("step budget exhausted"))
)

// ErrIllegalInstruction reports a fetch of IGL or an unassigned opcode.
type ErrIllegalInstruction Code

func (ei ErrIllegalInstruction) Error() string {
	return f("illegal instruction %#08x", uint32(ei))
}

func (ei ErrIllegalInstruction) Is(err error) (ok bool) {
	_, ok = err.(ErrIllegalInstruction)
	return
}

// ErrUndefinedLabel reports a label reference with no definition.
type ErrUndefinedLabel string

func (el ErrUndefinedLabel) Error() string {
	return f("label %v undefined", string(el))
}

func (el ErrUndefinedLabel) Is(err error) (ok bool) {
	_, ok = err.(ErrUndefinedLabel)
	return
}

// ErrSyntax locates an assembler error in the source text.
type ErrSyntax struct {
	LineNo int
	Col    int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d:%d '%v' %v", err.LineNo, err.Col, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

// ErrParseNumber reports a malformed numeric literal.
type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

// ErrParseExpression reports a $( ... ) expression that did not evaluate
// to an integer.
type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
