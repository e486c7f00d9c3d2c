package vm

import (
	"iter"
	"maps"
)

// Symbol is a resolved label: an absolute byte address into the loaded
// image, plus the section the label was defined in.
type Symbol struct {
	Address uint32
	Section Section
}

// SymbolTable maps every defined label to its absolute address. Built
// once in pass one, consumed by the encoder in pass two.
type SymbolTable struct {
	symbols map[string]Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]Symbol, 16)}
}

// Add records a symbol, reporting false if the name is already taken.
func (st *SymbolTable) Add(name string, sym Symbol) bool {
	if _, ok := st.symbols[name]; ok {
		return false
	}
	st.symbols[name] = sym
	return true
}

// Lookup finds a symbol by name.
func (st *SymbolTable) Lookup(name string) (sym Symbol, ok bool) {
	sym, ok = st.symbols[name]
	return
}

func (st *SymbolTable) Len() int {
	return len(st.symbols)
}

// All iterates over the defined symbols in map order.
func (st *SymbolTable) All() iter.Seq2[string, Symbol] {
	return maps.All(st.symbols)
}

const maxAlignExponent = 12

// alignUp rounds cursor up to the next multiple of 2^exp.
func alignUp(cursor uint32, exp int) uint32 {
	unit := uint32(1) << exp
	return (cursor + unit - 1) &^ (unit - 1)
}

// directiveSize returns the bytes a directive emits at the given
// absolute cursor.
func directiveSize(stmt *Statement, cursor uint32) (size uint32, err error) {
	switch stmt.Dir {
	case DirAlign:
		exp := stmt.Args[0].Value
		if exp < 0 || exp > maxAlignExponent {
			return 0, ErrBadAlignment
		}
		return alignUp(cursor, int(exp)) - cursor, nil

	case DirAscii:
		return uint32(len(stmt.Str)), nil
	case DirAsciiz:
		return uint32(len(stmt.Str)) + 1, nil
	case DirByte:
		return uint32(len(stmt.Args)), nil
	case DirHalf:
		return uint32(len(stmt.Args)) * 2, nil
	case DirWord:
		return uint32(len(stmt.Args)) * 4, nil

	case DirSpace:
		n := stmt.Args[0].Value
		if n < 0 || n > 1<<24 {
			return 0, ErrOperandRange
		}
		return uint32(n), nil
	}

	return 0, ErrUnknownDirective
}

// sectionWalk advances an absolute cursor over one section's statements,
// calling visit with each statement's start address.
func sectionWalk(stmts []Statement, section Section, start uint32,
	visit func(stmt *Statement, addr uint32) error) (end uint32, err error) {

	cursor := start
	for n := range stmts {
		stmt := &stmts[n]
		if stmt.Section != section {
			continue
		}

		if visit != nil {
			if err = visit(stmt, cursor); err != nil {
				return 0, ErrSyntax{LineNo: stmt.LineNo, Line: stmt.Source, Err: err}
			}
		}

		switch stmt.Kind {
		case StmtInstruction:
			cursor += 4
		case StmtDirective:
			var size uint32
			size, err = directiveSize(stmt, cursor)
			if err != nil {
				return 0, ErrSyntax{LineNo: stmt.LineNo, Line: stmt.Source, Err: err}
			}
			cursor += size
		}
	}

	return cursor, nil
}

// Resolve is assembler pass one: walk the statement list computing byte
// offsets and record every label's absolute address. The data section is
// laid out first (padded to a multiple of 4), the code section follows,
// so alignment is computed against final addresses. Unresolved
// references are fine here; pass two reports them.
func (asm *Assembler) Resolve(stmts []Statement) (symbols *SymbolTable, err error) {
	symbols = NewSymbolTable()

	record := func(stmt *Statement, addr uint32) error {
		if stmt.Label == "" {
			return nil
		}
		if !symbols.Add(stmt.Label, Symbol{Address: addr, Section: stmt.Section}) {
			return ErrDuplicateLabel
		}
		return nil
	}

	dataEnd, err := sectionWalk(stmts, SectionData, asm.base(), record)
	if err != nil {
		return nil, err
	}

	codeStart := alignUp(dataEnd, 2)
	if _, err = sectionWalk(stmts, SectionCode, codeStart, record); err != nil {
		return nil, err
	}

	return symbols, nil
}
