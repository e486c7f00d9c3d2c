// Package vm implements the EPIE assembler and register machine.
//
// The machine has 32 signed 32-bit general-purpose registers ($0-$31),
// a single equality flag, a division remainder register, and a flat
// byte-addressed memory. Every instruction is one big-endian 4-byte
// word; the addressing mode baked into each mnemonic (I/D/R suffix)
// selects how the 24-bit operand field is interpreted.
//
// The assembler is two-pass: pass one sizes every statement and
// resolves label addresses, pass two emits the program image. Source
// text supports .data/.code sections, layout directives, equates, and
// compile-time $( ... ) expression evaluation.
package vm
