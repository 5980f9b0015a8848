// Package reloc implements the two PUC8a relocation kinds: both patch the
// 8-bit immediate word of an ldi or branch instruction once a label's
// address is known.
//
// Both kinds patch with the same truncate-to-byte arithmetic: the
// simulator indexes its code image directly by word (pc is an 8-bit
// word count, not a byte offset — see pkg/sim), so a branch target needs
// no additional scaling once it is expressed as a word address. Abs8Data
// and Abs8Branch stay distinct kinds because they patch semantically
// different operands (a value to load vs. a place to jump), even though
// the arithmetic coincides in this single-translation-unit assembler.
package reloc

import "fmt"

// Kind names a relocation calculation.
type Kind string

const (
	// Abs8Data patches a data reference: imm <- symbol value mod 256.
	Abs8Data Kind = "abs8data"
	// Abs8Branch patches a branch target: imm <- symbol value mod 256,
	// the target's word address truncated to 8 bits.
	Abs8Branch Kind = "abs8branch"
)

// Relocation is a deferred patch against a not-yet-known symbol address.
// It names the token kind, the field it patches (always "imm" — PUC8a has
// no other relocatable field), and the code-word index to write the
// result into.
type Relocation struct {
	Symbol  string
	Kind    Kind
	Field   string // always "imm"
	Address int    // index into the program's Code array
}

// New builds a Relocation for symbol, to be applied at the given code
// word address.
func New(symbol string, kind Kind, address int) Relocation {
	return Relocation{Symbol: symbol, Kind: kind, Field: "imm", Address: address}
}

// Calc is the pure relocation calculation the linker collaborator invokes:
// given the resolved symbol value, produce the 8-bit patch value.
func Calc(kind Kind, symValue int) (uint8, error) {
	switch kind {
	case Abs8Data, Abs8Branch:
		return uint8(((symValue % 256) + 256) % 256), nil
	default:
		return 0, fmt.Errorf("reloc: unknown relocation kind %q", kind)
	}
}

// Calc applies this relocation's calculation to a resolved symbol value.
func (r Relocation) Calc(symValue int) (uint8, error) {
	return Calc(r.Kind, symValue)
}
