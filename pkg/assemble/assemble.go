package assemble

import (
	"github.com/wcaarls/puc8a/pkg/isa"
	"github.com/wcaarls/puc8a/pkg/program"
	"github.com/wcaarls/puc8a/pkg/reloc"
)

// Assemble runs the full pipeline over a raw instruction stream
// (typically the output of ParseText, or a code generator's emitted
// stream): pseudo-instruction expansion, a first pass recording every
// label's word address, a second pass encoding each instruction and
// recording a pending relocation wherever it still carries a symbolic
// operand, and finally patching every relocation's word in place.
func Assemble(stream []isa.Instruction) (*program.Program, *SymbolTable, error) {
	expanded := isa.ExpandPseudo(stripLabels(stream, nil))
	syms := NewSymbolTable()

	// Pass 1: walk the label-bearing stream (pre-expansion, since Mov
	// never carries a label and expanding it first would not change
	// addresses) to assign word addresses.
	addr := 0
	for _, ins := range stream {
		if ins.Op == isa.LabelDef {
			if err := syms.Define(ins.Label, addr); err != nil {
				return nil, nil, err
			}
			continue
		}
		for _, lowered := range ins.Lower() {
			addr += wordSize(lowered)
		}
	}

	// Pass 2: encode, recording a relocation for every symbolic operand.
	code := make([]uint16, 0, len(expanded))
	for _, ins := range expanded {
		if ins.HasLabel() {
			kind := reloc.Abs8Data
			if isa.IsBranch(ins.Op) {
				kind = reloc.Abs8Branch
			}
			syms.AddReloc(reloc.New(ins.Label, kind, len(code)+1))
			code = append(code, encodeWord0(ins), 0)
			continue
		}
		words, err := isa.Encode(ins)
		if err != nil {
			return nil, nil, err
		}
		code = append(code, words...)
	}

	for _, r := range syms.Relocs() {
		symAddr, err := syms.Resolve(r.Symbol)
		if err != nil {
			return nil, nil, err
		}
		value, err := r.Calc(symAddr)
		if err != nil {
			return nil, nil, err
		}
		code[r.Address] = uint16(value)
	}

	return &program.Program{Code: code}, syms, nil
}

// wordSize returns how many 16-bit words ins occupies once lowered,
// without requiring its operand to already be resolved.
func wordSize(ins isa.Instruction) int {
	if isa.Catalog[ins.Op].TwoWord {
		return 2
	}
	return 1
}

// encodeWord0 produces the opcode word of a still-symbolic two-word
// instruction; its immediate word is a placeholder patched later.
func encodeWord0(ins isa.Instruction) uint16 {
	resolved := ins
	resolved.Label = ""
	words, err := isa.Encode(resolved)
	if err != nil {
		// Every two-word opcode encodes with a zero placeholder immediate.
		panic(err)
	}
	return words[0]
}

// stripLabels removes LabelDef markers so the instructions that remain
// can be run through isa.ExpandPseudo (which knows nothing about them).
// addrs, if non-nil, receives each surviving instruction's pre-expansion
// index — unused today but kept for a future disassembler that wants to
// map code back to source positions.
func stripLabels(stream []isa.Instruction, addrs *[]int) []isa.Instruction {
	out := make([]isa.Instruction, 0, len(stream))
	for i, ins := range stream {
		if ins.Op == isa.LabelDef {
			continue
		}
		out = append(out, ins)
		if addrs != nil {
			*addrs = append(*addrs, i)
		}
	}
	return out
}
