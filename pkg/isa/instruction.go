package isa

import "fmt"

// OpCode is a compact identifier for a PUC8a instruction variant. Several
// OpCodes (B/BZ/BNZ/.../BGE) share the architectural opcode 5 and differ
// only by the condition code carried in the register field; we still give
// each mnemonic its own constant, the same way the catalog gives each
// register-to-register load its own entry even though they all share one
// bit-pattern shape.
type OpCode uint8

const (
	Lda OpCode = iota
	Sta
	LdiC // ldi <int>
	LdiL // ldi @<label>
	B
	Bz
	Bnz
	Bcs
	Bcc
	Blt
	Bge
	Get
	Set
	Add
	Sub
	Inc
	Dec
	And
	Or
	Xor
	Shft
	Mov      // pseudo: get src ; set dst — never reaches the encoder
	LabelDef // pseudo: marks the address of Instruction.Label, emits nothing

	OpCodeCount
)

// Architectural 4-bit opcode values (the "opcode" field of the token).
const (
	archOpLda  = 0
	archOpSta  = 1
	archOpLdi  = 4
	archOpB    = 5
	archOpGet  = 6
	archOpSet  = 7
	archOpAdd  = 8
	archOpSub  = 9
	archOpInc  = 10
	archOpDec  = 11
	archOpAnd  = 12
	archOpOr   = 13
	archOpXor  = 14
	archOpShft = 15
)

// Info holds static metadata for an OpCode: its mnemonic, the addressing
// shape the assembler/disassembler must use, and its fixed architectural
// fields.
type Info struct {
	Mnemonic  string
	ArchOp    uint8 // 4-bit opcode field
	Cond      uint8 // register-field condition code, for branches
	HasReg    bool  // takes a single register operand (get/set/add/.../lda/sta)
	Addr      bool  // register operand is written "[reg]" (lda/sta)
	HasImm    bool  // takes an integer-or-label immediate (ldi/branch)
	TwoWord   bool  // encodes as two 16-bit words
}

// Catalog maps each OpCode to its Info.
var Catalog = [OpCodeCount]Info{
	Lda:  {Mnemonic: "lda", ArchOp: archOpLda, HasReg: true, Addr: true},
	Sta:  {Mnemonic: "sta", ArchOp: archOpSta, HasReg: true, Addr: true},
	LdiC: {Mnemonic: "ldi", ArchOp: archOpLdi, HasImm: true, TwoWord: true},
	LdiL: {Mnemonic: "ldi", ArchOp: archOpLdi, HasImm: true, TwoWord: true},
	B:    {Mnemonic: "b", ArchOp: archOpB, Cond: 0, HasImm: true, TwoWord: true},
	Bz:   {Mnemonic: "bz", ArchOp: archOpB, Cond: 1, HasImm: true, TwoWord: true},
	Bnz:  {Mnemonic: "bnz", ArchOp: archOpB, Cond: 2, HasImm: true, TwoWord: true},
	Bcs:  {Mnemonic: "bcs", ArchOp: archOpB, Cond: 3, HasImm: true, TwoWord: true},
	Bcc:  {Mnemonic: "bcc", ArchOp: archOpB, Cond: 4, HasImm: true, TwoWord: true},
	Blt:  {Mnemonic: "blt", ArchOp: archOpB, Cond: 5, HasImm: true, TwoWord: true},
	Bge:  {Mnemonic: "bge", ArchOp: archOpB, Cond: 6, HasImm: true, TwoWord: true},
	Get:  {Mnemonic: "get", ArchOp: archOpGet, HasReg: true},
	Set:  {Mnemonic: "set", ArchOp: archOpSet, HasReg: true},
	Add:  {Mnemonic: "add", ArchOp: archOpAdd, HasReg: true},
	Sub:  {Mnemonic: "sub", ArchOp: archOpSub, HasReg: true},
	Inc:  {Mnemonic: "inc", ArchOp: archOpInc, HasReg: true},
	Dec:  {Mnemonic: "dec", ArchOp: archOpDec, HasReg: true},
	And:  {Mnemonic: "and", ArchOp: archOpAnd, HasReg: true},
	Or:   {Mnemonic: "or", ArchOp: archOpOr, HasReg: true},
	Xor:  {Mnemonic: "xor", ArchOp: archOpXor, HasReg: true},
	Shft: {Mnemonic: "shft", ArchOp: archOpShft, HasReg: true},
	Mov:      {Mnemonic: "mov"},
	LabelDef: {Mnemonic: "label"},
}

// IsBranch reports whether op is one of the b/bz/.../bge variants.
func IsBranch(op OpCode) bool {
	return op >= B && op <= Bge
}

// Instruction is one PUC8a instruction, either already resolved (Imm holds
// the literal value, Label is empty) or still carrying an unresolved
// symbolic operand (Label set, Imm ignored until relocation).
type Instruction struct {
	Op    OpCode
	Reg   Register // operand register for *_r forms; Mov's destination
	Src   Register // Mov's source register only
	Imm   uint8    // resolved integer immediate for ldi/branch
	Label string    // unresolved symbolic immediate; "" means Imm is authoritative
}

// HasLabel reports whether this instruction's immediate is still symbolic.
func (i Instruction) HasLabel() bool { return i.Label != "" }

// String renders the instruction in PUC8a assembly syntax.
func (i Instruction) String() string {
	info := &Catalog[i.Op]
	switch i.Op {
	case Mov:
		return fmt.Sprintf("mov %s, %s", i.Reg, i.Src)
	case LabelDef:
		return fmt.Sprintf("%s:", i.Label)
	case LdiC, B, Bz, Bnz, Bcs, Bcc, Blt, Bge:
		if i.HasLabel() {
			return fmt.Sprintf("%s @%s", info.Mnemonic, i.Label)
		}
		return fmt.Sprintf("%s %d", info.Mnemonic, i.Imm)
	case LdiL:
		return fmt.Sprintf("ldi @%s", i.Label)
	default:
		if info.Addr {
			return fmt.Sprintf("%s [%s]", info.Mnemonic, i.Reg)
		}
		return fmt.Sprintf("%s %s", info.Mnemonic, i.Reg)
	}
}

// Lower expands a pseudo-instruction into real, encodable instructions.
// Only Mov expands; everything else, LabelDef included, lowers to
// itself. Callers (the assembler) must run this over an entire stream
// before encoding.
func (i Instruction) Lower() []Instruction {
	if i.Op != Mov {
		return []Instruction{i}
	}
	return []Instruction{
		{Op: Get, Reg: i.Src},
		{Op: Set, Reg: i.Reg},
	}
}

// ExpandPseudo lowers every Mov in a stream, preserving order. LabelDef
// markers pass through unchanged, so a label placed just before a mov
// ends up just before its get.
func ExpandPseudo(stream []Instruction) []Instruction {
	out := make([]Instruction, 0, len(stream))
	for _, ins := range stream {
		out = append(out, ins.Lower()...)
	}
	return out
}
