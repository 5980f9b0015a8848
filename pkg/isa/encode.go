package isa

import "fmt"

// Token is the 16-bit big-endian instruction word: opcode(4) | reg(4) |
// imm(8), laid out from the MSB. A two-word instruction (ldi, branches)
// is a Token followed by a second 16-bit word holding the 8-bit
// immediate in its low byte.
type Token uint16

// packToken lays the opcode/reg/imm fields into a 16-bit word.
func packToken(opcode, reg, imm uint8) Token {
	return Token(uint16(opcode&0xF)<<12 | uint16(reg&0xF)<<8 | uint16(imm))
}

// Opcode extracts the 4-bit opcode field.
func (t Token) Opcode() uint8 { return uint8(t>>12) & 0xF }

// Reg extracts the 4-bit register (or condition-code) field.
func (t Token) Reg() uint8 { return uint8(t>>8) & 0xF }

// Imm extracts the low 8-bit immediate field (only meaningful for
// single-word instructions; two-word forms carry their immediate in the
// following word instead).
func (t Token) Imm() uint8 { return uint8(t) }

// Encode converts a resolved instruction (Label == "") into its one or
// two 16-bit code words. Callers must run isa.ExpandPseudo first; Encode
// rejects Mov.
func Encode(i Instruction) ([]uint16, error) {
	if i.Op == Mov {
		return nil, fmt.Errorf("isa: mov is a pseudo-instruction, lower it before encoding")
	}
	info := &Catalog[i.Op]

	if IsBranch(i.Op) {
		word0 := packToken(archOpB, info.Cond, 0)
		return []uint16{uint16(word0), uint16(i.Imm)}, nil
	}
	if i.Op == LdiC || i.Op == LdiL {
		word0 := packToken(archOpLdi, 0, 0)
		return []uint16{uint16(word0), uint16(i.Imm)}, nil
	}
	if info.HasReg {
		word0 := packToken(info.ArchOp, i.Reg.Num(), 0)
		return []uint16{uint16(word0)}, nil
	}
	return nil, fmt.Errorf("isa: opcode %d has no encoding rule", i.Op)
}

// Decoded is the result of decoding a fetched instruction: opcode, the
// register (or, for branches, the condition code) field, and the
// immediate value (valid only for two-word forms, after the second word
// has been fetched).
type Decoded struct {
	Op      OpCode
	Reg     Register
	Cond    uint8
	Imm     uint8
	TwoWord bool
}

// condOps maps a branch condition code (0..6) to its OpCode.
var condOps = [7]OpCode{B, Bz, Bnz, Bcs, Bcc, Blt, Bge}

// Decode decodes the first code word of an instruction (and, for
// two-word forms, the immediate word that follows it). It returns an
// error carrying the raw opcode value when the first word's opcode field
// does not name a PUC8a instruction (the "unknown-opcode" fatal kind).
func Decode(word0, word1 uint16) (Decoded, error) {
	t := Token(word0)
	opcode := t.Opcode()
	reg := t.Reg()

	switch opcode {
	case archOpLda:
		return Decoded{Op: Lda, Reg: FromNum(reg)}, nil
	case archOpSta:
		return Decoded{Op: Sta, Reg: FromNum(reg)}, nil
	case archOpLdi:
		return Decoded{Op: LdiC, Imm: uint8(word1), TwoWord: true}, nil
	case archOpB:
		if reg > 6 {
			return Decoded{}, &UnknownOpcodeError{Opcode: opcode}
		}
		return Decoded{Op: condOps[reg], Cond: reg, Imm: uint8(word1), TwoWord: true}, nil
	case archOpGet:
		return Decoded{Op: Get, Reg: FromNum(reg)}, nil
	case archOpSet:
		return Decoded{Op: Set, Reg: FromNum(reg)}, nil
	case archOpAdd:
		return Decoded{Op: Add, Reg: FromNum(reg)}, nil
	case archOpSub:
		return Decoded{Op: Sub, Reg: FromNum(reg)}, nil
	case archOpInc:
		return Decoded{Op: Inc, Reg: FromNum(reg)}, nil
	case archOpDec:
		return Decoded{Op: Dec, Reg: FromNum(reg)}, nil
	case archOpAnd:
		return Decoded{Op: And, Reg: FromNum(reg)}, nil
	case archOpOr:
		return Decoded{Op: Or, Reg: FromNum(reg)}, nil
	case archOpXor:
		return Decoded{Op: Xor, Reg: FromNum(reg)}, nil
	case archOpShft:
		return Decoded{Op: Shft, Reg: FromNum(reg)}, nil
	default:
		return Decoded{}, &UnknownOpcodeError{Opcode: opcode}
	}
}

// UnknownOpcodeError is the fatal "unknown-opcode" error kind: the
// simulator decoded an opcode value not present in the table.
type UnknownOpcodeError struct {
	Opcode uint8
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("isa: unknown opcode %04b", e.Opcode)
}
