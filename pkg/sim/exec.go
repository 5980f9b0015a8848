package sim

import (
	"bufio"
	"fmt"
	"io"

	"github.com/wcaarls/puc8a/pkg/isa"
	"github.com/wcaarls/puc8a/pkg/program"
)

// Memory-mapped I/O addresses trapped by lda/sta before they ever reach
// data memory.
const (
	AddrKeyboard = 2
	AddrCharOut  = 7
	AddrFlush    = 8
)

// IO wires the simulator's memory-mapped keyboard and character-output
// ports to real or fake streams. In holds a buffered reader so each
// keyboard trap consumes exactly one line, matching the original
// line-oriented "Enter keyboard character:" prompt.
type IO struct {
	In  *bufio.Reader
	Out io.Writer
}

// NewIO wraps r/w into an IO, buffering r itself if it is not already.
func NewIO(r io.Reader, w io.Writer) IO {
	return IO{In: bufio.NewReader(r), Out: w}
}

// Step fetches, decodes, and executes exactly one instruction, returning
// the resulting state. prog.Code is addressed by pc modulo its own
// length, mirroring the original's wraparound fetch of the instruction's
// second word at the end of the image.
func Step(state State, prog *program.Program, iow IO) (State, error) {
	if len(prog.Code) == 0 {
		return state, fmt.Errorf("sim: empty program")
	}
	pc := state.PC()
	word0 := prog.Code[int(pc)%len(prog.Code)]
	word1 := prog.Code[(int(pc)+1)%len(prog.Code)]

	decoded, err := isa.Decode(word0, word1)
	if err != nil {
		return state, err
	}

	next := state
	next.Regs[15] = pc + 1
	val := state.Regs[decoded.Reg]

	switch decoded.Op {
	case isa.Lda:
		if val == AddrKeyboard {
			ch, err := readKeyboard(iow.In)
			if err != nil {
				return state, err
			}
			next.Acc = ch
		} else {
			next.Acc = state.Mem[val]
		}
	case isa.Sta:
		switch {
		case val == AddrCharOut:
			fmt.Fprintf(iow.Out, "%c", state.Acc)
		case val == AddrFlush && state.Acc == 1:
			fmt.Fprintln(iow.Out)
		default:
			next.Mem[val] = state.Acc
		}
	case isa.LdiC:
		next.Acc = decoded.Imm
		next.Regs[15] = pc + 2
	case isa.Get:
		next.Acc = val
	case isa.Set:
		next.Regs[decoded.Reg] = state.Acc
	default:
		if isa.IsBranch(decoded.Op) {
			if branchTaken(decoded.Op, state) {
				next.Regs[15] = decoded.Imm
			} else {
				next.Regs[15] = pc + 2
			}
			break
		}
		next = execALU(state, next, decoded)
	}

	return next, nil
}

func readKeyboard(in *bufio.Reader) (uint8, error) {
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return 0, err
	}
	if len(line) == 0 {
		return 0, nil
	}
	return line[0], nil
}

func branchTaken(op isa.OpCode, s State) bool {
	switch op {
	case isa.B:
		return true
	case isa.Bz:
		return s.Zero
	case isa.Bnz:
		return !s.Zero
	case isa.Bcs:
		return s.Carry
	case isa.Bcc:
		return !s.Carry
	case isa.Blt:
		return s.Overflow != s.Negative
	case isa.Bge:
		return s.Overflow == s.Negative
	default:
		return false
	}
}

// execALU performs one ALU opcode (add/sub/inc/dec/and/or/xor/shft),
// setting the flags and writing the result to the accumulator (or, for
// inc/dec, to the addressed register) exactly as the reference
// interpreter does: carry/negative read off bits 8 and 7 of the raw
// (unmasked) result, not recomputed from the masked value.
func execALU(state, next State, d isa.Decoded) State {
	val := int(state.Regs[d.Reg])
	acc := int(state.Acc)
	res := 0
	overflow := false

	switch d.Op {
	case isa.Add:
		res = acc + val
		overflow = (^(acc^val)&(acc^res))&128 != 0
	case isa.Inc:
		res = val + 1
		overflow = (^(val^1)&(val^res))&128 != 0
	case isa.Sub:
		res = acc + (256 - val)
		overflow = ((acc ^ val) & (acc ^ res) & 128) != 0
	case isa.Dec:
		res = val + 255
		overflow = ((val ^ 1) & (val ^ res) & 128) != 0
	case isa.Shft:
		if val > 127 {
			res = acc >> (256 - val)
		} else {
			res = acc << val
		}
	case isa.And:
		res = acc & val
	case isa.Or:
		res = acc | val
	case isa.Xor:
		res = acc ^ val
	}

	next.Overflow = overflow
	next.Zero = res&255 == 0
	next.Carry = res&256 != 0
	next.Negative = res&128 != 0

	if d.Op == isa.Inc || d.Op == isa.Dec {
		next.Regs[d.Reg] = uint8(res & 255)
	} else {
		next.Acc = uint8(res & 255)
	}
	return next
}
