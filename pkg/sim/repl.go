package sim

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wcaarls/puc8a/pkg/isa"
	"github.com/wcaarls/puc8a/pkg/program"
)

// REPL drives the interactive step/continue/breakpoint/inspect loop a
// user runs a loaded program under: `n` (or blank) single-steps, `c`
// free-runs until a breakpoint or a pc that stops advancing, `b <addr>`
// toggles a breakpoint, `p` prints the full state, `rN` / `rN = v`
// inspect or patch a register, `[addr]` / `[addr] = v` inspect or patch
// memory, and `q` exits.
type REPL struct {
	prog        *program.Program
	state       State
	io          IO
	breakpoints map[uint8]bool
	out         io.Writer
	cmds        *bufio.Scanner
}

// NewREPL creates a REPL over prog, reading commands from cmdIn and
// routing both command prompts and the simulated program's own
// character output to out. keyboardIn feeds the simulated lda-from-port-2
// trap, independent of the command stream.
func NewREPL(prog *program.Program, cmdIn io.Reader, keyboardIn io.Reader, out io.Writer) *REPL {
	return &REPL{
		prog:        prog,
		state:       loadData(prog),
		io:          NewIO(keyboardIn, out),
		breakpoints: map[uint8]bool{},
		out:         out,
		cmds:        bufio.NewScanner(cmdIn),
	}
}

// Help prints the command summary.
func (r *REPL) Help() {
	fmt.Fprint(r.out, `Available commands:
   h       This help.
   n       Advance to next instruction.
   b a     Set or clear breakpoint at address a.
   c       Execute continuously until halted.
   p       Print current state.
   q       Exit simulator.
   rx      Print contents of register x.
   rx = y  Set register x to value y.
   [a]     Print contents of memory address a.
   [a] = y Set memory address a to value y.
`)
}

// Run drives the loop until the user quits or the command stream ends.
func (r *REPL) Run() error {
	quiet := false
	for {
		pc := r.state.PC()
		word0 := r.prog.Code[int(pc)%len(r.prog.Code)]
		word1 := r.prog.Code[(int(pc)+1)%len(r.prog.Code)]

		if quiet {
			next, err := Step(r.state, r.prog, r.io)
			if err != nil {
				return err
			}
			if next.PC() == pc || r.breakpoints[next.PC()] {
				quiet = false
			}
			r.state = next
			continue
		}

		fmt.Fprint(r.out, formatFetch(pc, word0, word1))
		fmt.Fprint(r.out, ">> ")
		if !r.cmds.Scan() {
			return r.cmds.Err()
		}
		cmd := strings.TrimSpace(r.cmds.Text())

		next := r.state
		switch {
		case cmd == "" || cmd == "n":
			stepped, err := Step(r.state, r.prog, r.io)
			if err != nil {
				return err
			}
			next = stepped
		case cmd == "c":
			quiet = true
		case cmd == "h":
			r.Help()
			continue
		case cmd == "p":
			fmt.Fprintln(r.out, r.state.String())
			continue
		case cmd == "q":
			return nil
		case strings.HasPrefix(cmd, "b"):
			r.toggleBreakpoint(cmd)
			continue
		case strings.HasPrefix(cmd, "r"):
			r.handleRegister(cmd, &next)
		case strings.HasPrefix(cmd, "["):
			r.handleMemory(cmd, &next)
		default:
			r.Help()
			continue
		}

		if diff := r.state.Diff(next); diff != "" {
			fmt.Fprintln(r.out, "     "+diff)
		}
		r.state = next
	}
}

func formatFetch(pc uint8, word0, word1 uint16) string {
	t := isa.Token(word0)
	opcode := t.Opcode()
	regField := t.Reg()
	decoded, err := isa.Decode(word0, word1)
	if err != nil {
		return fmt.Sprintf("%3d: %04b %04b (unknown opcode)\n", pc, opcode, regField)
	}
	if decoded.TwoWord {
		return fmt.Sprintf("%3d: %04b %04b %016b (%s)\n", pc, opcode, regField, word1, disasm(decoded))
	}
	return fmt.Sprintf("%3d: %04b %04b (%s)\n", pc, opcode, regField, disasm(decoded))
}

func disasm(d isa.Decoded) string {
	info := isa.Catalog[d.Op]
	switch {
	case d.Op == isa.LdiC:
		return fmt.Sprintf("%s %d", info.Mnemonic, d.Imm)
	case isa.IsBranch(d.Op):
		return fmt.Sprintf("%s %d", info.Mnemonic, d.Imm)
	case info.Addr:
		return fmt.Sprintf("%s [%s]", info.Mnemonic, d.Reg)
	default:
		return fmt.Sprintf("%s %s", info.Mnemonic, d.Reg)
	}
}

func (r *REPL) toggleBreakpoint(cmd string) {
	rest := strings.TrimSpace(cmd[1:])
	v, err := strconv.ParseInt(strings.TrimSpace(rest), 0, 16)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	addr := uint8(v)
	if r.breakpoints[addr] {
		delete(r.breakpoints, addr)
	} else {
		r.breakpoints[addr] = true
	}
	fmt.Fprintf(r.out, "breakpoints: %v\n", breakpointList(r.breakpoints))
}

func breakpointList(m map[uint8]bool) []uint8 {
	var out []uint8
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (r *REPL) handleRegister(cmd string, next *State) {
	parts := strings.SplitN(cmd, "=", 2)
	name := strings.TrimSpace(parts[0])
	if len(name) < 2 {
		r.Help()
		return
	}
	idx, err := strconv.Atoi(name[1:])
	if err != nil || idx < 0 || idx > 15 {
		fmt.Fprintln(r.out, "invalid register", name)
		return
	}
	if len(parts) == 1 {
		fmt.Fprintf(r.out, "r%d = %d\n", idx, r.state.Regs[idx])
		return
	}
	v, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 0, 16)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	next.Regs[idx] = uint8(v & 255)
}

func (r *REPL) handleMemory(cmd string, next *State) {
	parts := strings.SplitN(cmd, "=", 2)
	addrPart := strings.TrimSpace(parts[0])
	if len(addrPart) < 2 || addrPart[0] != '[' || addrPart[len(addrPart)-1] != ']' {
		r.Help()
		return
	}
	idx, err := strconv.Atoi(strings.TrimSpace(addrPart[1 : len(addrPart)-1]))
	if err != nil || idx < 0 || idx > 255 {
		fmt.Fprintln(r.out, "invalid address", addrPart)
		return
	}
	if len(parts) == 1 {
		fmt.Fprintf(r.out, "[%d] = %d\n", idx, r.state.Mem[idx])
		return
	}
	v, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 0, 16)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	next.Mem[idx] = uint8(v & 255)
}

// loadData builds the reset machine state with prog.Data copied into
// data memory, as the reference interpreter does before its first fetch.
func loadData(prog *program.Program) State {
	state := NewState()
	for i, b := range prog.Data {
		if i >= len(state.Mem) {
			break
		}
		state.Mem[i] = b
	}
	return state
}

// Run executes prog headlessly for exactly steps instructions (a fixed
// step budget; it does not stop early when pc stops advancing) and
// returns the final state.
func Run(prog *program.Program, steps int, iow IO) (State, error) {
	state := loadData(prog)
	for i := 0; i < steps; i++ {
		next, err := Step(state, prog, iow)
		if err != nil {
			return state, err
		}
		state = next
	}
	return state, nil
}
