// Package assemble turns PUC8a assembly text into an encoded program: a
// small line-oriented parser restricted to this project's own mnemonic
// syntax (modelled on the catalog-driven text parser a superoptimizer's
// CLI uses to read back its own disassembly — not a general-purpose
// assembler-parser framework), followed by two-pass relocation
// resolution against the instruction catalog in pkg/isa.
package assemble

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/wcaarls/puc8a/pkg/isa"
)

// ParseError reports a line that failed to parse.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("assemble: line %d: %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseText parses one assembly source file into a raw instruction
// stream, still containing LabelDef markers and any unresolved label
// operands. Assemble (in assemble.go) resolves and encodes it.
func ParseText(src string) ([]isa.Instruction, error) {
	var out []isa.Instruction
	scanner := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := raw
		if idx := strings.IndexByte(line, ';'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, ":") {
			name := strings.TrimSpace(strings.TrimSuffix(line, ":"))
			if name == "" {
				return nil, &ParseError{Line: lineNo, Text: raw, Err: fmt.Errorf("empty label")}
			}
			out = append(out, isa.Instruction{Op: isa.LabelDef, Label: name})
			continue
		}
		instr, err := parseLine(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: raw, Err: err}
		}
		out = append(out, instr)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseLine(line string) (isa.Instruction, error) {
	fields := strings.Fields(line)
	mnem := strings.ToLower(fields[0])
	operand := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch mnem {
	case "mov":
		return parseMov(operand)
	case "ldi":
		return parseLdi(operand)
	}

	for op := isa.OpCode(0); op < isa.OpCodeCount; op++ {
		info := &isa.Catalog[op]
		if op == isa.Mov || op == isa.LdiC || op == isa.LdiL {
			continue
		}
		if info.Mnemonic != mnem {
			continue
		}
		switch {
		case isa.IsBranch(op):
			return parseBranch(op, operand)
		case info.Addr:
			return parseAddr(op, operand)
		case info.HasReg:
			return parseReg(op, operand)
		default:
			if operand != "" {
				return isa.Instruction{}, fmt.Errorf("%s takes no operand", mnem)
			}
			return isa.Instruction{Op: op}, nil
		}
	}
	return isa.Instruction{}, fmt.Errorf("unknown mnemonic %q", mnem)
}

func parseLdi(operand string) (isa.Instruction, error) {
	if strings.HasPrefix(operand, "@") {
		return isa.Instruction{Op: isa.LdiL, Label: operand[1:]}, nil
	}
	v, err := parseImmediate(operand)
	if err != nil {
		return isa.Instruction{}, err
	}
	return isa.Instruction{Op: isa.LdiC, Imm: v}, nil
}

func parseBranch(op isa.OpCode, operand string) (isa.Instruction, error) {
	if strings.HasPrefix(operand, "@") {
		return isa.Instruction{Op: op, Label: operand[1:]}, nil
	}
	v, err := parseImmediate(operand)
	if err != nil {
		return isa.Instruction{}, err
	}
	return isa.Instruction{Op: op, Imm: v}, nil
}

func parseAddr(op isa.OpCode, operand string) (isa.Instruction, error) {
	if !strings.HasPrefix(operand, "[") || !strings.HasSuffix(operand, "]") {
		return isa.Instruction{}, fmt.Errorf("%s expects [reg]", isa.Catalog[op].Mnemonic)
	}
	r, err := isa.ParseRegister(strings.TrimSpace(operand[1 : len(operand)-1]))
	if err != nil {
		return isa.Instruction{}, err
	}
	return isa.Instruction{Op: op, Reg: r}, nil
}

func parseReg(op isa.OpCode, operand string) (isa.Instruction, error) {
	r, err := isa.ParseRegister(operand)
	if err != nil {
		return isa.Instruction{}, err
	}
	return isa.Instruction{Op: op, Reg: r}, nil
}

func parseMov(operand string) (isa.Instruction, error) {
	parts := strings.SplitN(operand, ",", 2)
	if len(parts) != 2 {
		return isa.Instruction{}, fmt.Errorf("mov expects \"dst, src\"")
	}
	dst, err := isa.ParseRegister(strings.TrimSpace(parts[0]))
	if err != nil {
		return isa.Instruction{}, err
	}
	src, err := isa.ParseRegister(strings.TrimSpace(parts[1]))
	if err != nil {
		return isa.Instruction{}, err
	}
	return isa.Instruction{Op: isa.Mov, Reg: dst, Src: src}, nil
}

func parseImmediate(s string) (uint8, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	v, err := strconv.ParseInt(s, base, 16)
	if err != nil {
		return 0, fmt.Errorf("bad immediate %q: %w", s, err)
	}
	return uint8(((v % 256) + 256) % 256), nil
}
