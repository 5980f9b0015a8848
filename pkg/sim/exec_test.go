package sim

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wcaarls/puc8a/pkg/isa"
	"github.com/wcaarls/puc8a/pkg/program"
)

func encodeOrFatal(t *testing.T, ins isa.Instruction) (uint16, uint16) {
	t.Helper()
	words, err := isa.Encode(ins)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) == 1 {
		return words[0], 0
	}
	return words[0], words[1]
}

func TestStepLdiSetsAccAndAdvancesTwo(t *testing.T) {
	w0, w1 := encodeOrFatal(t, isa.Instruction{Op: isa.LdiC, Imm: 42})
	prog := &program.Program{Code: []uint16{w0, w1}}
	state := NewState()
	next, err := Step(state, prog, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if next.Acc != 42 {
		t.Errorf("acc = %d, want 42", next.Acc)
	}
	if next.PC() != 2 {
		t.Errorf("pc = %d, want 2", next.PC())
	}
}

func TestStepGetSet(t *testing.T) {
	w0, _ := encodeOrFatal(t, isa.Instruction{Op: isa.Get, Reg: isa.R3})
	prog := &program.Program{Code: []uint16{w0}}
	state := NewState()
	state.Regs[3] = 77
	next, err := Step(state, prog, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if next.Acc != 77 {
		t.Errorf("acc = %d, want 77", next.Acc)
	}
	if next.PC() != 1 {
		t.Errorf("pc = %d, want 1", next.PC())
	}
}

func TestStepAddOverflowAndCarry(t *testing.T) {
	w0, _ := encodeOrFatal(t, isa.Instruction{Op: isa.Add, Reg: isa.R0})
	prog := &program.Program{Code: []uint16{w0}}
	state := NewState()
	state.Acc = 200
	state.Regs[0] = 100
	next, err := Step(state, prog, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if next.Acc != 44 { // 300 mod 256
		t.Errorf("acc = %d, want 44", next.Acc)
	}
	if !next.Carry {
		t.Error("expected carry set for 200+100")
	}
	if next.Overflow {
		t.Error("200+100: operands differ in sign (bit 7), signed overflow should not be set")
	}
	if next.Negative {
		t.Error("44 has bit 7 clear, negative should not be set")
	}
}

func TestStepAddSignedOverflow(t *testing.T) {
	w0, _ := encodeOrFatal(t, isa.Instruction{Op: isa.Add, Reg: isa.R0})
	prog := &program.Program{Code: []uint16{w0}}
	state := NewState()
	state.Acc = 100
	state.Regs[0] = 100
	next, err := Step(state, prog, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if next.Acc != 200 {
		t.Errorf("acc = %d, want 200", next.Acc)
	}
	if !next.Overflow {
		t.Error("100+100 should signed-overflow (both positive, result negative)")
	}
	if next.Carry {
		t.Error("100+100 should not carry (raw sum < 256)")
	}
	if !next.Negative {
		t.Error("200 has bit 7 set, negative should be set")
	}
}

func TestStepSubBorrowClearsCarry(t *testing.T) {
	w0, _ := encodeOrFatal(t, isa.Instruction{Op: isa.Sub, Reg: isa.R0})
	prog := &program.Program{Code: []uint16{w0}}
	state := NewState()
	state.Acc = 5
	state.Regs[0] = 10
	next, err := Step(state, prog, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if next.Acc != 251 { // 5 - 10 mod 256
		t.Errorf("acc = %d, want 251", next.Acc)
	}
	if next.Carry {
		t.Error("5-10 (acc + (256-10) = 251 < 256): no raw carry bit, i.e. a borrow occurred")
	}
	if !next.Negative {
		t.Error("251 has bit 7 set, negative should be set")
	}
}

func TestStepSubNoBorrowSetsCarry(t *testing.T) {
	w0, _ := encodeOrFatal(t, isa.Instruction{Op: isa.Sub, Reg: isa.R0})
	prog := &program.Program{Code: []uint16{w0}}
	state := NewState()
	state.Acc = 10
	state.Regs[0] = 5
	next, err := Step(state, prog, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if next.Acc != 5 {
		t.Errorf("acc = %d, want 5", next.Acc)
	}
	if !next.Carry {
		t.Error("10-5 (acc + (256-5) = 261 >= 256): raw carry bit set, i.e. no borrow")
	}
	if next.Negative {
		t.Error("5 has bit 7 clear, negative should not be set")
	}
}

// TestStepSubNegativeResult mirrors the sub scenario where acc < reg and
// the raw result's high bit ends up set: ldi 100; set r0; ldi 50; sub r0.
func TestStepSubNegativeResult(t *testing.T) {
	w0, _ := encodeOrFatal(t, isa.Instruction{Op: isa.Sub, Reg: isa.R0})
	prog := &program.Program{Code: []uint16{w0}}
	state := NewState()
	state.Acc = 50
	state.Regs[0] = 100
	next, err := Step(state, prog, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if next.Acc != 206 { // 50 + (256-100)
		t.Errorf("acc = %d, want 206", next.Acc)
	}
	if next.Carry {
		t.Error("50-100 (acc + (256-100) = 206 < 256): no raw carry bit, i.e. a borrow occurred")
	}
	if !next.Negative {
		t.Error("206 has bit 7 set, negative should be set")
	}
}

func TestStepZeroFlag(t *testing.T) {
	w0, _ := encodeOrFatal(t, isa.Instruction{Op: isa.Sub, Reg: isa.R0})
	prog := &program.Program{Code: []uint16{w0}}
	state := NewState()
	state.Acc = 10
	state.Regs[0] = 10
	next, err := Step(state, prog, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if !next.Zero {
		t.Error("10-10 should set the zero flag")
	}
}

func TestStepIncDecWriteToRegister(t *testing.T) {
	w0, _ := encodeOrFatal(t, isa.Instruction{Op: isa.Inc, Reg: isa.R5})
	prog := &program.Program{Code: []uint16{w0}}
	state := NewState()
	state.Regs[5] = 9
	next, err := Step(state, prog, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if next.Regs[5] != 10 {
		t.Errorf("r5 = %d, want 10", next.Regs[5])
	}
	if next.Acc != state.Acc {
		t.Error("inc should not touch acc")
	}
}

func TestStepShiftLeftAndRight(t *testing.T) {
	w0, _ := encodeOrFatal(t, isa.Instruction{Op: isa.Shft, Reg: isa.R0})
	prog := &program.Program{Code: []uint16{w0}}

	state := NewState()
	state.Acc = 1
	state.Regs[0] = 3 // left shift by 3
	next, err := Step(state, prog, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if next.Acc != 8 {
		t.Errorf("1<<3 = %d, want 8", next.Acc)
	}

	state2 := NewState()
	state2.Acc = 8
	state2.Regs[0] = 253 // 256-3: right shift by 3
	next2, err := Step(state2, prog, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if next2.Acc != 1 {
		t.Errorf("8>>3 = %d, want 1", next2.Acc)
	}
}

func TestStepBranchTakenAndNotTaken(t *testing.T) {
	w0, w1 := encodeOrFatal(t, isa.Instruction{Op: isa.Bz, Imm: 20})
	prog := &program.Program{Code: []uint16{w0, w1}}

	state := NewState()
	state.Zero = true
	next, err := Step(state, prog, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if next.PC() != 20 {
		t.Errorf("taken bz: pc = %d, want 20", next.PC())
	}

	state2 := NewState()
	state2.Zero = false
	next2, err := Step(state2, prog, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if next2.PC() != 2 {
		t.Errorf("not-taken bz: pc = %d, want 2", next2.PC())
	}
}

func TestStepLdaKeyboardTrap(t *testing.T) {
	w0, _ := encodeOrFatal(t, isa.Instruction{Op: isa.Lda, Reg: isa.R0})
	prog := &program.Program{Code: []uint16{w0}}
	state := NewState()
	state.Regs[0] = AddrKeyboard
	next, err := Step(state, prog, NewIO(strings.NewReader("A\n"), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if next.Acc != 'A' {
		t.Errorf("acc = %d, want %d ('A')", next.Acc, 'A')
	}
}

func TestStepStaCharOutTrap(t *testing.T) {
	w0, _ := encodeOrFatal(t, isa.Instruction{Op: isa.Sta, Reg: isa.R0})
	prog := &program.Program{Code: []uint16{w0}}
	state := NewState()
	state.Regs[0] = AddrCharOut
	state.Acc = 'x'
	var out bytes.Buffer
	_, err := Step(state, prog, NewIO(strings.NewReader(""), &out))
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "x" {
		t.Errorf("output = %q, want \"x\"", out.String())
	}
}

func TestStepOrdinaryStaWritesMemory(t *testing.T) {
	w0, _ := encodeOrFatal(t, isa.Instruction{Op: isa.Sta, Reg: isa.R0})
	prog := &program.Program{Code: []uint16{w0}}
	state := NewState()
	state.Regs[0] = 50
	state.Acc = 9
	next, err := Step(state, prog, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if next.Mem[50] != 9 {
		t.Errorf("mem[50] = %d, want 9", next.Mem[50])
	}
}

func TestRunHeadlessAdvancesSteps(t *testing.T) {
	w0, w1 := encodeOrFatal(t, isa.Instruction{Op: isa.LdiC, Imm: 5})
	w2, _ := encodeOrFatal(t, isa.Instruction{Op: isa.Set, Reg: isa.R0})
	prog := &program.Program{Code: []uint16{w0, w1, w2}}
	final, err := Run(prog, 2, NewIO(strings.NewReader(""), &bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	if final.Regs[0] != 5 {
		t.Errorf("r0 = %d, want 5", final.Regs[0])
	}
}
