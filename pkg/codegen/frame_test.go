package codegen

import (
	"testing"

	"github.com/wcaarls/puc8a/pkg/isa"
)

func TestLeafFunctionPrologueEpilogue(t *testing.T) {
	ctx := NewContext()
	frame := NewFrame(ctx, "leaf", 0)
	prologue := frame.Prologue()
	epilogue := frame.Epilogue()

	if len(prologue) != 1 || prologue[0] != (isa.Instruction{Op: isa.LabelDef, Label: "leaf"}) {
		t.Errorf("leaf prologue = %v, want just the entry label", prologue)
	}
	if len(epilogue) != 3 {
		t.Fatalf("leaf epilogue = %v, want exactly pop pc (3 instructions)", epilogue)
	}
	if epilogue[2] != (isa.Instruction{Op: isa.Set, Reg: isa.PC}) {
		t.Errorf("epilogue does not end with set pc: %v", epilogue)
	}
}

func TestPrologueOnlySavesUsedCalleeRegisters(t *testing.T) {
	ctx := NewContext()
	frame := NewFrame(ctx, "f", 0)
	ctx.MarkUsed(isa.R6) // callee-save, touched by the body
	ctx.MarkUsed(isa.R0) // caller-save, should not be preserved

	prologue := frame.Prologue()
	pushCount := 0
	for _, ins := range prologue {
		if ins.Op == isa.Get && ins.Reg == isa.R6 {
			pushCount++
		}
		if ins.Op == isa.Get && ins.Reg == isa.R0 {
			t.Errorf("caller-save r0 should not be pushed in prologue")
		}
	}
	if pushCount != 1 {
		t.Errorf("expected r6 to be pushed exactly once, got %d", pushCount)
	}
}

func TestPrologueEpilogueStackFrame(t *testing.T) {
	ctx := NewContext()
	frame := NewFrame(ctx, "withlocals", 3)
	prologue := frame.Prologue()

	decCount := 0
	sawFPPush, sawFPMove := false, false
	for _, ins := range prologue {
		if ins.Op == isa.Dec && ins.Reg == isa.SP {
			decCount++
		}
		if ins.Op == isa.Get && ins.Reg == isa.FP {
			sawFPPush = true
		}
		if ins.Op == isa.Mov && ins.Reg == isa.FP && ins.Src == isa.SP {
			sawFPMove = true
		}
	}
	// One dec from the saved-fp push plus three stack-allocating decs.
	if decCount != 4 {
		t.Errorf("expected 4 sp decs (fp push + 3 stack-allocating), got %d", decCount)
	}
	if !sawFPPush {
		t.Error("expected saved-fp push in prologue")
	}
	if !sawFPMove {
		t.Error("expected fp <- sp move in prologue")
	}

	epilogue := frame.Epilogue()
	incCount := 0
	for _, ins := range epilogue {
		if ins.Op == isa.Inc && ins.Reg == isa.SP {
			incCount++
		}
	}
	// Three stack-deallocating incs, then one each from pop fp and pop pc.
	if incCount != 5 {
		t.Errorf("expected 5 sp incs (3 stack-deallocating + pop fp + pop pc), got %d", incCount)
	}
}

func TestFunctionEnterMarksArgsUsed(t *testing.T) {
	ctx := NewContext()
	frame := NewFrame(ctx, "f", 0)
	enter, err := frame.FunctionEnter([]isa.Register{isa.R0, isa.R1})
	if err != nil {
		t.Fatal(err)
	}
	if len(enter) != 2 {
		t.Fatalf("got %d moves, want 2", len(enter))
	}
	if enter[0] != (isa.Instruction{Op: isa.Mov, Reg: isa.R0, Src: isa.ArgRegs[0]}) {
		t.Errorf("enter[0] = %v", enter[0])
	}
	if !ctx.IsUsed(isa.R0) || !ctx.IsUsed(isa.R1) {
		t.Error("FunctionEnter should mark its destination registers used")
	}
}

func TestFunctionEnterTooManyArgs(t *testing.T) {
	ctx := NewContext()
	frame := NewFrame(ctx, "f", 0)
	_, err := frame.FunctionEnter([]isa.Register{isa.R0, isa.R1, isa.R2, isa.R3})
	if err == nil {
		t.Error("expected error for more than three parameters")
	}
}

func TestFunctionExitNilWhenVoid(t *testing.T) {
	ctx := NewContext()
	frame := NewFrame(ctx, "f", 0)
	if exit := frame.FunctionExit(nil); exit != nil {
		t.Errorf("void function exit = %v, want nil", exit)
	}
}

func TestFunctionExitMovesResultToRV(t *testing.T) {
	ctx := NewContext()
	frame := NewFrame(ctx, "f", 0)
	rv := isa.R3
	exit := frame.FunctionExit(&rv)
	if len(exit) != 1 || exit[0] != (isa.Instruction{Op: isa.Mov, Reg: isa.RV, Src: isa.R3}) {
		t.Errorf("exit = %v, want single move into rv", exit)
	}
}

func TestCallPlacesArgsAndSynthesizesReturn(t *testing.T) {
	ctx := NewContext()
	frame := NewFrame(ctx, "caller", 0)
	rv := isa.R0
	err := frame.Call("callee", []isa.Register{isa.R0, isa.R1, isa.R2}, &rv)
	if err != nil {
		t.Fatal(err)
	}
	instrs := ctx.Instructions()

	wantArgMoves := []isa.Instruction{
		{Op: isa.Mov, Reg: isa.ArgRegs[0], Src: isa.R0},
		{Op: isa.Mov, Reg: isa.ArgRegs[1], Src: isa.R1},
		{Op: isa.Mov, Reg: isa.ArgRegs[2], Src: isa.R2},
	}
	for i, want := range wantArgMoves {
		if instrs[i] != want {
			t.Errorf("instrs[%d] = %v, want %v", i, instrs[i], want)
		}
	}
	if instrs[3] != (isa.Instruction{Op: isa.LdiC, Imm: 6}) {
		t.Errorf("return-address base = %v, want ldi 6", instrs[3])
	}
	if instrs[7] != (isa.Instruction{Op: isa.LdiL, Label: "callee"}) {
		t.Errorf("call target = %v, want ldi @callee", instrs[7])
	}
	last := instrs[len(instrs)-1]
	if last != (isa.Instruction{Op: isa.Mov, Reg: isa.R0, Src: isa.RV}) {
		t.Errorf("last instr = %v, want return-value move", last)
	}
}

func TestCallTooManyArgs(t *testing.T) {
	ctx := NewContext()
	frame := NewFrame(ctx, "caller", 0)
	err := frame.Call("callee", []isa.Register{isa.R0, isa.R1, isa.R2, isa.R3}, nil)
	if err == nil {
		t.Error("expected error for more than three call arguments")
	}
}
