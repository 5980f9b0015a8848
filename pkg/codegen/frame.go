package codegen

import "github.com/wcaarls/puc8a/pkg/isa"

// Frame generates the prologue, epilogue, call sequence and argument
// shuffling for one function, following the calling convention of §4.5:
// up to three scalar arguments in r11, r10, r9; the return value in r0;
// callee-save registers preserved only when the function actually
// touches them. Prologue and Epilogue build their instructions into a
// private buffer rather than ctx directly, because which callee-saved
// registers need preserving is only known once the body has been fully
// selected (and has therefore finished allocating registers out of
// ctx); Compile stitches the buffers around the body in the right order.
type Frame struct {
	Name      string
	StackSize int
	ctx       *Context
}

// NewFrame creates a frame generator for one function, collaborating
// with ctx for register-use tracking and (via Call) direct emission.
func NewFrame(ctx *Context, name string, stackSize int) *Frame {
	return &Frame{Name: name, StackSize: stackSize, ctx: ctx}
}

// MarkUsed records that reg holds a live value the body depends on, so
// Prologue/Epilogue know whether it needs callee-saving.
func (f *Frame) MarkUsed(reg isa.Register) {
	f.ctx.MarkUsed(reg)
}

func (f *Frame) calleeSaved() []isa.Register {
	var regs []isa.Register
	for _, r := range isa.CalleeSave {
		if f.ctx.IsUsed(r) {
			regs = append(regs, r)
		}
	}
	return regs
}

// buffer is a standalone instruction sink Prologue/Epilogue build into,
// independent of ctx's own growing stream.
type buffer struct {
	instrs []isa.Instruction
}

func (b *buffer) emit(i isa.Instruction) {
	b.instrs = append(b.instrs, i)
}

func (b *buffer) push(reg isa.Register) {
	b.emit(isa.Instruction{Op: isa.Get, Reg: reg})
	b.emit(isa.Instruction{Op: isa.Sta, Reg: isa.SP})
	b.emit(isa.Instruction{Op: isa.Dec, Reg: isa.SP})
}

func (b *buffer) pop(reg isa.Register) {
	b.emit(isa.Instruction{Op: isa.Inc, Reg: isa.SP})
	b.emit(isa.Instruction{Op: isa.Lda, Reg: isa.SP})
	b.emit(isa.Instruction{Op: isa.Set, Reg: reg})
}

func (b *buffer) move(dst, src isa.Register) {
	b.emit(isa.Instruction{Op: isa.Mov, Reg: dst, Src: src})
}

// Push emits, directly into ctx, the three-instruction sequence that
// stores reg at [sp] and decrements sp, growing the stack downward.
func (f *Frame) Push(reg isa.Register) {
	f.ctx.Emit(isa.Instruction{Op: isa.Get, Reg: reg})
	f.ctx.Emit(isa.Instruction{Op: isa.Sta, Reg: isa.SP})
	f.ctx.Emit(isa.Instruction{Op: isa.Dec, Reg: isa.SP})
}

// Pop emits, directly into ctx, the inverse of Push.
func (f *Frame) Pop(reg isa.Register) {
	f.ctx.Emit(isa.Instruction{Op: isa.Inc, Reg: isa.SP})
	f.ctx.Emit(isa.Instruction{Op: isa.Lda, Reg: isa.SP})
	f.ctx.Emit(isa.Instruction{Op: isa.Set, Reg: reg})
}

// Move emits, directly into ctx, a pseudo mov; the assembler lowers it
// to get/set before encoding.
func (f *Frame) Move(dst, src isa.Register) {
	f.ctx.Emit(isa.Instruction{Op: isa.Mov, Reg: dst, Src: src})
}

// Prologue builds the function's entry label, callee-save pushes, and
// (if the function has a local frame) the fp setup and stack
// allocation, one dec per byte — the architecture has no add-immediate
// to the stack pointer. Call only after the body has been selected, so
// calleeSaved reflects every register the body actually touched.
func (f *Frame) Prologue() []isa.Instruction {
	var buf buffer
	buf.emit(isa.Instruction{Op: isa.LabelDef, Label: f.Name})

	for _, reg := range f.calleeSaved() {
		buf.push(reg)
	}

	if f.StackSize > 0 {
		buf.push(isa.FP)
		buf.move(isa.FP, isa.SP)
		for i := 0; i < f.StackSize; i++ {
			buf.emit(isa.Instruction{Op: isa.Dec, Reg: isa.SP})
		}
	}
	return buf.instrs
}

// Epilogue builds the inverse of Prologue plus the final return: pop
// pc. A leaf function with no locals and no callee-saved registers in
// use therefore lowers to exactly "label: ; pop pc".
func (f *Frame) Epilogue() []isa.Instruction {
	var buf buffer
	if f.StackSize > 0 {
		for i := 0; i < f.StackSize; i++ {
			buf.emit(isa.Instruction{Op: isa.Inc, Reg: isa.SP})
		}
		buf.pop(isa.FP)
	}

	saved := f.calleeSaved()
	for i := len(saved) - 1; i >= 0; i-- {
		buf.pop(saved[i])
	}

	buf.pop(isa.PC)
	return buf.instrs
}

// Call emits, directly into ctx, a call to label: passing args (at most
// three, all register-width scalars), synthesizing the return address,
// transferring control, and optionally reading a return value into rv.
// The return address is computed at runtime: acc holds pc+6 (the offset
// past this six-word sequence) when it is pushed, then ldi loads the
// callee's address into pc to transfer control.
func (f *Frame) Call(label string, args []isa.Register, rv *isa.Register) error {
	if len(args) > len(isa.ArgRegs) {
		return &UnsupportedOperationError{Op: "call", Why: "more than three arguments"}
	}
	for i, arg := range args {
		f.Move(isa.ArgRegs[i], arg)
	}

	f.ctx.Emit(isa.Instruction{Op: isa.LdiC, Imm: 6})
	f.ctx.Emit(isa.Instruction{Op: isa.Add, Reg: isa.PC})
	f.ctx.Emit(isa.Instruction{Op: isa.Sta, Reg: isa.SP})
	f.ctx.Emit(isa.Instruction{Op: isa.Dec, Reg: isa.SP})
	f.ctx.Emit(isa.Instruction{Op: isa.LdiL, Label: label})
	f.ctx.Emit(isa.Instruction{Op: isa.Set, Reg: isa.PC})

	if rv != nil {
		f.Move(*rv, isa.RV)
	}
	return nil
}

// FunctionEnter builds the moves that copy incoming argument registers
// into the pseudo-registers the function body expects to find them in,
// and marks those destinations used so Prologue preserves them if they
// alias a callee-saved register.
func (f *Frame) FunctionEnter(args []isa.Register) ([]isa.Instruction, error) {
	if len(args) > len(isa.ArgRegs) {
		return nil, &UnsupportedOperationError{Op: "function", Why: "more than three parameters"}
	}
	var buf buffer
	for i, dst := range args {
		buf.move(dst, isa.ArgRegs[i])
		f.MarkUsed(dst)
	}
	return buf.instrs, nil
}

// FunctionExit builds the move that places the function's result into
// the return-value register ahead of Epilogue.
func (f *Frame) FunctionExit(rv *isa.Register) []isa.Instruction {
	if rv == nil {
		return nil
	}
	var buf buffer
	buf.move(isa.RV, *rv)
	return buf.instrs
}
