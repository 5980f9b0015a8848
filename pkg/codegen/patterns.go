package codegen

import (
	"math/bits"

	"github.com/wcaarls/puc8a/pkg/ir"
	"github.com/wcaarls/puc8a/pkg/isa"
)

// isConstOne reports whether a tree node is a CONST leaf whose value is 1,
// the shape guard for the ADD/SUB-by-one specializations.
func isConstOne(n *ir.Node) bool {
	return (n.Op == ir.ConstI8 || n.Op == ir.ConstU8) && n.IntValue() == 1
}

func isPowerOfTwoOrZero(v int) bool {
	if v == 0 {
		return true
	}
	return v > 0 && bits.OnesCount(uint(v)) == 1
}

func init() {
	registerUnarySpecializations()
	registerBinaryALU()
	registerShifts()
	registerMultiply()
	registerLoadsStores()
	registerConstsAndLabels()
	registerMoveRegCast()
	registerJumps()
}

// registerBinaryALU wires ADD/SUB/AND/OR/XOR(reg, reg) -> get c0 ; op c1 ;
// set d. The "add/sub by one" specializations below are registered
// first, so they win the guard race for ADD(x, CONST 1).
func registerBinaryALU() {
	binALU := func(emit isa.OpCode) Emitter {
		return func(ctx *Context, sel *Selector, tree *ir.Node) (isa.Register, error) {
			c0, err := sel.Select(tree.Child(0))
			if err != nil {
				return 0, err
			}
			c1, err := sel.Select(tree.Child(1))
			if err != nil {
				return 0, err
			}
			d := ctx.NewReg()
			ctx.Emit(isa.Instruction{Op: isa.Get, Reg: c0})
			ctx.Emit(isa.Instruction{Op: emit, Reg: c1})
			ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
			return d, nil
		}
	}
	for _, op := range []ir.Op{ir.AddI8, ir.AddU8} {
		RegisterPattern(op, Pattern{Emit: binALU(isa.Add)})
	}
	for _, op := range []ir.Op{ir.SubI8, ir.SubU8} {
		RegisterPattern(op, Pattern{Emit: binALU(isa.Sub)})
	}
	for _, op := range []ir.Op{ir.AndI8, ir.AndU8} {
		RegisterPattern(op, Pattern{Emit: binALU(isa.And)})
	}
	for _, op := range []ir.Op{ir.OrI8, ir.OrU8} {
		RegisterPattern(op, Pattern{Emit: binALU(isa.Or)})
	}
	for _, op := range []ir.Op{ir.XorI8, ir.XorU8} {
		RegisterPattern(op, Pattern{Emit: binALU(isa.Xor)})
	}
}

// registerUnarySpecializations wires ADD(x,1)/SUB(x,1) -> inc/dec in
// place, and NEG/INV. The NEG and INV emitters below are the corrected
// forms of the source's pattern_neg/pattern_inv (see §9 Open Questions):
// the original referenced an undeclared `d`, leaving only `r` bound; here
// a single freshly allocated register is used consistently.
func registerUnarySpecializations() {
	incDec := func(incOp isa.OpCode) Emitter {
		return func(ctx *Context, sel *Selector, tree *ir.Node) (isa.Register, error) {
			c0, err := sel.Select(tree.Child(0))
			if err != nil {
				return 0, err
			}
			ctx.Emit(isa.Instruction{Op: incOp, Reg: c0})
			return c0, nil
		}
	}
	addcGuard := func(t *ir.Node) bool { return isConstOne(t.Child(1)) }
	for _, op := range []ir.Op{ir.AddI8, ir.AddU8} {
		RegisterPattern(op, Pattern{Guard: addcGuard, Cost: Cost{Size: 1, Cycles: 1, Energy: 1}, Emit: incDec(isa.Inc)})
	}
	for _, op := range []ir.Op{ir.SubI8, ir.SubU8} {
		RegisterPattern(op, Pattern{Guard: addcGuard, Cost: Cost{Size: 1, Cycles: 1, Energy: 1}, Emit: incDec(isa.Dec)})
	}

	neg := func(ctx *Context, sel *Selector, tree *ir.Node) (isa.Register, error) {
		c0, err := sel.Select(tree.Child(0))
		if err != nil {
			return 0, err
		}
		ctx.Emit(isa.Instruction{Op: isa.LdiC, Imm: 0})
		ctx.Emit(isa.Instruction{Op: isa.Sub, Reg: c0})
		d := ctx.NewReg()
		ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
		return d, nil
	}
	RegisterPattern(ir.NegI8, Pattern{Cost: Cost{Size: 2, Cycles: 2, Energy: 2}, Emit: neg})

	inv := func(ctx *Context, sel *Selector, tree *ir.Node) (isa.Register, error) {
		c0, err := sel.Select(tree.Child(0))
		if err != nil {
			return 0, err
		}
		ctx.Emit(isa.Instruction{Op: isa.LdiC, Imm: 255})
		ctx.Emit(isa.Instruction{Op: isa.Xor, Reg: c0})
		d := ctx.NewReg()
		ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
		return d, nil
	}
	RegisterPattern(ir.InvI8, Pattern{Cost: Cost{Size: 2, Cycles: 2, Energy: 2}, Emit: inv})
	RegisterPattern(ir.InvU8, Pattern{Cost: Cost{Size: 2, Cycles: 2, Energy: 2}, Emit: inv})
}

// registerShifts wires SHL/SHR(reg, CONST). shft takes the target
// register's value as a signed shift count: positive N shifts acc left
// by N; a count >=128 shifts right by (256-N). A right shift by N is
// therefore produced by loading 256-N into the count register before
// shft. The original pattern_shl guarded on `tree.value` (the SHL node
// itself never carries a value) instead of `tree[1].value` (the constant
// child); pattern_shr additionally wrote the nonsensical `-LdiC(N)`. Both
// are corrected here: the identity/positive-count check reads the
// constant child, and the right-shift count is built from ldi(256-N).
func registerShifts() {
	shiftGuard := func(t *ir.Node) bool {
		c := t.Child(1)
		return c.Op == ir.ConstI8 || c.Op == ir.ConstU8
	}
	emitShift := func(countImm int) Emitter {
		return func(ctx *Context, sel *Selector, tree *ir.Node) (isa.Register, error) {
			n := tree.Child(1).IntValue()
			c0, err := sel.Select(tree.Child(0))
			if err != nil {
				return 0, err
			}
			if n == 0 {
				return c0, nil
			}
			d := ctx.NewReg()
			imm := countImm
			if imm < 0 {
				imm = n
			}
			ctx.Emit(isa.Instruction{Op: isa.LdiC, Imm: uint8(imm)})
			ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
			ctx.Emit(isa.Instruction{Op: isa.Get, Reg: c0})
			ctx.Emit(isa.Instruction{Op: isa.Shft, Reg: d})
			ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
			return d, nil
		}
	}
	// emitShift(-1) means "use N verbatim" (left shift); the right-shift
	// variant needs 256-N computed per tree, so it gets its own closure.
	for _, op := range []ir.Op{ir.ShlI8, ir.ShlU8} {
		RegisterPattern(op, Pattern{Guard: shiftGuard, Emit: emitShift(-1)})
	}
	rightShift := func(ctx *Context, sel *Selector, tree *ir.Node) (isa.Register, error) {
		n := tree.Child(1).IntValue()
		c0, err := sel.Select(tree.Child(0))
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return c0, nil
		}
		d := ctx.NewReg()
		ctx.Emit(isa.Instruction{Op: isa.LdiC, Imm: uint8((256 - n) % 256)})
		ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
		ctx.Emit(isa.Instruction{Op: isa.Get, Reg: c0})
		ctx.Emit(isa.Instruction{Op: isa.Shft, Reg: d})
		ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
		return d, nil
	}
	for _, op := range []ir.Op{ir.ShrI8, ir.ShrU8} {
		RegisterPattern(op, Pattern{Guard: shiftGuard, Emit: rightShift})
	}
}

// registerMultiply wires MUL(reg, CONST), accepted only when the
// constant is 0 or a power of two (the architecture has no multiply
// instruction; anything else is an unsupported operation).
func registerMultiply() {
	guard := func(t *ir.Node) bool {
		c := t.Child(1)
		if c.Op != ir.ConstI8 && c.Op != ir.ConstU8 {
			return false
		}
		return isPowerOfTwoOrZero(c.IntValue())
	}
	emit := func(ctx *Context, sel *Selector, tree *ir.Node) (isa.Register, error) {
		n := tree.Child(1).IntValue()
		c0, err := sel.Select(tree.Child(0))
		if err != nil {
			return 0, err
		}
		if n == 0 {
			d := ctx.NewReg()
			ctx.Emit(isa.Instruction{Op: isa.LdiC, Imm: 0})
			ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
			return d, nil
		}
		if n == 1 {
			return c0, nil
		}
		k := bits.TrailingZeros(uint(n))
		d := ctx.NewReg()
		ctx.Emit(isa.Instruction{Op: isa.LdiC, Imm: uint8(k)})
		ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
		ctx.Emit(isa.Instruction{Op: isa.Get, Reg: c0})
		ctx.Emit(isa.Instruction{Op: isa.Shft, Reg: d})
		ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
		return d, nil
	}
	RegisterPattern(ir.MulU8, Pattern{Guard: guard, Emit: emit})
}

// registerLoadsStores wires STR(addr, val) and LDR(addr), plus FPREL.
func registerLoadsStores() {
	str := func(ctx *Context, sel *Selector, tree *ir.Node) error {
		addr, err := sel.Select(tree.Child(0))
		if err != nil {
			return err
		}
		val, err := sel.Select(tree.Child(1))
		if err != nil {
			return err
		}
		ctx.Emit(isa.Instruction{Op: isa.Get, Reg: val})
		ctx.Emit(isa.Instruction{Op: isa.Sta, Reg: addr})
		return nil
	}
	RegisterStmt(ir.StrI8, StmtPattern{Cost: Cost{Energy: 2}, Emit: str})
	RegisterStmt(ir.StrU8, StmtPattern{Cost: Cost{Energy: 2}, Emit: str})

	ldr := func(ctx *Context, sel *Selector, tree *ir.Node) (isa.Register, error) {
		addr, err := sel.Select(tree.Child(0))
		if err != nil {
			return 0, err
		}
		d := ctx.NewReg()
		ctx.Emit(isa.Instruction{Op: isa.Lda, Reg: addr})
		ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
		return d, nil
	}
	RegisterPattern(ir.LdrI8, Pattern{Cost: Cost{Energy: 2}, Emit: ldr})
	RegisterPattern(ir.LdrU8, Pattern{Cost: Cost{Energy: 2}, Emit: ldr})

	fprel := func(ctx *Context, sel *Selector, tree *ir.Node) (isa.Register, error) {
		off := tree.FPRelValue().Offset
		d := ctx.NewReg()
		if off != -1 {
			ctx.Emit(isa.Instruction{Op: isa.LdiC, Imm: uint8(off + 1)})
			ctx.Emit(isa.Instruction{Op: isa.Add, Reg: isa.FP})
			ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
		} else {
			ctx.Emit(isa.Instruction{Op: isa.Get, Reg: isa.FP})
			ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
		}
		return d, nil
	}
	RegisterPattern(ir.FprelU8, Pattern{Emit: fprel})
}

// registerConstsAndLabels wires CONST and LABEL leaves.
func registerConstsAndLabels() {
	konst := func(ctx *Context, sel *Selector, tree *ir.Node) (isa.Register, error) {
		d := ctx.NewReg()
		ctx.Emit(isa.Instruction{Op: isa.LdiC, Imm: uint8(tree.IntValue())})
		ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
		return d, nil
	}
	RegisterPattern(ir.ConstI8, Pattern{Emit: konst})
	RegisterPattern(ir.ConstU8, Pattern{Emit: konst})

	label := func(ctx *Context, sel *Selector, tree *ir.Node) (isa.Register, error) {
		d := ctx.NewReg()
		ctx.Emit(isa.Instruction{Op: isa.LdiL, Label: tree.LabelValue()})
		ctx.Emit(isa.Instruction{Op: isa.Set, Reg: d})
		return d, nil
	}
	RegisterPattern(ir.Label, Pattern{Emit: label})
}

// registerMoveRegCast wires MOV, the REG leaf (no emission, size 0), and
// the I8<->U8 cast (a no-op reinterpretation, size 0).
func registerMoveRegCast() {
	mov := func(ctx *Context, sel *Selector, tree *ir.Node) error {
		c0, err := sel.Select(tree.Child(0))
		if err != nil {
			return err
		}
		ctx.Emit(isa.Instruction{Op: isa.Mov, Reg: tree.RegValue(), Src: c0})
		return nil
	}
	RegisterStmt(ir.MovI8, StmtPattern{Emit: mov})
	RegisterStmt(ir.MovU8, StmtPattern{Emit: mov})

	reg := func(ctx *Context, sel *Selector, tree *ir.Node) (isa.Register, error) {
		return tree.RegValue(), nil
	}
	RegisterPattern(ir.RegI8, Pattern{Cost: Cost{}, Emit: reg})
	RegisterPattern(ir.RegU8, Pattern{Cost: Cost{}, Emit: reg})

	cast := func(ctx *Context, sel *Selector, tree *ir.Node) (isa.Register, error) {
		return sel.Select(tree.Child(0))
	}
	RegisterPattern(ir.I8ToU8, Pattern{Cost: Cost{}, Emit: cast})
	RegisterPattern(ir.U8ToI8, Pattern{Cost: Cost{}, Emit: cast})
}

// registerJumps wires JMP and the two CJMP shapes.
func registerJumps() {
	jmp := func(ctx *Context, sel *Selector, tree *ir.Node) error {
		ctx.Emit(isa.Instruction{Op: isa.B, Label: tree.LabelValue()})
		return nil
	}
	RegisterStmt(ir.Jmp, StmtPattern{Emit: jmp})

	cjmpSigned := func(ctx *Context, sel *Selector, tree *ir.Node) error {
		c := tree.CondValue()
		c0, err := sel.Select(tree.Child(0))
		if err != nil {
			return err
		}
		c1, err := sel.Select(tree.Child(1))
		if err != nil {
			return err
		}
		var bop isa.OpCode
		switch c.CmpOp {
		case "==":
			bop = isa.Bz
		case "!=":
			bop = isa.Bnz
		default:
			return &UnsupportedOperationError{Op: "CJMPI8", Why: "signed comparison " + c.CmpOp + " not supported"}
		}
		ctx.Emit(isa.Instruction{Op: isa.Get, Reg: c0})
		ctx.Emit(isa.Instruction{Op: isa.Sub, Reg: c1})
		ctx.Emit(isa.Instruction{Op: bop, Label: c.Yes})
		ctx.Emit(isa.Instruction{Op: isa.B, Label: c.No})
		return nil
	}
	RegisterStmt(ir.CjmpI8, StmtPattern{
		Guard: func(t *ir.Node) bool { cv := t.CondValue(); return cv.CmpOp == "==" || cv.CmpOp == "!=" },
		Cost:  Cost{Size: 3, Cycles: 2, Energy: 2},
		Emit:  cjmpSigned,
	})

	type unsignedRule struct {
		op   isa.OpCode
		swap bool
	}
	unsignedRules := map[string]unsignedRule{
		"==": {isa.Bz, false},
		"!=": {isa.Bnz, false},
		"<":  {isa.Bcc, false},
		">=": {isa.Bcs, false},
		"<=": {isa.Bcs, true},
		">":  {isa.Bcc, true},
	}
	cjmpUnsigned := func(ctx *Context, sel *Selector, tree *ir.Node) error {
		c := tree.CondValue()
		rule, ok := unsignedRules[c.CmpOp]
		if !ok {
			return &UnsupportedOperationError{Op: "CJMPU8", Why: "unknown comparison " + c.CmpOp}
		}
		c0, err := sel.Select(tree.Child(0))
		if err != nil {
			return err
		}
		c1, err := sel.Select(tree.Child(1))
		if err != nil {
			return err
		}
		l, r := c0, c1
		if rule.swap {
			l, r = c1, c0
		}
		ctx.Emit(isa.Instruction{Op: isa.Get, Reg: l})
		ctx.Emit(isa.Instruction{Op: isa.Sub, Reg: r})
		ctx.Emit(isa.Instruction{Op: rule.op, Label: c.Yes})
		ctx.Emit(isa.Instruction{Op: isa.B, Label: c.No})
		return nil
	}
	RegisterStmt(ir.CjmpU8, StmtPattern{Cost: Cost{Size: 3, Cycles: 2, Energy: 2}, Emit: cjmpUnsigned})
}
