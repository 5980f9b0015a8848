// Package codegen implements the PUC8a instruction-selection pattern set
// and the calling-convention / stack-frame code generator. It is the
// collaborator the (external, out-of-scope) tree-tiling dynamic
// programmer is specified against; pkg/codegen/select.go additionally
// ships a minimal stand-in driver so the pattern set can be exercised
// and tested end to end.
package codegen

import "github.com/wcaarls/puc8a/pkg/isa"

// Context is the emission context a pattern's emitter function receives:
// it can allocate a fresh register and append an instruction to the
// function's growing code stream.
type Context struct {
	instrs  []isa.Instruction
	nextReg int
	used    map[isa.Register]bool
}

// NewContext creates an emission context for one function body.
func NewContext() *Context {
	return &Context{used: map[isa.Register]bool{}}
}

// NewReg allocates a fresh register from the r0..r11 pool. Real
// register allocation (graph coloring, linear scan, spilling under
// pressure) is an external allocator concern; this stand-in simply
// round-robins the pool, which is sufficient to drive and test the
// pattern set but will alias registers in a function with enough live
// values — documented in SPEC_FULL.md §4.9. Every register handed out is
// recorded as used, so Frame knows which callee-saved registers its
// prologue/epilogue must actually preserve.
func (c *Context) NewReg() isa.Register {
	r := isa.AllocPool[c.nextReg%len(isa.AllocPool)]
	c.nextReg++
	c.used[r] = true
	return r
}

// MarkUsed records that reg holds a live value without having come from
// NewReg — used for the fixed argument registers a function's entry
// sequence binds directly.
func (c *Context) MarkUsed(reg isa.Register) {
	c.used[reg] = true
}

// IsUsed reports whether reg was ever handed out by NewReg or marked via
// MarkUsed.
func (c *Context) IsUsed(reg isa.Register) bool {
	return c.used[reg]
}

// Emit appends an instruction to the function's code stream, in the
// order patterns request it — emissions are never reordered.
func (c *Context) Emit(i isa.Instruction) {
	c.instrs = append(c.instrs, i)
}

// Instructions returns the accumulated instruction stream.
func (c *Context) Instructions() []isa.Instruction {
	return c.instrs
}
