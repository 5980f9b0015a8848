package codegen

import (
	"fmt"

	"github.com/wcaarls/puc8a/pkg/ir"
	"github.com/wcaarls/puc8a/pkg/isa"
)

// Cost is the (size, cycles, energy) triple a pattern advertises to the
// real dynamic-programming tiler so it can select a minimum-cost cover.
// Our stand-in selector (below) does not minimize cost — see §4.8 of
// SPEC_FULL.md — but patterns still carry it so a future DP tiler can be
// dropped in without touching the pattern table.
type Cost struct {
	Size    int
	Cycles  int
	Energy  int
}

// Emitter is a register-producing pattern's emission function. sel lets
// the emitter recursively select registers for whichever children it
// actually needs (some patterns, like the increment specialization of
// ADD, deliberately leave a constant child unselected and read its value
// directly).
type Emitter func(ctx *Context, sel *Selector, tree *ir.Node) (isa.Register, error)

// StmtEmitter is a statement pattern's emission function: it has side
// effects on ctx but produces no register.
type StmtEmitter func(ctx *Context, sel *Selector, tree *ir.Node) error

// Pattern is one entry of the register-producing half of the pattern
// table: an IR.Op, an optional guard, advertised cost, and an emitter.
type Pattern struct {
	Guard func(*ir.Node) bool
	Cost  Cost
	Emit  Emitter
}

// StmtPattern is one entry of the statement half of the pattern table.
type StmtPattern struct {
	Guard func(*ir.Node) bool
	Cost  Cost
	Emit  StmtEmitter
}

var regPatterns = map[ir.Op][]Pattern{}
var stmtPatterns = map[ir.Op][]StmtPattern{}

// RegisterPattern adds a register-producing pattern for op. Patterns for
// the same op are tried in registration order; the first whose guard
// passes (or which has no guard) wins. init() in patterns.go registers
// the specializations (e.g. "add by 1" -> inc) ahead of their general
// fallback, mirroring the decorator-registration order of the original
// pattern set.
func RegisterPattern(op ir.Op, p Pattern) {
	regPatterns[op] = append(regPatterns[op], p)
}

// RegisterStmt adds a statement pattern for op.
func RegisterStmt(op ir.Op, p StmtPattern) {
	stmtPatterns[op] = append(stmtPatterns[op], p)
}

// Selector drives pattern selection over one function's IR. It is the
// simplified stand-in for the external tree-tiling dynamic programmer
// described in §4.8 of SPEC_FULL.md: a recursive matcher with no cost
// minimization, not a covering search.
type Selector struct {
	ctx *Context
}

// NewSelector creates a selector bound to ctx.
func NewSelector(ctx *Context) *Selector {
	return &Selector{ctx: ctx}
}

// Select picks and runs the first matching register-producing pattern
// for tree, returning the register holding its result.
func (s *Selector) Select(tree *ir.Node) (isa.Register, error) {
	patterns, ok := regPatterns[tree.Op]
	if !ok {
		return 0, &UnsupportedOperationError{Op: fmt.Sprintf("%v", tree.Op), Why: "no pattern registered"}
	}
	for _, p := range patterns {
		if p.Guard == nil || p.Guard(tree) {
			return p.Emit(s.ctx, s, tree)
		}
	}
	return 0, &UnsupportedOperationError{Op: fmt.Sprintf("%v", tree.Op), Why: "no pattern guard matched"}
}

// SelectStmt picks and runs the first matching statement pattern for tree.
func (s *Selector) SelectStmt(tree *ir.Node) error {
	patterns, ok := stmtPatterns[tree.Op]
	if !ok {
		return &UnsupportedOperationError{Op: fmt.Sprintf("%v", tree.Op), Why: "no pattern registered"}
	}
	for _, p := range patterns {
		if p.Guard == nil || p.Guard(tree) {
			return p.Emit(s.ctx, s, tree)
		}
	}
	return &UnsupportedOperationError{Op: fmt.Sprintf("%v", tree.Op), Why: "no pattern guard matched"}
}

// SelectBody runs SelectStmt over a sequence of statement nodes in order.
func (s *Selector) SelectBody(body []*ir.Node) error {
	for _, stmt := range body {
		if err := s.SelectStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}
