package codegen

import (
	"github.com/wcaarls/puc8a/pkg/ir"
	"github.com/wcaarls/puc8a/pkg/isa"
)

// Compile generates the full instruction stream for one function: entry
// label and argument shuffle, the pattern-selected body, and the exit
// sequence. Parameters are bound to r0, r1, r2 in declaration order —
// the JSON stand-in format's body nodes reference them under those
// numbers, the same contract a real front end's register allocator
// would have already settled before code generation ever runs.
func Compile(fn *ir.Function) ([]isa.Instruction, error) {
	if len(fn.Params) > len(isa.ArgRegs) {
		return nil, &UnsupportedOperationError{Op: "function", Why: "more than three parameters"}
	}

	ctx := NewContext()
	frame := NewFrame(ctx, fn.Name, fn.StackSize)
	sel := NewSelector(ctx)

	paramRegs := make([]isa.Register, len(fn.Params))
	for i := range fn.Params {
		paramRegs[i] = isa.AllocPool[i]
	}
	enter, err := frame.FunctionEnter(paramRegs)
	if err != nil {
		return nil, err
	}

	if err := sel.SelectBody(fn.Body); err != nil {
		return nil, err
	}

	var rv *isa.Register
	if fn.Result != nil {
		r, err := sel.Select(fn.Result)
		if err != nil {
			return nil, err
		}
		rv = &r
	}
	body := ctx.Instructions()
	exit := frame.FunctionExit(rv)

	prologue := frame.Prologue()
	epilogue := frame.Epilogue()

	out := make([]isa.Instruction, 0, len(prologue)+len(enter)+len(body)+len(exit)+len(epilogue))
	out = append(out, prologue...)
	out = append(out, enter...)
	out = append(out, body...)
	out = append(out, exit...)
	out = append(out, epilogue...)
	return out, nil
}
