package ir

import (
	"encoding/json"
	"fmt"

	"github.com/wcaarls/puc8a/pkg/isa"
)

// Function is the JSON stand-in input format for one lowered function: a
// name, local stack size (in bytes), the types of its up-to-three scalar
// parameters (used only to size the calling convention's register
// shuffle), whether it returns a value, and a body of statement nodes.
// This plays the role the real, out-of-scope compiler front end's
// internal representation would otherwise hand the code generator.
type Function struct {
	Name      string
	StackSize int
	Params    []Type
	Body      []*Node
	Result    *Node // register-producing expression returned in r0, nil if void
}

type jsonNode struct {
	Op       string          `json:"op"`
	Type     string          `json:"type,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
	Children []jsonNode      `json:"children,omitempty"`
}

type jsonFunction struct {
	Name      string     `json:"name"`
	StackSize int        `json:"stacksize"`
	Params    []string   `json:"params"`
	Body      []jsonNode `json:"body"`
	Result    *jsonNode  `json:"result,omitempty"`
}

var opNames = map[string]Op{
	"ADDI8": AddI8, "ADDU8": AddU8,
	"SUBI8": SubI8, "SUBU8": SubU8,
	"NEGI8": NegI8,
	"INVI8": InvI8, "INVU8": InvU8,
	"ANDI8": AndI8, "ANDU8": AndU8,
	"ORI8": OrI8, "ORU8": OrU8,
	"XORI8": XorI8, "XORU8": XorU8,
	"MULU8": MulU8,
	"SHLI8": ShlI8, "SHLU8": ShlU8,
	"SHRI8": ShrI8, "SHRU8": ShrU8,
	"FPRELU8": FprelU8,
	"STRI8":   StrI8, "STRU8": StrU8,
	"LDRI8": LdrI8, "LDRU8": LdrU8,
	"CONSTI8": ConstI8, "CONSTU8": ConstU8,
	"LABEL": Label,
	"MOVI8": MovI8, "MOVU8": MovU8,
	"REGI8": RegI8, "REGU8": RegU8,
	"I8TOU8": I8ToU8, "U8TOI8": U8ToI8,
	"JMP":    Jmp,
	"CJMPI8": CjmpI8, "CJMPU8": CjmpU8,
}

var typeNames = map[string]Type{"i8": I8, "u8": U8, "ptr": Ptr}

// ParseFunction decodes one JSON-encoded function body.
func ParseFunction(data []byte) (*Function, error) {
	var jf jsonFunction
	if err := json.Unmarshal(data, &jf); err != nil {
		return nil, fmt.Errorf("ir: %w", err)
	}

	params := make([]Type, len(jf.Params))
	for i, p := range jf.Params {
		t, ok := typeNames[p]
		if !ok {
			return nil, fmt.Errorf("ir: unknown parameter type %q", p)
		}
		params[i] = t
	}

	body := make([]*Node, len(jf.Body))
	for i, n := range jf.Body {
		node, err := buildNode(n)
		if err != nil {
			return nil, err
		}
		body[i] = node
	}

	var result *Node
	if jf.Result != nil {
		r, err := buildNode(*jf.Result)
		if err != nil {
			return nil, err
		}
		result = r
	}

	return &Function{
		Name:      jf.Name,
		StackSize: jf.StackSize,
		Params:    params,
		Body:      body,
		Result:    result,
	}, nil
}

func buildNode(n jsonNode) (*Node, error) {
	op, ok := opNames[n.Op]
	if !ok {
		return nil, fmt.Errorf("ir: unknown op %q", n.Op)
	}

	typ := I8
	if n.Type != "" {
		t, ok := typeNames[n.Type]
		if !ok {
			return nil, fmt.Errorf("ir: unknown type %q", n.Type)
		}
		typ = t
	}

	children := make([]*Node, len(n.Children))
	for i, c := range n.Children {
		child, err := buildNode(c)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}

	value, err := decodeValue(op, n.Value)
	if err != nil {
		return nil, fmt.Errorf("ir: node %q: %w", n.Op, err)
	}

	return &Node{Op: op, Type: typ, Value: value, Children: children}, nil
}

func decodeValue(op Op, raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch op {
	case ConstI8, ConstU8:
		var v int
		err := json.Unmarshal(raw, &v)
		return v, err
	case Label, Jmp:
		var v string
		err := json.Unmarshal(raw, &v)
		return v, err
	case RegI8, RegU8, MovI8, MovU8:
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return isa.FromNum(uint8(v)), nil
	case FprelU8:
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return FPRelOffset{Offset: v}, nil
	case CjmpI8, CjmpU8:
		var v CondJump
		err := json.Unmarshal(raw, &v)
		return v, err
	default:
		return nil, nil
	}
}
