package ir

import (
	"testing"

	"github.com/wcaarls/puc8a/pkg/isa"
)

func TestParseFunctionSimpleAdd(t *testing.T) {
	src := `{
		"name": "add2",
		"stacksize": 0,
		"params": ["u8", "u8"],
		"result": {
			"op": "ADDU8",
			"type": "u8",
			"children": [
				{"op": "REGU8", "value": 0},
				{"op": "REGU8", "value": 1}
			]
		}
	}`
	fn, err := ParseFunction([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if fn.Name != "add2" {
		t.Errorf("Name = %q, want add2", fn.Name)
	}
	if len(fn.Params) != 2 || fn.Params[0] != U8 || fn.Params[1] != U8 {
		t.Errorf("Params = %v, want [u8 u8]", fn.Params)
	}
	if fn.Result == nil || fn.Result.Op != AddU8 {
		t.Fatalf("Result = %v, want an ADDU8 node", fn.Result)
	}
	if fn.Result.Child(0).RegValue() != isa.R0 {
		t.Errorf("first operand register = %v, want r0", fn.Result.Child(0).RegValue())
	}
	if fn.Result.Child(1).RegValue() != isa.R1 {
		t.Errorf("second operand register = %v, want r1", fn.Result.Child(1).RegValue())
	}
}

func TestParseFunctionVoidHasNilResult(t *testing.T) {
	src := `{
		"name": "store",
		"body": [
			{"op": "STRU8", "children": [
				{"op": "CONSTU8", "value": 10},
				{"op": "CONSTU8", "value": 5}
			]}
		]
	}`
	fn, err := ParseFunction([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if fn.Result != nil {
		t.Errorf("Result = %v, want nil for a void function", fn.Result)
	}
	if len(fn.Body) != 1 || fn.Body[0].Op != StrU8 {
		t.Fatalf("Body = %v, want a single STRU8 node", fn.Body)
	}
	if fn.Body[0].Child(0).IntValue() != 10 {
		t.Errorf("store address const = %d, want 10", fn.Body[0].Child(0).IntValue())
	}
}

func TestParseFunctionFprelPlainInteger(t *testing.T) {
	src := `{"name": "f", "result": {"op": "FPRELU8", "value": -1}}`
	fn, err := ParseFunction([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if fn.Result.FPRelValue().Offset != -1 {
		t.Errorf("FPRel offset = %d, want -1", fn.Result.FPRelValue().Offset)
	}
}

func TestParseFunctionCondJump(t *testing.T) {
	src := `{
		"name": "f",
		"body": [
			{"op": "CJMPU8", "value": {"cmp": "<", "yes": "loop", "no": "exit"},
			 "children": [
				{"op": "REGU8", "value": 0},
				{"op": "REGU8", "value": 1}
			 ]}
		]
	}`
	fn, err := ParseFunction([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	cond := fn.Body[0].CondValue()
	if cond.CmpOp != "<" || cond.Yes != "loop" || cond.No != "exit" {
		t.Errorf("CondValue = %+v", cond)
	}
}

func TestParseFunctionUnknownOpFails(t *testing.T) {
	src := `{"name": "f", "result": {"op": "BOGUS"}}`
	if _, err := ParseFunction([]byte(src)); err == nil {
		t.Error("expected error for unknown op name")
	}
}

func TestParseFunctionUnknownParamTypeFails(t *testing.T) {
	src := `{"name": "f", "params": ["f64"]}`
	if _, err := ParseFunction([]byte(src)); err == nil {
		t.Error("expected error for unsupported parameter type")
	}
}
