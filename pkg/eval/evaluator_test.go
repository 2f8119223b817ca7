package eval_test

import (
	"strings"
	"testing"

	"github.com/gaarutyunov/sigmos/internal/diag"
	"github.com/gaarutyunov/sigmos/pkg/ast"
	"github.com/gaarutyunov/sigmos/pkg/eval"
)

func num(n float64) *ast.Literal { return &ast.Literal{Kind: ast.LitNumber, Num: n} }
func str(s string) *ast.Literal  { return &ast.Literal{Kind: ast.LitString, Str: s} }

func evalMust(t *testing.T, expr ast.Expression, ctx *eval.Context) eval.Value {
	t.Helper()
	v, d := eval.Eval(expr, ctx, nil)
	if d != nil {
		t.Fatalf("Eval: %s", d.Error())
	}
	return v
}

func TestEvalArithmeticPrecedenceIsPreBuilt(t *testing.T) {
	// (1 + (2 * 3)) — evaluator trusts the tree shape; it does not
	// re-derive precedence.
	expr := &ast.Binary{Op: ast.OpAdd, Left: num(1), Right: &ast.Binary{Op: ast.OpMul, Left: num(2), Right: num(3)}}
	v := evalMust(t, expr, eval.NewContext())
	if v.AsNumber() != 7 {
		t.Errorf("got %v, want 7", v.AsNumber())
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	expr := &ast.Binary{Op: ast.OpDiv, Left: num(1), Right: num(0)}
	_, d := eval.Eval(expr, eval.NewContext(), nil)
	if d == nil || d.Kind != diag.DivByZero {
		t.Fatalf("expected DivByZero, got %v", d)
	}
}

func TestEvalShortCircuitOr(t *testing.T) {
	// true || (1/0 == 1) must not evaluate the right side.
	expr := &ast.Binary{
		Op:   ast.OpOr,
		Left: &ast.Literal{Kind: ast.LitBool, Bool: true},
		Right: &ast.Binary{
			Op:   ast.OpEq,
			Left: &ast.Binary{Op: ast.OpDiv, Left: num(1), Right: num(0)},
			Right: num(1),
		},
	}
	v := evalMust(t, expr, eval.NewContext())
	if !v.AsBool() {
		t.Fatal("expected true")
	}
}

func TestEvalConditionalShortCircuit(t *testing.T) {
	cond := &ast.Conditional{
		Cond: &ast.Literal{Kind: ast.LitBool, Bool: false},
		Then: &ast.Binary{Op: ast.OpDiv, Left: num(1), Right: num(0)},
		Else: str("fallback"),
	}
	v := evalMust(t, cond, eval.NewContext())
	if v.AsString() != "fallback" {
		t.Errorf("got %q, want fallback", v.AsString())
	}
}

func TestEvalUnknownIdentifier(t *testing.T) {
	_, d := eval.Eval(&ast.Identifier{Name: "missing"}, eval.NewContext(), nil)
	if d == nil || d.Kind != diag.UnknownIdentifier {
		t.Fatalf("expected UnknownIdentifier, got %v", d)
	}
}

func TestEvalUnknownIdentifierSuggestsCloseBoundName(t *testing.T) {
	ctx := eval.NewContext().With("quantity", eval.Number(1))
	_, d := eval.Eval(&ast.Identifier{Name: "quantiy"}, ctx, nil)
	if d == nil || d.Kind != diag.UnknownIdentifier {
		t.Fatalf("expected UnknownIdentifier, got %v", d)
	}
	if !strings.Contains(d.Message, `did you mean "quantity"`) {
		t.Errorf("message = %q, want a suggestion for quantity", d.Message)
	}
}

func TestEvalPropertyAccessOnMissingKeyIsNull(t *testing.T) {
	obj := eval.NewOrderedMap()
	obj.Set("name", eval.String("ok"))
	ctx := eval.NewContext().With("self", eval.Object(obj))
	expr := &ast.PropertyAccess{Target: &ast.Identifier{Name: "self"}, Name: "greeting"}
	v := evalMust(t, expr, ctx)
	if !v.IsNull() {
		t.Errorf("got %v, want null", v)
	}
}

func TestEvalStringTemplate(t *testing.T) {
	ctx := eval.NewContext().With("name", eval.String("Ada"))
	tmpl := &ast.StringTemplate{Parts: []ast.TemplatePart{
		{Text: "Hello, "},
		{Expr: &ast.Identifier{Name: "name"}},
		{Text: "!"},
	}}
	v := evalMust(t, tmpl, ctx)
	if v.AsString() != "Hello, Ada!" {
		t.Errorf("got %q", v.AsString())
	}
}

func TestEvalBuiltinLen(t *testing.T) {
	call := &ast.FunctionCall{
		Object: ast.BuiltinObject,
		Method: "len",
		Args:   []*ast.Argument{{Value: str("hello")}},
	}
	v := evalMust(t, call, eval.NewContext())
	if v.AsNumber() != 5 {
		t.Errorf("got %v, want 5", v.AsNumber())
	}
}

type stubPlugins struct {
	alias, method string
	args          *eval.OrderedMap
	ret           eval.Value
}

func (s *stubPlugins) Invoke(alias, method string, args *eval.OrderedMap) (eval.Value, *diag.Diagnostic) {
	s.alias, s.method, s.args = alias, method, args
	return s.ret, nil
}

func TestEvalFunctionCallDelegatesToPluginCaller(t *testing.T) {
	stub := &stubPlugins{ret: eval.String("pong")}
	call := &ast.FunctionCall{
		Object: "echo",
		Method: "ping",
		Args: []*ast.Argument{
			{Value: str("hi")},
			{Name: "loud", Value: &ast.Literal{Kind: ast.LitBool, Bool: true}},
		},
	}
	v, d := eval.Eval(call, eval.NewContext(), stub)
	if d != nil {
		t.Fatalf("Eval: %s", d.Error())
	}
	if v.AsString() != "pong" {
		t.Errorf("got %q, want pong", v.AsString())
	}
	if stub.alias != "echo" || stub.method != "ping" {
		t.Fatalf("plugin invoked as %s.%s", stub.alias, stub.method)
	}
	pos, ok := stub.args.Get("$0")
	if !ok || pos.AsString() != "hi" {
		t.Errorf("positional arg $0 = %v", pos)
	}
	named, ok := stub.args.Get("loud")
	if !ok || !named.AsBool() {
		t.Errorf("named arg loud = %v", named)
	}
}
