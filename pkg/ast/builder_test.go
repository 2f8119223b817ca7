package ast

import (
	"testing"

	"github.com/gaarutyunov/sigmos/pkg/parser"
)

func mustParse(t *testing.T, src string) *Spec {
	t.Helper()
	p, err := parser.New()
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	raw, err := p.ParseString(src)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	spec, diags := Build(raw)
	if diags.HasErrors() {
		t.Fatalf("Build: %s", diags.Error())
	}
	return spec
}

func TestBuildPrecedence(t *testing.T) {
	spec := mustParse(t, `spec "t" v1.0.0 {
  computed: {
    x: number = 1 + 2 * 3
  }
}
`)
	bin, ok := spec.Computed[0].Expr.(*Binary)
	if !ok {
		t.Fatalf("expected *Binary at top, got %T", spec.Computed[0].Expr)
	}
	if bin.Op != OpAdd {
		t.Fatalf("top operator = %s, want +", bin.Op)
	}
	right, ok := bin.Right.(*Binary)
	if !ok || right.Op != OpMul {
		t.Fatalf("right operand = %#v, want a * Binary", bin.Right)
	}
}

func TestBuildConditionalIsRightAssociative(t *testing.T) {
	spec := mustParse(t, `spec "t" v1.0.0 {
  inputs: {
    tier: string = "standard" { required: false }
  }
  computed: {
    discount: number = tier == "gold" ? 0.1 : tier == "platinum" ? 0.2 : 0
  }
}
`)
	cond, ok := spec.Computed[0].Expr.(*Conditional)
	if !ok {
		t.Fatalf("expected *Conditional, got %T", spec.Computed[0].Expr)
	}
	if _, ok := cond.Else.(*Conditional); !ok {
		t.Fatalf("else branch = %#v, want a nested *Conditional", cond.Else)
	}
}

func TestBuildUnquotesSingleAndDoubleQuotedStrings(t *testing.T) {
	spec := mustParse(t, `spec "t" v1.0.0 {
  inputs: {
    a: string = 'it\'s a \'test\'' { required: false }
    b: string = "she said \"hi\"" { required: false }
  }
}
`)
	lit, ok := spec.Inputs[0].Default.(*Literal)
	if !ok || lit.Kind != LitString {
		t.Fatalf("a default = %#v, want a string literal", spec.Inputs[0].Default)
	}
	if lit.Str != "it's a 'test'" {
		t.Errorf("a = %q, want %q", lit.Str, "it's a 'test'")
	}
	lit, ok = spec.Inputs[1].Default.(*Literal)
	if !ok || lit.Kind != LitString {
		t.Fatalf("b default = %#v, want a string literal", spec.Inputs[1].Default)
	}
	if lit.Str != `she said "hi"` {
		t.Errorf("b = %q, want %q", lit.Str, `she said "hi"`)
	}
}

func TestBuildRejectsDuplicateFieldNames(t *testing.T) {
	p, err := parser.New()
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	raw, err := p.ParseString(`spec "t" v1.0.0 {
  inputs: {
    name: string { required: true }
  }
  computed: {
    name: string = "x"
  }
}
`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	_, diags := Build(raw)
	if !diags.HasErrors() {
		t.Fatal("expected a duplicate-field diagnostic")
	}
}

func TestBuildRejectsUnknownExtension(t *testing.T) {
	p, err := parser.New()
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	raw, err := p.ParseString(`spec "t" v1.0.0 {
  computed: {
    x: number = ghost.call()
  }
}
`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	_, diags := Build(raw)
	if !diags.HasErrors() {
		t.Fatal("expected an unknown-extension diagnostic")
	}
}

func TestBuildRejectsUnknownExtensionNestedInArgument(t *testing.T) {
	p, err := parser.New()
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	raw, err := p.ParseString(`spec "t" v1.0.0 {
  computed: {
    x: number = len(ghost.call())
  }
}
`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	_, diags := Build(raw)
	if !diags.HasErrors() {
		t.Fatal("expected an unknown-extension diagnostic for a call nested inside another call's argument")
	}
}

func TestBuildDistinguishesBuiltinFromExtensionCalls(t *testing.T) {
	spec := mustParse(t, `spec "t" v1.0.0 {
  inputs: {
    name: string { required: true }
  }
  computed: {
    n: number = len(name)
  }
  events: {
    onCreate(self) -> echo.echo(value: self.name)
  }
  extensions: {
    echo: "echo@1.0"
  }
}
`)
	call, ok := spec.Computed[0].Expr.(*FunctionCall)
	if !ok || !call.IsBuiltin() || call.Method != "len" {
		t.Fatalf("computed expr = %#v, want a builtin len() call", spec.Computed[0].Expr)
	}
	ext, ok := spec.Events[0].Body.(*FunctionCall)
	if !ok || ext.IsBuiltin() || ext.Object != "echo" || ext.Method != "echo" {
		t.Fatalf("event body = %#v, want echo.echo(...)", spec.Events[0].Body)
	}
}
