package visitors_test

import (
	"strings"
	"testing"

	"github.com/gaarutyunov/sigmos/pkg/ast"
	"github.com/gaarutyunov/sigmos/pkg/parser"
	"github.com/gaarutyunov/sigmos/pkg/visitors"
)

func TestPrintSpecIncludesEveryBlock(t *testing.T) {
	p, err := parser.New()
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	raw, err := p.ParseString(`spec "t" v1.0.0 {
  description: "demo"
  inputs: {
    name: string { required: true }
  }
  computed: {
    greeting: string = ` + "`Hi ${name}`" + `
  }
  constraints: {
    assert len(name) > 0, "name required"
  }
  events: {
    onCreate(self) -> echo.echo(value: self.name)
  }
  extensions: {
    echo: "echo@1.0"
  }
}
`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	spec, diags := ast.Build(raw)
	if diags.HasErrors() {
		t.Fatalf("Build: %s", diags.Error())
	}

	out := visitors.NewDebugPrinter().PrintSpec(spec)
	for _, want := range []string{"Spec: t", "Description:", "Inputs:", "Computed:", "Constraints:", "Events:", "Extensions:", "Ident: name", "Call: echo.echo"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n---\n%s", want, out)
		}
	}
}
