package ast

import (
	"strings"
	"testing"

	"github.com/gaarutyunov/sigmos/pkg/parser"
)

func TestNameSuggesterFindsCloseMatch(t *testing.T) {
	spec := mustParse(t, `spec "t" v1.0.0 {
  inputs: {
    quantity: number { required: true }
  }
}
`)
	s := NewNameSuggester(spec)
	if got := s.Suggest("quantiy"); got != "quantity" {
		t.Errorf("Suggest(quantiy) = %q, want quantity", got)
	}
	if got := s.Suggest("zzz"); got != "" {
		t.Errorf("Suggest(zzz) = %q, want empty", got)
	}
}

func TestBuildSuggestsCloseExtensionAlias(t *testing.T) {
	p, err := parser.New()
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	raw, err := p.ParseString(`spec "t" v1.0.0 {
  computed: {
    greeting: string = ech.echo(value: "hi")
  }
  extensions: {
    echo: "echo@1.0"
  }
}
`)
	if err != nil {
		t.Fatalf("ParseString: %v", err)
	}
	_, diags := Build(raw)
	if !diags.HasErrors() {
		t.Fatal("expected a build error for the misspelled extension alias")
	}
	if !strings.Contains(diags.Error(), `did you mean "echo"`) {
		t.Errorf("diagnostics = %q, want a suggestion for echo", diags.Error())
	}
}
