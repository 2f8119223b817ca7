package main

import (
	"fmt"
	"os"

	"github.com/gaarutyunov/sigmos/internal/diag"
	"github.com/gaarutyunov/sigmos/pkg/ast"
	"github.com/gaarutyunov/sigmos/pkg/parser"
)

// loadSpec reads path, parses it and builds the typed Spec. Parse
// errors and structural diagnostics are both surfaced as a single
// combined error so CLI callers don't need to know which stage
// produced them.
func loadSpec(path string) (*ast.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	p, err := parser.New()
	if err != nil {
		return nil, fmt.Errorf("building parser: %w", err)
	}

	raw, err := p.ParseBytes(path, data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	spec, diags := ast.Build(raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: %w", path, errList(diags))
	}
	return spec, nil
}

type errList diag.List

func (e errList) Error() string { return diag.List(e).Error() }
