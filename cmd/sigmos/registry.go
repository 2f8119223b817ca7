package main

import (
	"context"

	"github.com/gaarutyunov/sigmos/pkg/ast"
	"github.com/gaarutyunov/sigmos/pkg/plugin"
	"github.com/gaarutyunov/sigmos/pkg/plugin/plugins/binanceplugin"
	"github.com/gaarutyunov/sigmos/pkg/plugin/plugins/browserplugin"
	"github.com/gaarutyunov/sigmos/pkg/plugin/plugins/echoplugin"
	"github.com/gaarutyunov/sigmos/pkg/plugin/plugins/httpplugin"
	"github.com/gaarutyunov/sigmos/pkg/plugin/plugins/streamplugin"
)

// builtinPlugins maps the plugin name a spec's extension reference
// names (the part before "@version" in "http@1.0") to a constructor.
// This is the host's wiring, not something a spec controls.
var builtinPlugins = map[string]func() plugin.Plugin{
	"echo":    func() plugin.Plugin { return echoplugin.New() },
	"http":    func() plugin.Plugin { return httpplugin.New() },
	"binance": func() plugin.Plugin { return binanceplugin.New() },
	"stream":  func() plugin.Plugin { return streamplugin.New() },
	"browser": func() plugin.Plugin { return browserplugin.New() },
}

// buildRegistry registers every extension a spec declares against the
// host's known plugin set, so eval.FunctionCall nodes addressing a
// declared alias resolve at Run time.
func buildRegistry(ctx context.Context, spec *ast.Spec) (*plugin.Registry, []string) {
	reg := plugin.NewRegistry(ctx)
	var unresolved []string
	for _, ext := range spec.Extensions {
		ctor, ok := builtinPlugins[ext.RefName]
		if !ok {
			unresolved = append(unresolved, ext.Alias)
			continue
		}
		reg.Register(ext.Alias, ctor())
	}
	return reg, unresolved
}
