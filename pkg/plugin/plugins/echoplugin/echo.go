// Package echoplugin is the reference plugin: a minimal, dependency-free
// extension used in tests and examples to exercise the registry's
// argument-binding path without any network or process boundary.
package echoplugin

import (
	"context"
	"fmt"

	"github.com/gaarutyunov/sigmos/pkg/eval"
	"github.com/gaarutyunov/sigmos/pkg/plugin"
)

// Echo implements plugin.Plugin with two methods: echo (returns its
// single argument unchanged) and concat (string-joins two arguments).
type Echo struct{}

func New() *Echo { return &Echo{} }

func (*Echo) Name() string { return "echo" }

func (*Echo) DescribeMethods() []plugin.Method {
	return []plugin.Method{
		{Name: "echo", Params: []plugin.Param{{Name: "value", Kind: plugin.ParamAny, Required: true}}},
		{Name: "concat", Params: []plugin.Param{
			{Name: "a", Kind: plugin.ParamString, Required: true},
			{Name: "b", Kind: plugin.ParamString, Required: true},
		}},
	}
}

func (*Echo) Call(_ context.Context, method string, args *eval.OrderedMap) (eval.Value, error) {
	switch method {
	case "echo":
		v, _ := args.Get("value")
		return v, nil
	case "concat":
		a, _ := args.Get("a")
		b, _ := args.Get("b")
		return eval.String(a.AsString() + b.AsString()), nil
	default:
		return eval.Null(), fmt.Errorf("echo: unknown method %q", method)
	}
}
