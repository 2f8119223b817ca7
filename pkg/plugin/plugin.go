// Package plugin implements a registry mapping extension aliases
// declared in a spec's extensions block to concrete Go
// implementations, and the argument-binding layer between the
// evaluator's call-site representation and a plugin's typed method
// signature.
package plugin

import (
	"context"
	"fmt"
	"sort"

	"github.com/gaarutyunov/sigmos/internal/diag"
	"github.com/gaarutyunov/sigmos/pkg/eval"
)

// ParamKind is the coercion target for a declared method parameter.
type ParamKind int

const (
	ParamString ParamKind = iota
	ParamNumber
	ParamBool
	ParamAny
)

// Param describes one positional parameter of a plugin method, used
// both to resolve positional-vs-named binding and to coerce/validate
// incoming values before Invoke runs.
type Param struct {
	Name     string
	Kind     ParamKind
	Required bool
}

// Method is one callable entry point a Plugin exposes, with a fixed,
// declared parameter list the registry validates calls against.
type Method struct {
	Name   string
	Params []Param
}

// Plugin is implemented by every extension. DescribeMethods lets the
// registry validate calls without invoking anything; Call does the
// actual work. An unknown method name is reported without a "did you
// mean" suggestion.
type Plugin interface {
	Name() string
	DescribeMethods() []Method
	Call(ctx context.Context, method string, args *eval.OrderedMap) (eval.Value, error)
}

// Registry resolves extension aliases (as declared in a spec's
// extensions block) to Plugin instances, and is the concrete
// implementation of eval.PluginCaller handed to the evaluator.
type Registry struct {
	byAlias map[string]Plugin
	ctx     context.Context
	secrets []string
}

// NewRegistry builds an empty registry. Use Register to bind aliases.
func NewRegistry(ctx context.Context) *Registry {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Registry{byAlias: make(map[string]Plugin), ctx: ctx}
}

// SetSecretValues implements eval.SecretSource. The engine calls this
// once per run with the bound values of every `secret`-modified input
// field, so Invoke can scrub them out of a failing plugin call's error
// text before it reaches a diagnostic. Each call replaces the
// previous set rather than accumulating across runs.
func (r *Registry) SetSecretValues(values []string) {
	r.secrets = values
}

// Register binds alias (the key of an entry in a spec's `extensions`
// block, e.g. `api` in `api: "http@1.0"`) to an implementation. Re-registering an alias
// replaces the previous binding, matching the registry's "read-only
// during execution, mutable only at wiring time" contract.
func (r *Registry) Register(alias string, p Plugin) {
	r.byAlias[alias] = p
}

// Aliases returns the registered alias set, sorted.
func (r *Registry) Aliases() []string {
	out := make([]string, 0, len(r.byAlias))
	for a := range r.byAlias {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Invoke implements eval.PluginCaller: it resolves alias to a bound
// plugin, resolves method against that plugin's declared signature,
// binds positional/named arguments against the declared parameter
// list, and calls through.
func (r *Registry) Invoke(alias, method string, args *eval.OrderedMap) (eval.Value, *diag.Diagnostic) {
	p, found := r.byAlias[alias]
	if !found {
		return eval.Null(), diag.New(diag.UnknownExtension, "no plugin registered for extension alias %q", alias)
	}
	var decl *Method
	for _, m := range p.DescribeMethods() {
		m := m
		if m.Name == method {
			decl = &m
			break
		}
	}
	if decl == nil {
		return eval.Null(), diag.New(diag.Plugin, "plugin %q has no method %q", alias, method)
	}

	bound, derr := bindArgs(*decl, args)
	if derr != nil {
		return eval.Null(), derr
	}

	v, err := p.Call(r.ctx, method, bound)
	if err != nil {
		return eval.Null(), diag.New(diag.Plugin, "%s.%s: %s", alias, method, diag.Redact(err.Error(), r.secrets...))
	}
	return v, nil
}

// bindArgs resolves the evaluator's "$0", "$1", ... positional keys
// plus any named keys against decl's declared parameter list,
// producing a map keyed purely by parameter name. Positional values
// fill parameters left-to-right; named values override/fill by name;
// any Required parameter left unbound is a BadArity diagnostic.
func bindArgs(decl Method, args *eval.OrderedMap) (*eval.OrderedMap, *diag.Diagnostic) {
	out := eval.NewOrderedMap()
	posIdx := 0
	for _, param := range decl.Params {
		if v, ok := args.Get(param.Name); ok {
			if err := checkKind(param, v); err != nil {
				return nil, err
			}
			out.Set(param.Name, v)
			continue
		}
		key := fmt.Sprintf("$%d", posIdx)
		if v, ok := args.Get(key); ok {
			if err := checkKind(param, v); err != nil {
				return nil, err
			}
			out.Set(param.Name, v)
			posIdx++
			continue
		}
		if param.Required {
			return nil, diag.New(diag.BadArity, "missing required argument %q", param.Name)
		}
	}
	return out, nil
}

func checkKind(param Param, v eval.Value) *diag.Diagnostic {
	switch param.Kind {
	case ParamString:
		if v.Kind() != eval.KindString {
			return diag.New(diag.TypeMismatch, "argument %q must be a string", param.Name)
		}
	case ParamNumber:
		if v.Kind() != eval.KindNumber {
			return diag.New(diag.TypeMismatch, "argument %q must be a number", param.Name)
		}
	case ParamBool:
		if v.Kind() != eval.KindBool {
			return diag.New(diag.TypeMismatch, "argument %q must be a boolean", param.Name)
		}
	}
	return nil
}
