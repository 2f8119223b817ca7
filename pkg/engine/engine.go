// Package engine takes a parsed Spec and a set of provided input
// values, binds inputs, runs lifecycle hooks, evaluates computed
// fields in dependency order, checks constraints, and fires lifecycle
// events — a single execution of a spec.
package engine

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/gaarutyunov/sigmos/internal/diag"
	"github.com/gaarutyunov/sigmos/pkg/ast"
	"github.com/gaarutyunov/sigmos/pkg/eval"
)

// Engine drives executions of one Spec. It is safe to call Run
// concurrently from multiple goroutines: the engine itself holds no
// execution-scoped mutable state, so serializing access to a shared
// Result, if one is shared across calls, is the caller's job.
type Engine struct {
	spec    *ast.Spec
	plugins eval.PluginCaller
	types   map[string]*ast.TypeExpr
}

// New builds an Engine bound to spec and a plugin caller (typically a
// *plugin.Registry). plugins may be nil if the spec declares no
// extensions.
func New(spec *ast.Spec, plugins eval.PluginCaller) *Engine {
	types := make(map[string]*ast.TypeExpr, len(spec.Types))
	for _, t := range spec.Types {
		types[t.Name] = t.Type
	}
	return &Engine{spec: spec, plugins: plugins, types: types}
}

// Result is the outcome of a successful execution.
type Result struct {
	ID       string
	Inputs   map[string]eval.Value
	Computed map[string]eval.Value
	Root     eval.Value // Object{ ...inputs, ...computed }
}

// Run executes the spec once against providedInputs: bind inputs,
// check input-only assert constraints, run onCreate, run the
// before-lifecycle hook, evaluate computed fields in dependency
// order, check the remaining constraints, run the after-lifecycle
// hook, then always run the finally-lifecycle hook. ctx governs
// cooperative cancellation; the engine checks ctx.Err() between steps
// and between plugin-bearing evaluations.
func (e *Engine) Run(ctx context.Context, providedInputs map[string]eval.Value) (*Result, *diag.Diagnostic) {
	execID := uuid.NewString()

	inputs, d := e.bindInputs(ctx, providedInputs)
	if d != nil {
		return nil, e.finish(ctx, execID, nil, d)
	}

	e.registerSecrets(inputs)

	rootCtx := eval.NewContext()
	for name, v := range inputs {
		rootCtx = rootCtx.With(name, v)
	}

	earlyConstraints, lateConstraints := e.splitConstraints()

	// assert constraints that reference only input fields are checked
	// before onCreate fires: a failing one must abort the run without
	// ever running onCreate.
	if d := e.checkConstraints(earlyConstraints, rootCtx); d != nil {
		return nil, e.finish(ctx, execID, rootCtx, d)
	}

	// onCreate fires immediately after input binding, ahead of
	// lifecycle:before, with its parameter bound to the inputs-only
	// snapshot (computed fields do not exist yet at this point in a
	// one-shot execution).
	if d := e.fireEvent(ast.OnCreate, rootCtx, e.buildRoot(inputs, nil)); d != nil {
		return nil, e.finish(ctx, execID, rootCtx, d)
	}

	if d := e.runLifecycle(ast.Before, rootCtx); d != nil {
		return nil, e.finish(ctx, execID, rootCtx, d)
	}

	if err := ctx.Err(); err != nil {
		return nil, e.finish(ctx, execID, rootCtx, diag.New(diag.Cancelled, "cancelled before computing fields"))
	}

	order, d := e.topoSortComputed()
	if d != nil {
		return nil, e.finish(ctx, execID, rootCtx, d)
	}

	computed := make(map[string]eval.Value, len(order))
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return nil, e.finish(ctx, execID, rootCtx, diag.New(diag.Cancelled, "cancelled while computing %q", name))
		}
		field := e.computedByName(name)
		v, derr := eval.Eval(field.Expr, rootCtx, e.plugins)
		if derr != nil {
			return nil, e.finish(ctx, execID, rootCtx, derr)
		}
		rootCtx = rootCtx.With(name, v)
		computed[name] = v
	}

	if d := e.checkConstraints(lateConstraints, rootCtx); d != nil {
		return nil, e.finish(ctx, execID, rootCtx, d)
	}

	root := e.buildRoot(inputs, computed)
	rootCtx = rootCtx.With("self", root)

	if d := e.runLifecycle(ast.After, rootCtx); d != nil {
		return nil, e.finish(ctx, execID, rootCtx, d)
	}

	e.runLifecycleIgnoringError(ast.Finally, rootCtx)

	return &Result{ID: execID, Inputs: inputs, Computed: computed, Root: root}, nil
}

// finish fires onError (if the spec declares one) with the failing
// diagnostic, then always runs `finally`. Handler failures are
// appended as a secondary diagnostic, never replacing the original.
func (e *Engine) finish(ctx context.Context, execID string, rootCtx *eval.Context, cause *diag.Diagnostic) *diag.Diagnostic {
	if rootCtx == nil {
		rootCtx = eval.NewContext()
	}
	errValue := eval.Object(errorObject(cause))
	if handler := e.eventHandler(ast.OnError); handler != nil {
		handlerCtx := rootCtx.Shadow(handler.Param, errValue)
		if _, herr := eval.Eval(handler.Body, handlerCtx, e.plugins); herr != nil {
			cause = cause.Wrap(herr)
		}
	}
	e.runLifecycleIgnoringError(ast.Finally, rootCtx)
	return cause
}

func errorObject(d *diag.Diagnostic) *eval.OrderedMap {
	m := eval.NewOrderedMap()
	m.Set("kind", eval.String(string(d.Kind)))
	m.Set("message", eval.String(d.Message))
	if d.Span != nil {
		m.Set("span", eval.String(d.Span.String()))
	}
	return m
}

// registerSecrets tells e.plugins, if it implements eval.SecretSource,
// the bound raw values of every `secret`-modified input field, so a
// failing plugin call's error text can be redacted before it reaches
// a diagnostic. Only string-shaped values are redactable text; other
// kinds are stringified the same way a template interpolation would.
func (e *Engine) registerSecrets(inputs map[string]eval.Value) {
	sink, ok := e.plugins.(eval.SecretSource)
	if !ok {
		return
	}
	var secrets []string
	for _, f := range e.spec.Inputs {
		if !f.Modifiers.Secret {
			continue
		}
		v, bound := inputs[f.Name]
		if !bound || v.IsNull() {
			continue
		}
		secrets = append(secrets, eval.Stringify(v))
	}
	sink.SetSecretValues(secrets)
}

func (e *Engine) buildRoot(inputs, computed map[string]eval.Value) eval.Value {
	m := eval.NewOrderedMap()
	for _, f := range e.spec.Inputs {
		if v, ok := inputs[f.Name]; ok {
			m.Set(f.Name, v)
		}
	}
	for _, f := range e.spec.Computed {
		if v, ok := computed[f.Name]; ok {
			m.Set(f.Name, v)
		}
	}
	return eval.Object(m)
}

func (e *Engine) computedByName(name string) *ast.ComputedField {
	for _, f := range e.spec.Computed {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (e *Engine) eventHandler(kind ast.EventKind) *ast.EventHandler {
	for _, h := range e.spec.Events {
		if h.Kind == string(kind) {
			return h
		}
	}
	return nil
}

func (e *Engine) fireEvent(kind ast.EventKind, rootCtx *eval.Context, self eval.Value) *diag.Diagnostic {
	h := e.eventHandler(kind)
	if h == nil {
		return nil
	}
	handlerCtx := rootCtx.Shadow(h.Param, self)
	_, d := eval.Eval(h.Body, handlerCtx, e.plugins)
	return d
}

func (e *Engine) runLifecycle(phase ast.LifecyclePhase, rootCtx *eval.Context) *diag.Diagnostic {
	for _, hook := range e.spec.Lifecycle {
		if hook.Phase != phase {
			continue
		}
		if _, d := eval.Eval(hook.Body, rootCtx, e.plugins); d != nil {
			return d
		}
	}
	return nil
}

// runLifecycleIgnoringError runs every hook of phase regardless of
// individual failures; used for the finally phase, which always runs
// before Run returns. A failing hook's diagnostic is discarded: it is
// neither returned nor attached to the run's diagnostic.
func (e *Engine) runLifecycleIgnoringError(phase ast.LifecyclePhase, rootCtx *eval.Context) {
	for _, hook := range e.spec.Lifecycle {
		if hook.Phase != phase {
			continue
		}
		eval.Eval(hook.Body, rootCtx, e.plugins)
	}
}

// splitConstraints divides the spec's constraints into those that can
// run before any computed field exists (an assert whose predicate
// references only declared input names) and those that must wait
// until every computed field has a value (every ensure, and any
// assert that references a computed field). Order within each group
// follows declaration order.
func (e *Engine) splitConstraints() (early, late []*ast.Constraint) {
	inputNames := make(map[string]bool, len(e.spec.Inputs))
	for _, f := range e.spec.Inputs {
		inputNames[f.Name] = true
	}
	for _, c := range e.spec.Constraints {
		if c.Kind == ast.Assert && referencesOnly(c.Predicate, inputNames) {
			early = append(early, c)
		} else {
			late = append(late, c)
		}
	}
	return early, late
}

// referencesOnly reports whether every bare identifier expr refers to
// is present in allowed.
func referencesOnly(expr ast.Expression, allowed map[string]bool) bool {
	for name := range collectIdentifiers(expr) {
		if !allowed[name] {
			return false
		}
	}
	return true
}

func (e *Engine) checkConstraints(constraints []*ast.Constraint, rootCtx *eval.Context) *diag.Diagnostic {
	for _, c := range constraints {
		v, d := eval.Eval(c.Predicate, rootCtx, e.plugins)
		if d != nil {
			return d
		}
		if !v.Truthy() {
			msg := "constraint violated"
			if c.HasMessage {
				msg = c.Message
			}
			return diag.At(diag.ConstraintViolated, c.Span, "%s", msg)
		}
	}
	return nil
}

// topoSortComputed builds the computed-field dependency graph and
// returns field names in a topological order, ties broken by
// declaration order. A computed field depends on every input/computed
// field name its expression references.
func (e *Engine) topoSortComputed() ([]string, *diag.Diagnostic) {
	known := make(map[string]bool)
	for _, f := range e.spec.Inputs {
		known[f.Name] = true
	}
	declOrder := make([]string, 0, len(e.spec.Computed))
	deps := make(map[string][]string, len(e.spec.Computed))
	for _, f := range e.spec.Computed {
		known[f.Name] = true
		declOrder = append(declOrder, f.Name)
	}
	for _, f := range e.spec.Computed {
		refs := collectIdentifiers(f.Expr)
		var d []string
		for name := range refs {
			if name == f.Name {
				continue
			}
			if _, isComputed := deps[name]; isComputed || known[name] {
				if contains(declOrder, name) {
					d = append(d, name)
				}
			}
		}
		sort.Strings(d)
		deps[f.Name] = d
	}

	visited := make(map[string]int) // 0=unvisited,1=visiting,2=done
	var order []string
	var stack []string
	var cyclic map[string]bool

	var visit func(name string) bool
	visit = func(name string) bool {
		switch visited[name] {
		case 2:
			return true
		case 1:
			cyclic = make(map[string]bool)
			for i := len(stack) - 1; i >= 0; i-- {
				cyclic[stack[i]] = true
				if stack[i] == name {
					break
				}
			}
			cyclic[name] = true
			return false
		}
		visited[name] = 1
		stack = append(stack, name)
		for _, dep := range deps[name] {
			if _, isComputedDep := deps[dep]; isComputedDep {
				if !visit(dep) {
					return false
				}
			}
		}
		stack = stack[:len(stack)-1]
		visited[name] = 2
		order = append(order, name)
		return true
	}

	for _, name := range declOrder {
		if visited[name] == 0 {
			if !visit(name) {
				names := make([]string, 0, len(cyclic))
				for n := range cyclic {
					names = append(names, n)
				}
				sort.Strings(names)
				return nil, diag.New(diag.CycleDetected, "computed-field dependency cycle: %v", names)
			}
		}
	}
	return order, nil
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func collectIdentifiers(expr ast.Expression) map[string]bool {
	c := &identifierCollector{names: make(map[string]bool)}
	if expr != nil {
		expr.Accept(c)
	}
	return c.names
}

// identifierCollector walks an expression collecting every bare
// identifier it references. It overrides every composite node type
// itself rather than leaning on ast.BaseVisitor's default traversal:
// a promoted BaseVisitor method recurses by calling Accept on its own
// embedded receiver, not on identifierCollector, so any node type left
// un-overridden would silently stop dispatching back into this
// visitor past that point.
type identifierCollector struct {
	ast.BaseVisitor
	names map[string]bool
}

func (c *identifierCollector) VisitIdentifier(n *ast.Identifier) interface{} {
	c.names[n.Name] = true
	return nil
}

func (c *identifierCollector) VisitPropertyAccess(n *ast.PropertyAccess) interface{} {
	if n.Target != nil {
		n.Target.Accept(c)
	}
	return nil
}

func (c *identifierCollector) VisitIndexAccess(n *ast.IndexAccess) interface{} {
	if n.Target != nil {
		n.Target.Accept(c)
	}
	if n.Index != nil {
		n.Index.Accept(c)
	}
	return nil
}

func (c *identifierCollector) VisitBinary(n *ast.Binary) interface{} {
	if n.Left != nil {
		n.Left.Accept(c)
	}
	if n.Right != nil {
		n.Right.Accept(c)
	}
	return nil
}

func (c *identifierCollector) VisitUnary(n *ast.Unary) interface{} {
	if n.Operand != nil {
		n.Operand.Accept(c)
	}
	return nil
}

func (c *identifierCollector) VisitConditional(n *ast.Conditional) interface{} {
	if n.Cond != nil {
		n.Cond.Accept(c)
	}
	if n.Then != nil {
		n.Then.Accept(c)
	}
	if n.Else != nil {
		n.Else.Accept(c)
	}
	return nil
}

func (c *identifierCollector) VisitStringTemplate(n *ast.StringTemplate) interface{} {
	for _, part := range n.Parts {
		if part.Expr != nil {
			part.Expr.Accept(c)
		}
	}
	return nil
}

func (c *identifierCollector) VisitArgument(n *ast.Argument) interface{} {
	if n.Value != nil {
		n.Value.Accept(c)
	}
	return nil
}

func (c *identifierCollector) VisitFunctionCall(n *ast.FunctionCall) interface{} {
	for _, a := range n.Args {
		a.Accept(c)
	}
	return nil
}
