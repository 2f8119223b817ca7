package eval

import (
	"math"
	"strconv"

	"github.com/gaarutyunov/sigmos/internal/diag"
	"github.com/gaarutyunov/sigmos/pkg/ast"
)

// PluginCaller is the boundary the evaluator uses to delegate
// FunctionCall nodes whose object names a declared extension, always
// under the control of the same caller. pkg/plugin.Registry
// implements this.
type PluginCaller interface {
	Invoke(alias, method string, args *OrderedMap) (Value, *diag.Diagnostic)
}

// SecretSource is an optional capability a PluginCaller can implement
// to be told which raw values the current execution considers secret
// (the bound values of `secret`-modified input fields), so that a
// failing plugin call's error text can be redacted before it reaches
// a diagnostic. pkg/plugin.Registry implements this; callers that
// don't are simply never told and redact nothing.
type SecretSource interface {
	SetSecretValues(values []string)
}

// result is the interface{} payload every Visit method returns,
// since ast.Visitor's signature predates a typed (Value, error)
// return; Eval and evalChild unwrap it.
type result struct {
	value Value
	err   *diag.Diagnostic
}

func ok(v Value) interface{}                   { return result{value: v} }
func fail(d *diag.Diagnostic) interface{}      { return result{err: d} }

// Evaluator is a pure function of (expression, context); its only
// side-effecting capability is the plugin delegation in
// VisitFunctionCall, and even that is controlled entirely by the
// caller's PluginCaller. No I/O happens and no hidden state is kept
// outside of it.
type Evaluator struct {
	ast.BaseVisitor
	ctx     *Context
	plugins PluginCaller
}

// Eval evaluates expr against ctx, delegating extension calls to
// plugins.
func Eval(expr ast.Expression, ctx *Context, plugins PluginCaller) (Value, *diag.Diagnostic) {
	if expr == nil {
		return Null(), nil
	}
	e := &Evaluator{ctx: ctx, plugins: plugins}
	r := expr.Accept(e).(result)
	return r.value, r.err
}

func (e *Evaluator) VisitLiteral(n *ast.Literal) interface{} {
	switch n.Kind {
	case ast.LitString:
		return ok(String(n.Str))
	case ast.LitNumber:
		return ok(Number(n.Num))
	case ast.LitBool:
		return ok(Bool(n.Bool))
	default:
		return ok(Null())
	}
}

func (e *Evaluator) VisitIdentifier(n *ast.Identifier) interface{} {
	v, found := e.ctx.Lookup(n.Name)
	if !found {
		if guess := ast.SuggestName(e.ctx.Names(), n.Name); guess != "" {
			return fail(diag.At(diag.UnknownIdentifier, n.Pos, "unknown identifier %q (did you mean %q?)", n.Name, guess))
		}
		return fail(diag.At(diag.UnknownIdentifier, n.Pos, "unknown identifier %q", n.Name))
	}
	return ok(v)
}

func (e *Evaluator) VisitPropertyAccess(n *ast.PropertyAccess) interface{} {
	tv, d := e.evalChild(n.Target)
	if d != nil {
		return fail(d)
	}
	if tv.Kind() != KindObject {
		return fail(diag.At(diag.TypeMismatch, n.Pos, "property access on non-object value"))
	}
	v, found := tv.AsObject().Get(n.Name)
	if !found {
		return ok(Null())
	}
	return ok(v)
}

func (e *Evaluator) VisitIndexAccess(n *ast.IndexAccess) interface{} {
	tv, d := e.evalChild(n.Target)
	if d != nil {
		return fail(d)
	}
	iv, d := e.evalChild(n.Index)
	if d != nil {
		return fail(d)
	}
	switch tv.Kind() {
	case KindArray:
		if iv.Kind() != KindNumber {
			return fail(diag.At(diag.TypeMismatch, n.Pos, "array index must be a number"))
		}
		idx := int(math.Floor(iv.AsNumber()))
		if idx < 0 {
			return fail(diag.At(diag.IndexOutOfRange, n.Pos, "negative array index %d", idx))
		}
		arr := tv.AsArray()
		if idx >= len(arr) {
			return ok(Null())
		}
		return ok(arr[idx])
	case KindObject:
		if iv.Kind() != KindString {
			return fail(diag.At(diag.TypeMismatch, n.Pos, "object index must be a string"))
		}
		v, found := tv.AsObject().Get(iv.AsString())
		if !found {
			return ok(Null())
		}
		return ok(v)
	default:
		return fail(diag.At(diag.TypeMismatch, n.Pos, "index access on non-array, non-object value"))
	}
}

func (e *Evaluator) VisitUnary(n *ast.Unary) interface{} {
	v, d := e.evalChild(n.Operand)
	if d != nil {
		return fail(d)
	}
	switch n.Op {
	case "!":
		return ok(Bool(!v.Truthy()))
	case "-":
		if v.Kind() != KindNumber {
			return fail(diag.At(diag.TypeMismatch, n.Pos, "unary - requires a number"))
		}
		return ok(Number(-v.AsNumber()))
	default:
		return fail(diag.At(diag.Syntax, n.Pos, "unknown unary operator %q", n.Op))
	}
}

func (e *Evaluator) VisitConditional(n *ast.Conditional) interface{} {
	cv, d := e.evalChild(n.Cond)
	if d != nil {
		return fail(d)
	}
	// Short-circuit: only the selected branch is evaluated.
	if cv.Truthy() {
		v, d := e.evalChild(n.Then)
		if d != nil {
			return fail(d)
		}
		return ok(v)
	}
	v, d := e.evalChild(n.Else)
	if d != nil {
		return fail(d)
	}
	return ok(v)
}

func (e *Evaluator) VisitBinary(n *ast.Binary) interface{} {
	// && and || short-circuit before evaluating the right operand.
	if n.Op == ast.OpAnd || n.Op == ast.OpOr {
		lv, d := e.evalChild(n.Left)
		if d != nil {
			return fail(d)
		}
		if n.Op == ast.OpAnd && !lv.Truthy() {
			return ok(Bool(false))
		}
		if n.Op == ast.OpOr && lv.Truthy() {
			return ok(Bool(true))
		}
		rv, d := e.evalChild(n.Right)
		if d != nil {
			return fail(d)
		}
		return ok(Bool(rv.Truthy()))
	}

	lv, d := e.evalChild(n.Left)
	if d != nil {
		return fail(d)
	}
	rv, d := e.evalChild(n.Right)
	if d != nil {
		return fail(d)
	}
	return e.applyBinary(n, lv, rv)
}

func (e *Evaluator) applyBinary(n *ast.Binary, lv, rv Value) interface{} {
	switch n.Op {
	case ast.OpAdd:
		if lv.Kind() == KindNumber && rv.Kind() == KindNumber {
			return ok(Number(lv.AsNumber() + rv.AsNumber()))
		}
		if lv.Kind() == KindArray && rv.Kind() == KindArray {
			return ok(Array(append(append([]Value{}, lv.AsArray()...), rv.AsArray()...)))
		}
		if lv.Kind() == KindString || rv.Kind() == KindString {
			return ok(String(Stringify(lv) + Stringify(rv)))
		}
		return fail(diag.At(diag.TypeMismatch, n.Pos, "+ requires numbers, strings, or arrays"))
	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		if lv.Kind() != KindNumber || rv.Kind() != KindNumber {
			return fail(diag.At(diag.TypeMismatch, n.Pos, "%s requires numbers", n.Op))
		}
		a, b := lv.AsNumber(), rv.AsNumber()
		switch n.Op {
		case ast.OpSub:
			return ok(Number(a - b))
		case ast.OpMul:
			return ok(Number(a * b))
		case ast.OpDiv:
			if b == 0 {
				return fail(diag.At(diag.DivByZero, n.Pos, "division by zero"))
			}
			return ok(Number(a / b))
		case ast.OpMod:
			if b == 0 {
				return fail(diag.At(diag.DivByZero, n.Pos, "modulo by zero"))
			}
			return ok(Number(math.Mod(a, b)))
		}
	case ast.OpEq:
		return ok(Bool(lv.Equal(rv)))
	case ast.OpNeq:
		return ok(Bool(!lv.Equal(rv)))
	case ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		return e.compare(n, lv, rv)
	}
	return fail(diag.At(diag.Syntax, n.Pos, "unknown binary operator %q", n.Op))
}

func (e *Evaluator) compare(n *ast.Binary, lv, rv Value) interface{} {
	var cmp int
	switch {
	case lv.Kind() == KindNumber && rv.Kind() == KindNumber:
		a, b := lv.AsNumber(), rv.AsNumber()
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		default:
			cmp = 0
		}
	case lv.Kind() == KindString && rv.Kind() == KindString:
		a, b := lv.AsString(), rv.AsString()
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		default:
			cmp = 0
		}
	default:
		return fail(diag.At(diag.TypeMismatch, n.Pos, "ordering requires two numbers or two strings"))
	}
	switch n.Op {
	case ast.OpLt:
		return ok(Bool(cmp < 0))
	case ast.OpLte:
		return ok(Bool(cmp <= 0))
	case ast.OpGt:
		return ok(Bool(cmp > 0))
	default: // OpGte
		return ok(Bool(cmp >= 0))
	}
}

func (e *Evaluator) VisitStringTemplate(n *ast.StringTemplate) interface{} {
	out := ""
	for _, part := range n.Parts {
		if part.Expr == nil {
			out += part.Text
			continue
		}
		v, d := e.evalChild(part.Expr)
		if d != nil {
			return fail(d)
		}
		out += Stringify(v)
	}
	return ok(String(out))
}

func (e *Evaluator) VisitArgument(n *ast.Argument) interface{} {
	v, d := e.evalChild(n.Value)
	if d != nil {
		return fail(d)
	}
	return ok(v)
}

func (e *Evaluator) VisitFunctionCall(n *ast.FunctionCall) interface{} {
	named := NewOrderedMap()
	positional := make([]Value, 0, len(n.Args))
	for _, arg := range n.Args {
		v, d := e.evalChild(arg.Value)
		if d != nil {
			return fail(d)
		}
		if arg.Name != "" {
			named.Set(arg.Name, v)
		} else {
			positional = append(positional, v)
		}
	}

	if n.IsBuiltin() {
		return e.callBuiltin(n, positional, named)
	}

	if e.plugins == nil {
		return fail(diag.At(diag.UnknownExtension, n.Pos, "no plugin registry configured for extension %q", n.Object))
	}
	// Positional args bind to declared parameter order; the plugin
	// registry performs that binding, so positional values are passed
	// through named under numeric placeholder keys the registry
	// resolves against each method's declared parameter list.
	allArgs := positionalThenNamed(positional, named)
	v, d := e.plugins.Invoke(n.Object, n.Method, allArgs)
	if d != nil {
		return fail(d)
	}
	return ok(v)
}

// positionalThenNamed merges positional values (keyed "$0", "$1", ...)
// with named values into one ordered map for the registry to resolve,
// preserving positional-then-named ordering.
func positionalThenNamed(positional []Value, named *OrderedMap) *OrderedMap {
	merged := NewOrderedMap()
	for i, v := range positional {
		merged.Set("$"+strconv.Itoa(i), v)
	}
	for _, k := range named.Keys() {
		v, _ := named.Get(k)
		merged.Set(k, v)
	}
	return merged
}

func (e *Evaluator) evalChild(expr ast.Expression) (Value, *diag.Diagnostic) {
	r := expr.Accept(e).(result)
	return r.value, r.err
}
