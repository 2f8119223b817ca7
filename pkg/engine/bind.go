package engine

import (
	"context"
	"regexp"

	"github.com/gaarutyunov/sigmos/internal/diag"
	"github.com/gaarutyunov/sigmos/pkg/ast"
	"github.com/gaarutyunov/sigmos/pkg/eval"
)

// bindInputs resolves each declared input field against
// providedInputs, falling back to its default expression (evaluated
// against only the inputs already bound, in declaration order), then
// validating the bound value against its declared type and modifiers.
func (e *Engine) bindInputs(ctx context.Context, provided map[string]eval.Value) (map[string]eval.Value, *diag.Diagnostic) {
	if err := ctx.Err(); err != nil {
		return nil, diag.New(diag.Cancelled, "cancelled before input binding")
	}
	bound := make(map[string]eval.Value, len(e.spec.Inputs))
	defaultCtx := eval.NewContext()

	for _, f := range e.spec.Inputs {
		v, has := provided[f.Name]
		if !has {
			if f.Default != nil {
				dv, d := eval.Eval(f.Default, defaultCtx, e.plugins)
				if d != nil {
					return nil, d
				}
				v = dv
				has = true
			} else if f.Modifiers.Required {
				return nil, diag.At(diag.MissingInput, f.Span, "missing required input %q", f.Name)
			} else {
				v = eval.Null()
				has = true
			}
		}
		if d := e.validateInput(f, v); d != nil {
			return nil, d
		}
		bound[f.Name] = v
		defaultCtx = defaultCtx.With(f.Name, v)
	}
	return bound, nil
}

// validateInput checks v against f's declared type and the closed set
// of modifier constraints (pattern, min, max, min_length, max_length).
// A Null value for an optional field always passes.
func (e *Engine) validateInput(f *ast.InputField, v eval.Value) *diag.Diagnostic {
	if v.IsNull() && !f.Modifiers.Required {
		return nil
	}
	if !e.typeMatches(f.Type, v) {
		return diag.At(diag.TypeMismatch, f.Span, "input %q does not match its declared type", f.Name)
	}

	mods := f.Modifiers
	if mods.HasPattern && v.Kind() == eval.KindString {
		re, err := regexp.Compile(mods.Pattern)
		if err != nil {
			return diag.At(diag.BadModifier, f.Span, "input %q has an invalid pattern: %s", f.Name, err)
		}
		if !re.MatchString(v.AsString()) {
			return diag.At(diag.TypeMismatch, f.Span, "input %q does not match pattern %q", f.Name, mods.Pattern)
		}
	}
	if v.Kind() == eval.KindNumber {
		n := v.AsNumber()
		if mods.HasMin && n < mods.Min {
			return diag.At(diag.TypeMismatch, f.Span, "input %q is below minimum %v", f.Name, mods.Min)
		}
		if mods.HasMax && n > mods.Max {
			return diag.At(diag.TypeMismatch, f.Span, "input %q is above maximum %v", f.Name, mods.Max)
		}
	}
	if v.Kind() == eval.KindString {
		n := len([]rune(v.AsString()))
		if mods.HasMinLength && n < mods.MinLength {
			return diag.At(diag.TypeMismatch, f.Span, "input %q is shorter than min_length %d", f.Name, mods.MinLength)
		}
		if mods.HasMaxLength && n > mods.MaxLength {
			return diag.At(diag.TypeMismatch, f.Span, "input %q is longer than max_length %d", f.Name, mods.MaxLength)
		}
	}
	return nil
}

// typeMatches is a structural, best-effort check between a declared
// TypeExpr and a runtime Value. Prompt/TextGenerate/Ref types accept
// any string, since their content is opaque to the type system — its
// runtime shape is up to the plugin that produces it.
func (e *Engine) typeMatches(t *ast.TypeExpr, v eval.Value) bool {
	if t == nil {
		return true
	}
	switch t.Kind {
	case ast.TString, ast.TPrompt, ast.TTextGenerate, ast.TRef:
		return v.Kind() == eval.KindString
	case ast.TInt, ast.TFloat:
		return v.Kind() == eval.KindNumber
	case ast.TBool:
		return v.Kind() == eval.KindBool
	case ast.TNull:
		return v.IsNull()
	case ast.TList:
		if v.Kind() != eval.KindArray {
			return false
		}
		for _, elem := range v.AsArray() {
			if !e.typeMatches(t.Elem, elem) {
				return false
			}
		}
		return true
	case ast.TMap:
		if v.Kind() != eval.KindObject {
			return false
		}
		for _, k := range v.AsObject().Keys() {
			val, _ := v.AsObject().Get(k)
			if !e.typeMatches(t.Val, val) {
				return false
			}
		}
		return true
	case ast.TEnum:
		if v.Kind() != eval.KindString {
			return false
		}
		for _, ev := range t.EnumValues {
			if ev == v.AsString() {
				return true
			}
		}
		return false
	case ast.TUnion:
		for _, member := range t.UnionMembers {
			if e.typeMatches(member, v) {
				return true
			}
		}
		return false
	case ast.TStruct:
		if v.Kind() != eval.KindObject {
			return false
		}
		for _, field := range t.StructFields {
			fv, ok := v.AsObject().Get(field.Name)
			if !ok || !e.typeMatches(field.Type, fv) {
				return false
			}
		}
		return true
	case ast.TNamed:
		if named, ok := e.types[t.Name]; ok {
			return e.typeMatches(named, v)
		}
		return true
	default:
		return true
	}
}
