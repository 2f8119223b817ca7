// Package transpile renders a parsed Spec into a portable document
// shape: a spec/version/description/inputs/computed/events/
// constraints/lifecycle/extensions object, with expression bodies
// serialized as tagged-form AST. It is a read-only projection; nothing
// here round-trips back into a Spec.
package transpile

import (
	"fmt"

	"github.com/gaarutyunov/sigmos/pkg/ast"
)

// Document is the transpiled shape of a Spec, built once and then fed
// to either encoder.
type Document struct {
	Spec        string                   `json:"spec" yaml:"spec"`
	Version     VersionDoc               `json:"version" yaml:"version"`
	Description string                   `json:"description,omitempty" yaml:"description,omitempty"`
	Inputs      []map[string]interface{} `json:"inputs" yaml:"inputs"`
	Computed    []map[string]interface{} `json:"computed" yaml:"computed"`
	Events      []map[string]interface{} `json:"events" yaml:"events"`
	Constraints []map[string]interface{} `json:"constraints" yaml:"constraints"`
	Lifecycle   []map[string]interface{} `json:"lifecycle" yaml:"lifecycle"`
	Extensions  map[string]string        `json:"extensions" yaml:"extensions"`
}

type VersionDoc struct {
	Major int `json:"major" yaml:"major"`
	Minor int `json:"minor" yaml:"minor"`
	Patch int `json:"patch" yaml:"patch"`
}

// Build projects spec into a Document.
func Build(spec *ast.Spec) *Document {
	doc := &Document{
		Spec:        spec.Name,
		Version:     VersionDoc{spec.Version.Major, spec.Version.Minor, spec.Version.Patch},
		Description: spec.Description,
		Extensions:  map[string]string{},
	}
	for _, f := range spec.Inputs {
		entry := map[string]interface{}{
			"name":      f.Name,
			"type":      typeName(f.Type),
			"modifiers": modifiersDoc(f.Modifiers),
		}
		if f.Default != nil {
			entry["default"] = exprNode(f.Default)
		}
		doc.Inputs = append(doc.Inputs, entry)
	}
	for _, f := range spec.Computed {
		doc.Computed = append(doc.Computed, map[string]interface{}{
			"name":       f.Name,
			"type":       typeName(f.Type),
			"expression": exprNode(f.Expr),
		})
	}
	for _, h := range spec.Events {
		doc.Events = append(doc.Events, map[string]interface{}{
			"kind":  h.Kind,
			"param": h.Param,
			"body":  exprNode(h.Body),
		})
	}
	for _, c := range spec.Constraints {
		entry := map[string]interface{}{
			"kind":      string(c.Kind),
			"predicate": exprNode(c.Predicate),
		}
		if c.HasMessage {
			entry["message"] = c.Message
		}
		doc.Constraints = append(doc.Constraints, entry)
	}
	for _, h := range spec.Lifecycle {
		doc.Lifecycle = append(doc.Lifecycle, map[string]interface{}{
			"phase": string(h.Phase),
			"body":  exprNode(h.Body),
		})
	}
	for _, e := range spec.Extensions {
		doc.Extensions[e.Alias] = fmt.Sprintf("%s@%s", e.RefName, e.RefVer)
	}
	return doc
}

func modifiersDoc(m ast.FieldModifiers) map[string]interface{} {
	out := map[string]interface{}{
		"required": m.Required,
		"readOnly": m.ReadOnly,
		"secret":   m.Secret,
		"generate": m.Generate,
		"optional": m.Optional,
	}
	if m.HasPattern {
		out["pattern"] = m.Pattern
	}
	if m.HasMin {
		out["min"] = m.Min
	}
	if m.HasMax {
		out["max"] = m.Max
	}
	if m.HasMinLength {
		out["minLength"] = m.MinLength
	}
	if m.HasMaxLength {
		out["maxLength"] = m.MaxLength
	}
	if m.Description != "" {
		out["description"] = m.Description
	}
	return out
}

func typeName(t *ast.TypeExpr) string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case ast.TList:
		return "[" + typeName(t.Elem) + "]"
	case ast.TMap:
		return "map[" + typeName(t.Key) + "]" + typeName(t.Val)
	case ast.TRef:
		return "ref(" + t.RefPath + ")"
	default:
		return t.Name
	}
}

// exprNode serializes one Expression node with a tagged `kind` field
// plus its structural children.
func exprNode(e ast.Expression) map[string]interface{} {
	if e == nil {
		return nil
	}
	v := &exprVisitor{}
	return e.Accept(v).(map[string]interface{})
}

type exprVisitor struct{ ast.BaseVisitor }

func (exprVisitor) VisitLiteral(n *ast.Literal) interface{} {
	out := map[string]interface{}{"kind": "literal"}
	switch n.Kind {
	case ast.LitString:
		out["value"] = n.Str
	case ast.LitNumber:
		out["value"] = n.Num
	case ast.LitBool:
		out["value"] = n.Bool
	default:
		out["value"] = nil
	}
	return out
}

func (exprVisitor) VisitIdentifier(n *ast.Identifier) interface{} {
	return map[string]interface{}{"kind": "identifier", "name": n.Name}
}

func (v exprVisitor) VisitPropertyAccess(n *ast.PropertyAccess) interface{} {
	return map[string]interface{}{"kind": "property", "target": exprNode(n.Target), "name": n.Name}
}

func (v exprVisitor) VisitIndexAccess(n *ast.IndexAccess) interface{} {
	return map[string]interface{}{"kind": "index", "target": exprNode(n.Target), "index": exprNode(n.Index)}
}

func (v exprVisitor) VisitBinary(n *ast.Binary) interface{} {
	return map[string]interface{}{"kind": "binary", "op": string(n.Op), "left": exprNode(n.Left), "right": exprNode(n.Right)}
}

func (v exprVisitor) VisitUnary(n *ast.Unary) interface{} {
	return map[string]interface{}{"kind": "unary", "op": n.Op, "operand": exprNode(n.Operand)}
}

func (v exprVisitor) VisitConditional(n *ast.Conditional) interface{} {
	return map[string]interface{}{
		"kind": "conditional",
		"cond": exprNode(n.Cond), "then": exprNode(n.Then), "else": exprNode(n.Else),
	}
}

func (v exprVisitor) VisitStringTemplate(n *ast.StringTemplate) interface{} {
	parts := make([]map[string]interface{}, len(n.Parts))
	for i, p := range n.Parts {
		if p.Expr == nil {
			parts[i] = map[string]interface{}{"text": p.Text}
		} else {
			parts[i] = map[string]interface{}{"expr": exprNode(p.Expr)}
		}
	}
	return map[string]interface{}{"kind": "template", "parts": parts}
}

func (v exprVisitor) VisitArgument(n *ast.Argument) interface{} {
	out := map[string]interface{}{"value": exprNode(n.Value)}
	if n.Name != "" {
		out["name"] = n.Name
	}
	return out
}

func (v exprVisitor) VisitFunctionCall(n *ast.FunctionCall) interface{} {
	args := make([]interface{}, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.Accept(v)
	}
	return map[string]interface{}{"kind": "call", "object": n.Object, "method": n.Method, "args": args}
}
