// Package visitors provides AST visitor implementations backing
// SIGMOS's describe CLI command.
package visitors

import (
	"fmt"
	"strings"

	"github.com/gaarutyunov/sigmos/pkg/ast"
)

// DebugPrinter renders a parsed Spec as an indented tree, the
// `describe` command's primary output.
type DebugPrinter struct {
	ast.BaseVisitor
	output strings.Builder
	indent int
}

func NewDebugPrinter() *DebugPrinter {
	return &DebugPrinter{}
}

func (d *DebugPrinter) String() string {
	return d.output.String()
}

func (d *DebugPrinter) print(format string, args ...interface{}) {
	d.output.WriteString(strings.Repeat("  ", d.indent))
	d.output.WriteString(fmt.Sprintf(format, args...))
	d.output.WriteString("\n")
}

// PrintSpec walks spec top to bottom, printing every block in
// declaration order.
func (d *DebugPrinter) PrintSpec(spec *ast.Spec) string {
	d.print("Spec: %s v%d.%d.%d", spec.Name, spec.Version.Major, spec.Version.Minor, spec.Version.Patch)
	d.indent++
	if spec.Description != "" {
		d.print("Description: %q", spec.Description)
	}

	if len(spec.Types) > 0 {
		d.print("Types:")
		d.indent++
		for _, t := range spec.Types {
			d.print("%s: %s", t.Name, d.typeString(t.Type))
		}
		d.indent--
	}

	if len(spec.Inputs) > 0 {
		d.print("Inputs:")
		d.indent++
		for _, f := range spec.Inputs {
			d.print("%s: %s", f.Name, d.typeString(f.Type))
			if f.Default != nil {
				d.indent++
				d.print("Default:")
				d.indent++
				f.Default.Accept(d)
				d.indent--
				d.indent--
			}
		}
		d.indent--
	}

	if len(spec.Computed) > 0 {
		d.print("Computed:")
		d.indent++
		for _, f := range spec.Computed {
			d.print("%s: %s", f.Name, d.typeString(f.Type))
			d.indent++
			f.Expr.Accept(d)
			d.indent--
		}
		d.indent--
	}

	if len(spec.Constraints) > 0 {
		d.print("Constraints:")
		d.indent++
		for _, c := range spec.Constraints {
			d.print("%s:", c.Kind)
			d.indent++
			c.Predicate.Accept(d)
			d.indent--
		}
		d.indent--
	}

	if len(spec.Events) > 0 {
		d.print("Events:")
		d.indent++
		for _, h := range spec.Events {
			d.print("%s(%s):", h.Kind, h.Param)
			d.indent++
			h.Body.Accept(d)
			d.indent--
		}
		d.indent--
	}

	if len(spec.Lifecycle) > 0 {
		d.print("Lifecycle:")
		d.indent++
		for _, h := range spec.Lifecycle {
			d.print("%s:", h.Phase)
			d.indent++
			h.Body.Accept(d)
			d.indent--
		}
		d.indent--
	}

	if len(spec.Extensions) > 0 {
		d.print("Extensions:")
		d.indent++
		for _, e := range spec.Extensions {
			d.print("%s -> %s", e.Alias, e.Ref)
		}
		d.indent--
	}

	d.indent--
	return d.output.String()
}

func (d *DebugPrinter) typeString(t *ast.TypeExpr) string {
	if t == nil {
		return "?"
	}
	switch t.Kind {
	case ast.TList:
		return "[" + d.typeString(t.Elem) + "]"
	case ast.TMap:
		return "map[" + d.typeString(t.Key) + "]" + d.typeString(t.Val)
	case ast.TEnum:
		return "enum(" + strings.Join(t.EnumValues, "|") + ")"
	case ast.TUnion:
		parts := make([]string, len(t.UnionMembers))
		for i, m := range t.UnionMembers {
			parts[i] = d.typeString(m)
		}
		return strings.Join(parts, " | ")
	case ast.TStruct:
		parts := make([]string, len(t.StructFields))
		for i, f := range t.StructFields {
			parts[i] = f.Name + ": " + d.typeString(f.Type)
		}
		return "struct{" + strings.Join(parts, ", ") + "}"
	case ast.TRef:
		return "ref(" + t.RefPath + ")"
	case ast.TNamed:
		return t.Name
	default:
		return t.Name
	}
}

func (d *DebugPrinter) VisitLiteral(node *ast.Literal) interface{} {
	switch node.Kind {
	case ast.LitString:
		d.print("String: %q", node.Str)
	case ast.LitNumber:
		d.print("Number: %v", node.Num)
	case ast.LitBool:
		d.print("Bool: %v", node.Bool)
	default:
		d.print("Null")
	}
	return nil
}

func (d *DebugPrinter) VisitIdentifier(node *ast.Identifier) interface{} {
	d.print("Ident: %s", node.Name)
	return nil
}

func (d *DebugPrinter) VisitPropertyAccess(node *ast.PropertyAccess) interface{} {
	d.print("Property: .%s", node.Name)
	d.indent++
	node.Target.Accept(d)
	d.indent--
	return nil
}

func (d *DebugPrinter) VisitIndexAccess(node *ast.IndexAccess) interface{} {
	d.print("Index:")
	d.indent++
	node.Target.Accept(d)
	node.Index.Accept(d)
	d.indent--
	return nil
}

func (d *DebugPrinter) VisitBinary(node *ast.Binary) interface{} {
	d.print("Binary: %s", node.Op)
	d.indent++
	node.Left.Accept(d)
	node.Right.Accept(d)
	d.indent--
	return nil
}

func (d *DebugPrinter) VisitUnary(node *ast.Unary) interface{} {
	d.print("Unary: %s", node.Op)
	d.indent++
	node.Operand.Accept(d)
	d.indent--
	return nil
}

func (d *DebugPrinter) VisitConditional(node *ast.Conditional) interface{} {
	d.print("Conditional:")
	d.indent++
	d.print("Cond:")
	d.indent++
	node.Cond.Accept(d)
	d.indent--
	d.print("Then:")
	d.indent++
	node.Then.Accept(d)
	d.indent--
	d.print("Else:")
	d.indent++
	node.Else.Accept(d)
	d.indent--
	d.indent--
	return nil
}

func (d *DebugPrinter) VisitStringTemplate(node *ast.StringTemplate) interface{} {
	d.print("Template:")
	d.indent++
	for _, part := range node.Parts {
		if part.Expr == nil {
			d.print("Text: %q", part.Text)
		} else {
			part.Expr.Accept(d)
		}
	}
	d.indent--
	return nil
}

func (d *DebugPrinter) VisitArgument(node *ast.Argument) interface{} {
	if node.Name != "" {
		d.print("Arg %s:", node.Name)
	} else {
		d.print("Arg:")
	}
	d.indent++
	node.Value.Accept(d)
	d.indent--
	return nil
}

func (d *DebugPrinter) VisitFunctionCall(node *ast.FunctionCall) interface{} {
	d.print("Call: %s.%s(...)", node.Object, node.Method)
	d.indent++
	for _, arg := range node.Args {
		arg.Accept(d)
	}
	d.indent--
	return nil
}
