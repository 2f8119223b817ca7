package ast

// BaseVisitor provides default traversal for every Expression node so
// visitors can embed it and override only the methods they care
// about. Caution: overriding some but not all node types means
// traversal through an unoverridden node type is handled by
// BaseVisitor's own method, whose receiver is the embedded field —
// not the outer visitor — so any further Accept calls it makes lose
// the outer overrides for the rest of that subtree. A visitor that
// cares about nested expressions needs an explicit override on every
// composite node type it can be reached through, not just the ones it
// has distinct behavior for.
type BaseVisitor struct{}

var _ Visitor = (*BaseVisitor)(nil)

func (v *BaseVisitor) VisitLiteral(node *Literal) interface{} { return nil }

func (v *BaseVisitor) VisitIdentifier(node *Identifier) interface{} { return nil }

func (v *BaseVisitor) VisitPropertyAccess(node *PropertyAccess) interface{} {
	if node.Target != nil {
		node.Target.Accept(v)
	}
	return nil
}

func (v *BaseVisitor) VisitIndexAccess(node *IndexAccess) interface{} {
	if node.Target != nil {
		node.Target.Accept(v)
	}
	if node.Index != nil {
		node.Index.Accept(v)
	}
	return nil
}

func (v *BaseVisitor) VisitBinary(node *Binary) interface{} {
	if node.Left != nil {
		node.Left.Accept(v)
	}
	if node.Right != nil {
		node.Right.Accept(v)
	}
	return nil
}

func (v *BaseVisitor) VisitUnary(node *Unary) interface{} {
	if node.Operand != nil {
		node.Operand.Accept(v)
	}
	return nil
}

func (v *BaseVisitor) VisitConditional(node *Conditional) interface{} {
	if node.Cond != nil {
		node.Cond.Accept(v)
	}
	if node.Then != nil {
		node.Then.Accept(v)
	}
	if node.Else != nil {
		node.Else.Accept(v)
	}
	return nil
}

func (v *BaseVisitor) VisitStringTemplate(node *StringTemplate) interface{} {
	for _, part := range node.Parts {
		if part.Expr != nil {
			part.Expr.Accept(v)
		}
	}
	return nil
}

func (v *BaseVisitor) VisitArgument(node *Argument) interface{} {
	if node.Value != nil {
		node.Value.Accept(v)
	}
	return nil
}

func (v *BaseVisitor) VisitFunctionCall(node *FunctionCall) interface{} {
	for _, arg := range node.Args {
		arg.Accept(v)
	}
	return nil
}
