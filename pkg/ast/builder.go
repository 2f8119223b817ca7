package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gaarutyunov/sigmos/internal/diag"
	"github.com/gaarutyunov/sigmos/pkg/parser"
)

// Build converts the raw grammar tree into the typed Spec, performing
// structural checks (field-name uniqueness, modifier legality,
// type-form arity) and the precedence-climbing pass that turns the
// grammar's flat binary-operator run into nested Binary nodes. It
// never partially mutates a caller-visible AST: on any diagnostic it
// returns (nil, diagnostics).
func Build(raw *parser.RawSpec) (*Spec, diag.List) {
	b := &builder{}
	spec := b.buildSpec(raw)
	if b.diags.HasErrors() {
		return nil, b.diags
	}
	return spec, nil
}

type builder struct {
	diags diag.List
}

func (b *builder) errorf(span Span, kind diag.Kind, format string, args ...interface{}) {
	b.diags = append(b.diags, diag.At(kind, span, format, args...))
}

func (b *builder) buildSpec(raw *parser.RawSpec) *Spec {
	spec := &Spec{Span: raw.Pos, Name: strings.Trim(raw.Name, `"`)}
	if spec.Name == "" {
		b.errorf(raw.Pos, diag.Syntax, "spec name must not be empty")
	}
	spec.Version = parseVersion(raw.Version)

	seenBlock := map[string]bool{}
	markBlock := func(label string, pos Span) bool {
		if seenBlock[label] {
			b.errorf(pos, diag.Syntax, "block %q may appear at most once", label)
			return false
		}
		seenBlock[label] = true
		return true
	}

	for _, blk := range raw.Blocks {
		switch {
		case blk.Description != nil:
			if markBlock("description", blk.Pos) {
				spec.Description = unquote(*blk.Description)
			}
		case blk.Types != nil:
			if markBlock("types", blk.Pos) {
				for _, t := range blk.Types {
					spec.Types = append(spec.Types, b.buildTypeDecl(t))
				}
			}
		case blk.Inputs != nil:
			if markBlock("inputs", blk.Pos) {
				for _, in := range blk.Inputs {
					spec.Inputs = append(spec.Inputs, b.buildInputField(in))
				}
			}
		case blk.Computed != nil:
			if markBlock("computed", blk.Pos) {
				for _, c := range blk.Computed {
					spec.Computed = append(spec.Computed, b.buildComputedField(c))
				}
			}
		case blk.Events != nil:
			if markBlock("events", blk.Pos) {
				for _, e := range blk.Events {
					spec.Events = append(spec.Events, b.buildEventHandler(e))
				}
			}
		case blk.Constraints != nil:
			if markBlock("constraints", blk.Pos) {
				for _, c := range blk.Constraints {
					spec.Constraints = append(spec.Constraints, b.buildConstraint(c))
				}
			}
		case blk.Lifecycle != nil:
			if markBlock("lifecycle", blk.Pos) {
				for _, l := range blk.Lifecycle {
					spec.Lifecycle = append(spec.Lifecycle, b.buildLifecycleHook(l))
				}
			}
		case blk.Extensions != nil:
			if markBlock("extensions", blk.Pos) {
				for _, e := range blk.Extensions {
					spec.Extensions = append(spec.Extensions, b.buildExtension(e))
				}
			}
		}
	}

	b.checkFieldUniqueness(spec)
	b.checkExtensionReferences(spec)
	return spec
}

// checkFieldUniqueness enforces that field names are globally unique
// within a spec across inputs and computed fields.
func (b *builder) checkFieldUniqueness(spec *Spec) {
	seen := map[string]Span{}
	check := func(name string, span Span) {
		if prior, ok := seen[name]; ok {
			b.errorf(span, diag.DuplicateField, "field %q already declared at %s", name, prior)
			return
		}
		seen[name] = span
	}
	for _, f := range spec.Inputs {
		check(f.Name, f.Span)
	}
	for _, f := range spec.Computed {
		check(f.Name, f.Span)
	}
}

// checkExtensionReferences enforces that every FunctionCall whose
// object is not @builtin names an extension declared in extensions{},
// across computed expressions, event bodies, constraint predicates,
// and lifecycle hooks.
func (b *builder) checkExtensionReferences(spec *Spec) {
	known := map[string]bool{}
	aliases := make([]string, 0, len(spec.Extensions))
	for _, e := range spec.Extensions {
		known[e.Alias] = true
		aliases = append(aliases, e.Alias)
	}
	check := func(expr Expression) {
		if expr == nil {
			return
		}
		v := &extensionRefVisitor{known: known, b: b, aliases: aliases}
		expr.Accept(v)
	}
	for _, f := range spec.Inputs {
		check(f.Default)
	}
	for _, f := range spec.Computed {
		check(f.Expr)
	}
	for _, e := range spec.Events {
		check(e.Body)
	}
	for _, c := range spec.Constraints {
		check(c.Predicate)
	}
	for _, l := range spec.Lifecycle {
		check(l.Body)
	}
}

// extensionRefVisitor overrides every composite node type that can
// carry a nested FunctionCall, rather than relying on BaseVisitor's
// default traversal: a promoted BaseVisitor method recurses through
// its own embedded receiver, not through extensionRefVisitor, so a
// call nested inside e.g. a binary operand or another call's argument
// would otherwise go unchecked.
type extensionRefVisitor struct {
	BaseVisitor
	known   map[string]bool
	b       *builder
	aliases []string
}

func (v *extensionRefVisitor) VisitFunctionCall(node *FunctionCall) interface{} {
	if !node.IsBuiltin() && !v.known[node.Object] {
		if guess := SuggestName(v.aliases, node.Object); guess != "" {
			v.b.errorf(node.Pos, diag.UnknownExtension, "unknown extension %q (did you mean %q?)", node.Object, guess)
		} else {
			v.b.errorf(node.Pos, diag.UnknownExtension, "unknown extension %q", node.Object)
		}
	}
	for _, a := range node.Args {
		a.Accept(v)
	}
	return nil
}

func (v *extensionRefVisitor) VisitPropertyAccess(node *PropertyAccess) interface{} {
	if node.Target != nil {
		node.Target.Accept(v)
	}
	return nil
}

func (v *extensionRefVisitor) VisitIndexAccess(node *IndexAccess) interface{} {
	if node.Target != nil {
		node.Target.Accept(v)
	}
	if node.Index != nil {
		node.Index.Accept(v)
	}
	return nil
}

func (v *extensionRefVisitor) VisitBinary(node *Binary) interface{} {
	if node.Left != nil {
		node.Left.Accept(v)
	}
	if node.Right != nil {
		node.Right.Accept(v)
	}
	return nil
}

func (v *extensionRefVisitor) VisitUnary(node *Unary) interface{} {
	if node.Operand != nil {
		node.Operand.Accept(v)
	}
	return nil
}

func (v *extensionRefVisitor) VisitConditional(node *Conditional) interface{} {
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

func (v *extensionRefVisitor) VisitStringTemplate(node *StringTemplate) interface{} {
	for _, part := range node.Parts {
		if part.Expr != nil {
			part.Expr.Accept(v)
		}
	}
	return nil
}

func (v *extensionRefVisitor) VisitArgument(node *Argument) interface{} {
	if node.Value != nil {
		node.Value.Accept(v)
	}
	return nil
}

// --- type declarations ---

func (b *builder) buildTypeDecl(raw *parser.RawTypeDecl) *TypeDecl {
	return &TypeDecl{Span: raw.Pos, Name: raw.Name, Type: b.buildType(raw.Type)}
}

func (b *builder) buildType(raw *parser.RawType) *TypeExpr {
	if raw == nil {
		return nil
	}
	switch {
	case raw.List != nil:
		return &TypeExpr{Span: raw.Pos, Kind: TList, Elem: b.buildType(raw.List.Elem)}
	case raw.Map != nil:
		return &TypeExpr{Span: raw.Pos, Kind: TMap, Key: b.buildType(raw.Map.Key), Val: b.buildType(raw.Map.Val)}
	case raw.Enum != nil:
		values := make([]string, len(raw.Enum.Values))
		for i, s := range raw.Enum.Values {
			values[i] = unquote(s)
		}
		return &TypeExpr{Span: raw.Pos, Kind: TEnum, EnumValues: values}
	case raw.Union != nil:
		members := make([]*TypeExpr, len(raw.Union.Members))
		for i, m := range raw.Union.Members {
			members[i] = b.buildType(m)
		}
		return &TypeExpr{Span: raw.Pos, Kind: TUnion, UnionMembers: members}
	case raw.Struct != nil:
		fields := make([]*StructFieldType, len(raw.Struct.Fields))
		for i, f := range raw.Struct.Fields {
			fields[i] = &StructFieldType{Span: f.Pos, Name: f.Name, Type: b.buildType(f.Type)}
		}
		return &TypeExpr{Span: raw.Pos, Kind: TStruct, StructFields: fields}
	case raw.Ref != nil:
		return &TypeExpr{Span: raw.Pos, Kind: TRef, RefPath: unquote(raw.Ref.Path)}
	case raw.TextGen:
		return &TypeExpr{Span: raw.Pos, Kind: TTextGenerate}
	case raw.Prompt:
		return &TypeExpr{Span: raw.Pos, Kind: TPrompt}
	default:
		return &TypeExpr{Span: raw.Pos, Kind: kindForName(raw.Name), Name: raw.Name}
	}
}

func kindForName(name string) TypeKind {
	switch name {
	case "string":
		return TString
	case "int":
		return TInt
	case "float":
		return TFloat
	case "bool":
		return TBool
	case "null":
		return TNull
	default:
		return TNamed
	}
}

// --- fields ---

func (b *builder) buildInputField(raw *parser.RawInputDecl) *InputField {
	f := &InputField{
		Span:      raw.Pos,
		Name:      raw.Name,
		Type:      b.buildType(raw.Type),
		Modifiers: FieldModifiers{Required: true},
	}
	if raw.Default != nil {
		f.Default = b.buildExpr(raw.Default)
	}
	for _, m := range raw.Modifiers {
		b.applyModifier(&f.Modifiers, m)
	}
	if f.Modifiers.Secret && f.Default != nil {
		if tmpl, ok := f.Default.(*StringTemplate); ok {
			for _, part := range tmpl.Parts {
				if id, ok := part.Expr.(*Identifier); ok && id.Name == f.Name {
					b.errorf(raw.Pos, diag.BadModifier, "secret field %q must not reference itself in its default template", f.Name)
				}
			}
		}
	}
	return f
}

func (b *builder) applyModifier(m *FieldModifiers, raw *parser.RawModifier) {
	boolVal := func() bool { return raw.Value.Bool != nil && *raw.Value.Bool == "true" }
	numVal := func() float64 {
		if raw.Value.Number == nil {
			b.errorf(raw.Pos, diag.BadModifier, "modifier %q expects a number", raw.Name)
			return 0
		}
		n, _ := strconv.ParseFloat(*raw.Value.Number, 64)
		return n
	}
	strVal := func() string {
		if raw.Value.String == nil {
			b.errorf(raw.Pos, diag.BadModifier, "modifier %q expects a string", raw.Name)
			return ""
		}
		return unquote(*raw.Value.String)
	}
	switch raw.Name {
	case "required":
		m.Required = boolVal()
	case "readonly":
		m.ReadOnly = boolVal()
	case "secret":
		m.Secret = boolVal()
	case "generate":
		m.Generate = boolVal()
	case "optional":
		m.Optional = boolVal()
		if m.Optional {
			m.Required = false
		}
	case "pattern":
		m.Pattern, m.HasPattern = strVal(), true
	case "min":
		m.Min, m.HasMin = numVal(), true
	case "max":
		m.Max, m.HasMax = numVal(), true
	case "min_length":
		m.MinLength, m.HasMinLength = int(numVal()), true
	case "max_length":
		m.MaxLength, m.HasMaxLength = int(numVal()), true
	case "description":
		m.Description = strVal()
	default:
		b.errorf(raw.Pos, diag.BadModifier, "unknown modifier %q", raw.Name)
	}
}

func (b *builder) buildComputedField(raw *parser.RawCompDecl) *ComputedField {
	return &ComputedField{
		Span: raw.Pos,
		Name: raw.Name,
		Type: b.buildType(raw.Type),
		Expr: b.buildExpr(raw.Expr),
	}
}

func (b *builder) buildEventHandler(raw *parser.RawEventDecl) *EventHandler {
	return &EventHandler{
		Span:  raw.Pos,
		Kind:  raw.Kind,
		Param: raw.Param,
		Body:  b.buildExpr(raw.Body),
	}
}

func (b *builder) buildConstraint(raw *parser.RawConstraint) *Constraint {
	c := &Constraint{
		Span:      raw.Pos,
		Kind:      ConstraintKind(raw.Kind),
		Predicate: b.buildExpr(raw.Predicate),
	}
	if raw.Message != nil {
		c.Message, c.HasMessage = unquote(*raw.Message), true
	}
	return c
}

func (b *builder) buildLifecycleHook(raw *parser.RawLifecycle) *LifecycleHook {
	return &LifecycleHook{
		Span:  raw.Pos,
		Phase: LifecyclePhase(raw.Phase),
		Body:  b.buildExpr(raw.Body),
	}
}

func (b *builder) buildExtension(raw *parser.RawExtension) *Extension {
	ref := unquote(raw.Ref)
	name, ver := ref, ""
	if i := strings.LastIndex(ref, "@"); i >= 0 {
		name, ver = ref[:i], ref[i+1:]
	}
	return &Extension{Span: raw.Pos, Alias: raw.Alias, Ref: ref, RefName: name, RefVer: ver}
}

// --- expressions ---

// precedence ranks operators loosest to tightest, excluding
// conditional which is handled separately since it wraps a whole
// binary expression rather than chaining with it.
func precedence(op string) int {
	switch op {
	case "||":
		return 1
	case "&&":
		return 2
	case "==", "!=":
		return 3
	case "<", "<=", ">", ">=":
		return 4
	case "+", "-":
		return 5
	case "*", "/", "%":
		return 6
	default:
		return 0
	}
}

// buildExpr converts a RawExpr — a flat unary-chain plus a run of
// binary continuations and an optional conditional tail — into the
// precedence-correct Expression tree. Grammar matching stays flat and
// fast; climbing happens once, here.
func (b *builder) buildExpr(raw *parser.RawExpr) Expression {
	if raw == nil {
		return nil
	}
	operands := make([]Expression, 0, len(raw.Rest)+1)
	operands = append(operands, b.buildUnary(raw.Left))
	ops := make([]string, 0, len(raw.Rest))
	for _, rhs := range raw.Rest {
		ops = append(ops, rhs.Op)
		operands = append(operands, b.buildUnary(rhs.Right))
	}
	c := &climber{operands: operands, ops: ops}
	expr := c.climb(0)
	if raw.Cond != nil {
		return &Conditional{
			Pos:  raw.Pos,
			Cond: expr,
			Then: b.buildExpr(raw.Cond.Then),
			Else: b.buildExpr(raw.Cond.Else),
		}
	}
	return expr
}

// climber runs precedence climbing (operator-precedence parsing) over
// the grammar's already-flattened operand/operator runs, folding them
// into nested Binary nodes ordered by precedence.
type climber struct {
	operands []Expression
	ops      []string
	pos      int // index into ops/operands[pos+1]
}

func (c *climber) climb(minPrec int) Expression {
	return c.foldFrom(c.operands[c.pos], minPrec)
}

// foldFrom folds operators at precedence >= minPrec onto left,
// recursing into higher-precedence runs before folding a lower one —
// the textbook precedence-climbing loop.
func (c *climber) foldFrom(left Expression, minPrec int) Expression {
	for c.pos < len(c.ops) && precedence(c.ops[c.pos]) >= minPrec {
		op := c.ops[c.pos]
		opPrec := precedence(op)
		c.pos++
		right := c.operands[c.pos]
		for c.pos < len(c.ops) && precedence(c.ops[c.pos]) > opPrec {
			right = c.foldFrom(right, opPrec+1)
		}
		left = &Binary{Pos: left.Span(), Op: BinaryOp(op), Left: left, Right: right}
	}
	return left
}

func (b *builder) buildUnary(raw *parser.RawUnary) Expression {
	operand := b.buildPostfix(raw.Operand)
	if raw.Op == "" {
		return operand
	}
	return &Unary{Pos: raw.Pos, Op: raw.Op, Operand: operand}
}

func (b *builder) buildPostfix(raw *parser.RawPostfix) Expression {
	expr := b.buildPrimary(raw.Primary)
	ops := raw.Ops
	for idx := 0; idx < len(ops); idx++ {
		op := ops[idx]
		switch {
		case op.Call != nil:
			// A call directly on an identifier (no preceding property
			// access) is a builtin call; a call on a prior property
			// access `alias.method(...)` is an extension call, with the
			// object rewritten from a PropertyAccess back into the
			// plugin alias name.
			args := b.buildArgs(op.Call)
			if pa, ok := expr.(*PropertyAccess); ok {
				if id, ok := pa.Target.(*Identifier); ok {
					expr = &FunctionCall{Pos: op.Pos, Object: id.Name, Method: pa.Name, Args: args}
					continue
				}
			}
			if id, ok := expr.(*Identifier); ok {
				if id.Name == BuiltinObject {
					b.errorf(op.Pos, diag.Syntax, "@builtin must be followed by .method(...)")
					continue
				}
				expr = &FunctionCall{Pos: op.Pos, Object: BuiltinObject, Method: id.Name, Args: args}
				continue
			}
			b.errorf(op.Pos, diag.Syntax, "call target must be an identifier or alias.method")
		case op.Prop != nil:
			expr = &PropertyAccess{Pos: op.Pos, Target: expr, Name: *op.Prop}
		case op.Index != nil:
			expr = &IndexAccess{Pos: op.Pos, Target: expr, Index: b.buildExpr(op.Index)}
		}
	}
	return expr
}

func (b *builder) buildArgs(raw *parser.RawCallArgs) []*Argument {
	args := make([]*Argument, 0, len(raw.Args))
	seenNamed := false
	for _, a := range raw.Args {
		arg := &Argument{Pos: a.Pos, Value: b.buildExpr(a.Value)}
		if a.Name != nil {
			arg.Name = *a.Name
			seenNamed = true
		} else if seenNamed {
			b.errorf(a.Pos, diag.Syntax, "positional argument follows named argument")
		}
		args = append(args, arg)
	}
	return args
}

func (b *builder) buildPrimary(raw *parser.RawPrimary) Expression {
	switch {
	case raw.Literal != nil:
		return b.buildLiteral(raw.Literal)
	case raw.Template != nil:
		return b.buildTemplate(raw.Template)
	case raw.AtBuiltin:
		return &Identifier{Pos: raw.Pos, Name: BuiltinObject}
	case raw.Paren != nil:
		return b.buildExpr(raw.Paren)
	default:
		return &Identifier{Pos: raw.Pos, Name: raw.Ident}
	}
}

func (b *builder) buildLiteral(raw *parser.RawLiteral) Expression {
	switch {
	case raw.String != nil:
		return &Literal{Pos: raw.Pos, Kind: LitString, Str: unquote(*raw.String)}
	case raw.Number != nil:
		n, err := strconv.ParseFloat(*raw.Number, 64)
		if err != nil {
			b.errorf(raw.Pos, diag.InvalidNumber, "invalid number literal %q", *raw.Number)
		}
		return &Literal{Pos: raw.Pos, Kind: LitNumber, Num: n}
	case raw.Bool != nil:
		return &Literal{Pos: raw.Pos, Kind: LitBool, Bool: *raw.Bool == "true"}
	default:
		return &Literal{Pos: raw.Pos, Kind: LitNull}
	}
}

func (b *builder) buildTemplate(raw *parser.RawTemplate) Expression {
	tmpl := &StringTemplate{Pos: raw.Pos}
	for _, part := range raw.Parts {
		switch {
		case part.Text != nil:
			tmpl.Parts = append(tmpl.Parts, TemplatePart{Text: *part.Text})
		case part.Dlr != nil:
			tmpl.Parts = append(tmpl.Parts, TemplatePart{Text: *part.Dlr})
		case part.Expr != nil:
			tmpl.Parts = append(tmpl.Parts, TemplatePart{Expr: b.buildExpr(part.Expr)})
		}
	}
	return tmpl
}

func parseVersion(tag string) Version {
	tag = strings.TrimPrefix(tag, "v")
	parts := strings.Split(tag, ".")
	v := Version{}
	if len(parts) > 0 {
		v.Major, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		v.Minor, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		v.Patch, _ = strconv.Atoi(parts[2])
	}
	return v
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return unquoteSingle(s)
	}
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return strings.Trim(s, `"`)
}

// unquoteSingle unescapes a single-quoted string literal by
// translating it into the equivalent double-quoted form — unescaping
// "\'" to a bare "'" and escaping any bare '"' to '\"' — then handing
// the rest of the escape grammar (\\, \n, \t, ...) to strconv.Unquote.
func unquoteSingle(s string) string {
	body := s[1 : len(s)-1]
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) && body[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		if c == '"' {
			b.WriteString(`\"`)
			continue
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	if u, err := strconv.Unquote(b.String()); err == nil {
		return u
	}
	return body
}

func fmtVersion(v Version) string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}
