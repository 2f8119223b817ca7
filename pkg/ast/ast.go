// Package ast defines the typed abstract syntax tree for a SIGMOS
// specification — the Spec, Type, Field, Expression and related sum
// types — plus an Accept/Visitor double-dispatch pattern for walking
// them.
//
// The grammar match (pkg/parser.RawSpec) and the typed AST live in
// separate packages on purpose: Build in builder.go converts one into
// the other, folding the grammar's flat binary-operator list into
// precedence-correct Binary nodes along the way, and that conversion
// is where name resolution and validation diagnostics are raised.
package ast

import "github.com/alecthomas/participle/v2/lexer"

// Span is a source location, carried by every node.
type Span = lexer.Position

// Spec is the top-level typed unit.
type Spec struct {
	Span        Span
	Name        string
	Version     Version
	Description string
	Types       []*TypeDecl
	Inputs      []*InputField
	Computed    []*ComputedField
	Events      []*EventHandler
	Constraints []*Constraint
	Lifecycle   []*LifecycleHook
	Extensions  []*Extension
}

// Version is a SemVer triple; Patch defaults to 0.
type Version struct {
	Major, Minor, Patch int
}

// TypeDecl is a named user-defined type constructor from a `types{}`
// block.
type TypeDecl struct {
	Span Span
	Name string
	Type *TypeExpr
}

// TypeKind tags the Type sum type.
type TypeKind int

const (
	TString TypeKind = iota
	TInt
	TFloat
	TBool
	TNull
	TList
	TMap
	TEnum
	TUnion
	TStruct
	TRef
	TPrompt
	TTextGenerate
	TNamed // reference to a user-defined type declared in types{}
)

// TypeExpr is the tagged Type variant.
type TypeExpr struct {
	Span Span
	Kind TypeKind

	Elem *TypeExpr // TList

	Key, Val *TypeExpr // TMap

	EnumValues []string // TEnum

	UnionMembers []*TypeExpr // TUnion

	StructFields []*StructFieldType // TStruct

	RefPath string // TRef

	Name string // TNamed, and the primitive's lowercase name
}

// StructFieldType is one field of an anonymous struct{} type.
type StructFieldType struct {
	Span Span
	Name string
	Type *TypeExpr
}

// FieldModifiers is the closed set of input-field modifiers.
type FieldModifiers struct {
	Required bool // default true
	ReadOnly bool
	Secret   bool
	Generate bool
	Optional bool

	Pattern    string
	HasPattern bool

	Min, Max       float64
	HasMin, HasMax bool

	MinLength, MaxLength       int
	HasMinLength, HasMaxLength bool

	Description string
}

// InputField is an externally-provided field.
type InputField struct {
	Span      Span
	Name      string
	Type      *TypeExpr
	Default   Expression
	Modifiers FieldModifiers
}

// ComputedField is an expression-derived field.
type ComputedField struct {
	Span Span
	Name string
	Type *TypeExpr
	Expr Expression
}

// EventKind enumerates the fixed lifecycle handler kinds; any other
// string is a custom(name) handler.
type EventKind string

const (
	OnCreate EventKind = "onCreate"
	OnChange EventKind = "onChange"
	OnUpdate EventKind = "onUpdate"
	OnDelete EventKind = "onDelete"
	OnError  EventKind = "onError"
)

// EventHandler reacts to a lifecycle or input-change signal.
type EventHandler struct {
	Span  Span
	Kind  string // one of the EventKind constants, or a custom name
	Param string
	Body  Expression
}

// IsCustom reports whether h uses a custom event name rather than one
// of the fixed lifecycle kinds.
func (h *EventHandler) IsCustom() bool {
	switch EventKind(h.Kind) {
	case OnCreate, OnChange, OnUpdate, OnDelete, OnError:
		return false
	default:
		return true
	}
}

// ConstraintKind is assert (pre-evaluation capable) or ensure
// (post-evaluation only).
type ConstraintKind string

const (
	Assert ConstraintKind = "assert"
	Ensure ConstraintKind = "ensure"
)

// Constraint is a boolean predicate with assert/ensure semantics.
type Constraint struct {
	Span       Span
	Kind       ConstraintKind
	Predicate  Expression
	Message    string
	HasMessage bool
}

// LifecyclePhase is before/after/finally.
type LifecyclePhase string

const (
	Before  LifecyclePhase = "before"
	After   LifecyclePhase = "after"
	Finally LifecyclePhase = "finally"
)

// LifecycleHook is one fixed-phase hook.
type LifecycleHook struct {
	Span  Span
	Phase LifecyclePhase
	Body  Expression
}

// Extension is a local alias bound to an external plugin reference
// "name@version".
type Extension struct {
	Span    Span
	Alias   string
	Ref     string
	RefName string
	RefVer  string
}
