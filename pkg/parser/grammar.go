package parser

import "github.com/alecthomas/participle/v2/lexer"

// The types in this file are the participle grammar targets — the raw
// parse tree the parser hands off for AST building. They deliberately
// keep expressions flat (a primary followed by a run of binary
// operators) rather than precedence-shaped; ast.Build folds them into
// the precedence-correct Expression sum type.

// RawSpec is the top-level parse of a .sigmos document.
type RawSpec struct {
	Pos     lexer.Position
	Name    string      `"spec" @String`
	Version string      `@VersionTag`
	Blocks  []*RawBlock `"{" @@* "}"`
}

// RawBlock is one labeled top-level block. Exactly one field will be
// non-nil after a successful parse; ast.Build rejects a block label
// that repeats, since each label may appear at most once.
type RawBlock struct {
	Pos         lexer.Position
	Description *string          `"description" ":" @String`
	Types       []*RawTypeDecl   `| "types" ":" "{" @@* "}"`
	Inputs      []*RawInputDecl  `| "inputs" ":" "{" @@* "}"`
	Computed    []*RawCompDecl   `| "computed" ":" "{" @@* "}"`
	Events      []*RawEventDecl  `| "events" ":" "{" @@* "}"`
	Constraints []*RawConstraint `| "constraints" ":" "{" @@* "}"`
	Lifecycle   []*RawLifecycle  `| "lifecycle" ":" "{" @@* "}"`
	Extensions  []*RawExtension  `| "extensions" ":" "{" @@* "}"`
}

// RawTypeDecl declares a named user type: `Name: TypeExpr`.
type RawTypeDecl struct {
	Pos  lexer.Position
	Name string     `@Ident ":"`
	Type *RawType   `@@`
}

// RawInputDecl is one entry of `inputs: { ... }`.
type RawInputDecl struct {
	Pos       lexer.Position
	Name      string        `@Ident ":"`
	Type      *RawType      `@@`
	Default   *RawExpr      `("=" @@)?`
	Modifiers []*RawModifier `("{" @@* "}")?`
}

// RawModifier is one `name: value` entry inside a field's modifier
// block.
type RawModifier struct {
	Pos   lexer.Position
	Name  string          `@Ident ":"`
	Value *RawModifierVal `@@ ","?`
}

// RawModifierVal is the value half of a modifier entry.
type RawModifierVal struct {
	Pos    lexer.Position
	Bool   *string `@("true" | "false")`
	Number *string `| @Number`
	String *string `| @String`
}

// RawCompDecl is one entry of `computed: { ... }`.
type RawCompDecl struct {
	Pos  lexer.Position
	Name string   `@Ident ":"`
	Type *RawType `@@`
	Expr *RawExpr `"=" @@`
}

// RawEventDecl is one entry of `events: { ... }`: `kind(param) -> body`.
type RawEventDecl struct {
	Pos   lexer.Position
	Kind  string   `@Ident`
	Param string   `"(" @Ident ")"`
	Body  *RawExpr `"-" ">" @@`
}

// RawConstraint is one entry of `constraints: { ... }`.
type RawConstraint struct {
	Pos       lexer.Position
	Kind      string   `@("assert" | "ensure")`
	Predicate *RawExpr `@@`
	Message   *string  `("," @String)?`
}

// RawLifecycle is one entry of `lifecycle: { ... }`.
type RawLifecycle struct {
	Pos   lexer.Position
	Phase string   `@("before" | "after" | "finally") ":"`
	Body  *RawExpr `@@`
}

// RawExtension is one entry of `extensions: { ... }`: `alias: "name@version"`.
type RawExtension struct {
	Pos   lexer.Position
	Alias string `@Ident ":"`
	Ref   string `@String`
}

// --- Types ---

// RawType is the tagged-variant grammar for the Type sum type:
// primitives, list<T>, map<K,V>, enum(...), union(...), struct{...},
// ref(path), and the prompt/text.generate sentinels.
type RawType struct {
	Pos    lexer.Position
	List   *RawListType   `  "list" "<" @@ ">"`
	Map    *RawMapType    `| "map" "<" @@ ">"`
	Enum   *RawEnumType   `| "enum" "(" @@ ")"`
	Union  *RawUnionType  `| "union" "(" @@ ")"`
	Struct *RawStructType `| "struct" "{" @@ "}"`
	Ref    *RawRefType    `| "ref" "(" @@ ")"`
	TextGen bool          `| @("text" "." "generate")`
	Prompt bool           `| @"prompt"`
	Name   string         `| @Ident`
}

type RawListType struct {
	Pos  lexer.Position
	Elem *RawType `@@`
}

type RawMapType struct {
	Pos lexer.Position
	Key *RawType `@@ ","`
	Val *RawType `@@`
}

type RawEnumType struct {
	Pos    lexer.Position
	Values []string `@String ("," @String)*`
}

type RawUnionType struct {
	Pos     lexer.Position
	Members []*RawType `@@ ("," @@)*`
}

type RawStructType struct {
	Pos    lexer.Position
	Fields []*RawStructField `@@*`
}

type RawStructField struct {
	Pos  lexer.Position
	Name string   `@Ident ":"`
	Type *RawType `@@ ","?`
}

type RawRefType struct {
	Pos  lexer.Position
	Path string `@String`
}

// --- Expressions ---
//
// RawExpr is flat: a unary-chain "Left" followed by zero or more
// binary-operator continuations ("Rest"), with an optional trailing
// conditional tail. ast.Build performs precedence climbing over
// "Rest" and, separately, folds the conditional tail, which is
// right-associative and binds loosest.

type RawExpr struct {
	Pos  lexer.Position
	Left *RawUnary      `@@`
	Rest []*RawBinOpRHS `@@*`
	Cond *RawCondTail   `@@?`
}

type RawCondTail struct {
	Pos  lexer.Position
	Then *RawExpr `"?" @@`
	Else *RawExpr `":" @@`
}

type RawBinOpRHS struct {
	Pos   lexer.Position
	Op    string    `@("==" | "!=" | "<=" | ">=" | "<" | ">" | "&&" | "||" | "+" | "-" | "*" | "/" | "%")`
	Right *RawUnary `@@`
}

type RawUnary struct {
	Pos     lexer.Position
	Op      string      `@("!" | "-")?`
	Operand *RawPostfix `@@`
}

type RawPostfix struct {
	Pos     lexer.Position
	Primary *RawPrimary    `@@`
	Ops     []*RawPostfixOp `@@*`
}

type RawPostfixOp struct {
	Pos   lexer.Position
	Prop  *string      `"." @Ident`
	Index *RawExpr     `| "[" @@ "]"`
	Call  *RawCallArgs `| "(" @@ ")"`
}

type RawCallArgs struct {
	Pos  lexer.Position
	Args []*RawArgument `(@@ ("," @@)*)?`
}

type RawArgument struct {
	Pos   lexer.Position
	Name  *string  `(@Ident ":")?`
	Value *RawExpr `@@`
}

type RawPrimary struct {
	Pos       lexer.Position
	Literal   *RawLiteral  `  @@`
	Template  *RawTemplate `| @@`
	AtBuiltin bool         `| @AtBuiltin`
	Ident     string       `| @Ident`
	Paren     *RawExpr     `| "(" @@ ")"`
}

type RawLiteral struct {
	Pos    lexer.Position
	String *string `  @String`
	Number *string `| @Number`
	Bool   *string `| @("true" | "false")`
	Null   bool    `| @"null"`
}

type RawTemplate struct {
	Pos   lexer.Position
	Parts []*RawTemplatePart `Backtick @@* BacktickEnd`
}

type RawTemplatePart struct {
	Pos  lexer.Position
	Text *string  `  @TemplateText`
	Dlr  *string  `| @DollarLiteral`
	Expr *RawExpr `| (InterpStart @@ InterpEnd)`
}
