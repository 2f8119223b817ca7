// Package parser implements the SIGMOS lexer and grammar using
// participle, a parser-combinator library.
package parser

import "github.com/alecthomas/participle/v2/lexer"

// sigmosLexer is the stateful lexer for SIGMOS source. Its three
// states (Root/Template/TemplateExpr) push and pop as string templates
// are entered and left, with a VersionTag rule so "v1.2.3" lexes as
// one token instead of colliding with the Number rule's own
// optional-dot handling, and "${"/"}" as the interpolation markers.
var sigmosLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"BlockComment", `/\*([^*]|\*[^/])*\*/`, nil},
		{"Whitespace", `\s+`, nil},
		{"VersionTag", `v\d+(\.\d+){0,2}\b`, nil},
		{"Keyword", `\b(spec|description|types|inputs|computed|events|constraints|lifecycle|extensions|type|struct|enum|union|list|map|ref|before|after|finally|assert|ensure|true|false|null|prompt)\b`, nil},
		{"AtBuiltin", `@builtin`, nil},
		{"Op", `(<=|>=|==|!=|&&|\|\||[+\-*/%<>!=?:,.])`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Number", `\d+\.?\d*`, nil},
		{"String", `"(?:\\.|[^"\\])*"|'(?:\\.|[^'\\])*'`, nil},
		{"Backtick", "`", lexer.Push("Template")},
		{"Punct", `[{}()\[\];:]`, nil},
	},
	"Template": {
		{"BacktickEnd", "`", lexer.Pop()},
		{"InterpStart", `\$\{`, lexer.Push("TemplateExpr")},
		{"TemplateText", "[^$`]+", nil},
		{"DollarLiteral", `\$`, nil},
	},
	"TemplateExpr": {
		{"InterpEnd", `\}`, lexer.Pop()},
		lexer.Include("Root"),
	},
})
