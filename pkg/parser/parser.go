// Package parser turns SIGMOS source text into the raw grammar tree
// (RawSpec) that pkg/ast converts into the typed AST: a stateful
// lexer plus a generic participle.Parser, with a New/Parse/
// ParseString/ParseBytes surface.
package parser

import (
	"fmt"
	"io"

	"github.com/alecthomas/participle/v2"
)

// Parser is the SIGMOS grammar parser.
type Parser struct {
	parser *participle.Parser[RawSpec]
}

// New builds a SIGMOS parser.
func New() (*Parser, error) {
	p, err := participle.Build[RawSpec](
		participle.Lexer(sigmosLexer),
		participle.Elide("Comment", "BlockComment", "Whitespace"),
		participle.UseLookahead(12),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}
	return &Parser{parser: p}, nil
}

// Parse parses a SIGMOS document from a reader.
func (p *Parser) Parse(r io.Reader) (*RawSpec, error) {
	spec, err := p.parser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return spec, nil
}

// ParseString parses a SIGMOS document from a string.
func (p *Parser) ParseString(source string) (*RawSpec, error) {
	spec, err := p.parser.ParseString("", source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return spec, nil
}

// ParseBytes parses a SIGMOS document from bytes, attributing
// diagnostics to filename.
func (p *Parser) ParseBytes(filename string, source []byte) (*RawSpec, error) {
	spec, err := p.parser.ParseBytes(filename, source)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", filename, err)
	}
	return spec, nil
}

// String renders the parser's underlying EBNF grammar.
func (p *Parser) String() string {
	return p.parser.String()
}
