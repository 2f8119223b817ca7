// Package diag provides the diagnostic value shared by every SIGMOS
// component, from the lexer through the execution engine.
package diag

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Kind tags a diagnostic with one of the taxonomy entries from the
// error handling design: parse, validation, evaluation, plugin, or
// execution errors.
type Kind string

const (
	// Parse errors
	Syntax            Kind = "Syntax"
	UnexpectedToken   Kind = "UnexpectedToken"
	UnterminatedStr   Kind = "UnterminatedString"
	InvalidEscape     Kind = "InvalidEscape"
	InvalidNumber     Kind = "InvalidNumber"

	// Validation errors
	DuplicateField    Kind = "DuplicateField"
	UnknownIdentifier Kind = "UnknownIdentifier"
	CycleDetected     Kind = "CycleDetected"
	BadModifier       Kind = "BadModifier"
	UnknownExtension  Kind = "UnknownExtension"

	// Evaluation errors
	TypeMismatch     Kind = "TypeMismatch"
	DivByZero        Kind = "DivByZero"
	IndexOutOfRange  Kind = "IndexOutOfRange"
	BadArity         Kind = "BadArity"
	NumberParse      Kind = "NumberParse"
	RegexMismatch    Kind = "RegexMismatch"

	// Plugin errors
	Plugin Kind = "Plugin"

	// Execution errors
	MissingInput       Kind = "MissingInput"
	ConstraintViolated Kind = "ConstraintViolated"
	Cancelled          Kind = "Cancelled"
	Timeout            Kind = "Timeout"
)

// Diagnostic is a single, span-carrying error with an optional cause
// chain. Parsing and tree-building collect these into a list; later
// stages surface one primary diagnostic with secondary causes
// appended.
type Diagnostic struct {
	Kind    Kind
	Message string
	Span    *lexer.Position
	Cause   *Diagnostic
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	b.WriteString(string(d.Kind))
	if d.Span != nil {
		fmt.Fprintf(&b, " at %s", d.Span)
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	if d.Cause != nil {
		b.WriteString("\ncaused by: ")
		b.WriteString(d.Cause.Error())
	}
	return b.String()
}

// New builds a diagnostic with no span, for errors raised outside the
// parser (e.g. from the evaluator or engine against a reconstructed
// context).
func New(kind Kind, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// At builds a diagnostic carrying a source span.
func At(kind Kind, span lexer.Position, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Span: &span}
}

// Wrap attaches cause as the secondary diagnostic of d, replacing any
// cause d already had. The engine uses it to report a failing onError
// handler alongside the original failure; failures of lifecycle
// finally hooks are not recorded this way.
func (d *Diagnostic) Wrap(cause *Diagnostic) *Diagnostic {
	d.Cause = cause
	return d
}

// Redact replaces occurrences of rawValues within msg with a sentinel,
// for fields marked secret: true so their values never reach a
// rendered diagnostic.
const RedactedSentinel = "••••••"

func Redact(msg string, rawValues ...string) string {
	out := msg
	for _, v := range rawValues {
		if v == "" {
			continue
		}
		out = strings.ReplaceAll(out, v, RedactedSentinel)
	}
	return out
}

// List is an ordered collection of diagnostics, used by the lexer and
// AST builder which must report every defect found rather than
// stopping at the first.
type List []*Diagnostic

func (l List) Error() string {
	parts := make([]string, len(l))
	for i, d := range l {
		parts[i] = d.Error()
	}
	return strings.Join(parts, "; ")
}

func (l List) HasErrors() bool { return len(l) > 0 }
