package eval

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/gaarutyunov/sigmos/internal/diag"
	"github.com/gaarutyunov/sigmos/pkg/ast"
)

// builtinArity records the expected positional argument count for
// each builtin name, so BadArity is caught before the per-function
// type check runs.
var builtinArity = map[string]int{
	"len":     1,
	"upper":   1,
	"lower":   1,
	"trim":    1,
	"abs":     1,
	"string":  1,
	"number":  1,
	"boolean": 1,
	"hash":    1,
}

// callBuiltin implements the fixed builtin function set exposed under
// the `@builtin` pseudo-object: len, upper, lower, trim, abs, string,
// number, boolean, hash. Builtins take only positional arguments.
func (e *Evaluator) callBuiltin(n *ast.FunctionCall, positional []Value, named *OrderedMap) interface{} {
	if named.Len() > 0 {
		return fail(diag.At(diag.BadArity, n.Pos, "builtin %q does not accept named arguments", n.Method))
	}
	want, known := builtinArity[n.Method]
	if !known {
		return fail(diag.At(diag.UnknownExtension, n.Pos, "unknown builtin %q", n.Method))
	}
	if len(positional) != want {
		return fail(diag.At(diag.BadArity, n.Pos, "builtin %q expects %d argument(s), got %d", n.Method, want, len(positional)))
	}
	arg := positional[0]

	switch n.Method {
	case "len":
		return e.builtinLen(n, arg)
	case "upper":
		if arg.Kind() != KindString {
			return fail(diag.At(diag.TypeMismatch, n.Pos, "upper requires a string"))
		}
		return ok(String(strings.ToUpper(arg.AsString())))
	case "lower":
		if arg.Kind() != KindString {
			return fail(diag.At(diag.TypeMismatch, n.Pos, "lower requires a string"))
		}
		return ok(String(strings.ToLower(arg.AsString())))
	case "trim":
		if arg.Kind() != KindString {
			return fail(diag.At(diag.TypeMismatch, n.Pos, "trim requires a string"))
		}
		return ok(String(strings.TrimSpace(arg.AsString())))
	case "abs":
		if arg.Kind() != KindNumber {
			return fail(diag.At(diag.TypeMismatch, n.Pos, "abs requires a number"))
		}
		return ok(Number(math.Abs(arg.AsNumber())))
	case "string":
		return ok(String(Stringify(arg)))
	case "number":
		return e.builtinNumber(n, arg)
	case "boolean":
		return ok(Bool(arg.Truthy()))
	case "hash":
		sum := sha256.Sum256([]byte(Stringify(arg)))
		return ok(String(hex.EncodeToString(sum[:])))
	default:
		return fail(diag.At(diag.UnknownExtension, n.Pos, "unknown builtin %q", n.Method))
	}
}

func (e *Evaluator) builtinLen(n *ast.FunctionCall, arg Value) interface{} {
	switch arg.Kind() {
	case KindString:
		return ok(Number(float64(len([]rune(arg.AsString())))))
	case KindArray:
		return ok(Number(float64(len(arg.AsArray()))))
	case KindObject:
		return ok(Number(float64(arg.AsObject().Len())))
	default:
		return fail(diag.At(diag.TypeMismatch, n.Pos, "len requires a string, array, or object"))
	}
}

func (e *Evaluator) builtinNumber(n *ast.FunctionCall, arg Value) interface{} {
	switch arg.Kind() {
	case KindNumber:
		return ok(arg)
	case KindBool:
		if arg.AsBool() {
			return ok(Number(1))
		}
		return ok(Number(0))
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(arg.AsString()), 64)
		if err != nil {
			return fail(diag.At(diag.NumberParse, n.Pos, "cannot parse %q as a number", arg.AsString()))
		}
		return ok(Number(f))
	default:
		return fail(diag.At(diag.TypeMismatch, n.Pos, "number requires a string, number, or boolean"))
	}
}
