package engine_test

import (
	"context"
	"testing"

	"github.com/gaarutyunov/sigmos/internal/diag"
	"github.com/gaarutyunov/sigmos/pkg/ast"
	"github.com/gaarutyunov/sigmos/pkg/engine"
	"github.com/gaarutyunov/sigmos/pkg/eval"
)

func strType() *ast.TypeExpr    { return &ast.TypeExpr{Kind: ast.TString, Name: "string"} }
func numberType() *ast.TypeExpr { return &ast.TypeExpr{Kind: ast.TFloat, Name: "float"} }

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func TestRunBindsDefaultsAndComputesFields(t *testing.T) {
	spec := &ast.Spec{
		Name: "greeting",
		Inputs: []*ast.InputField{
			{Name: "name", Type: strType(), Modifiers: ast.FieldModifiers{Required: true}},
			{Name: "title", Type: strType(), Default: &ast.Literal{Kind: ast.LitString, Str: "friend"}},
		},
		Computed: []*ast.ComputedField{
			{Name: "greeting", Type: strType(), Expr: &ast.StringTemplate{Parts: []ast.TemplatePart{
				{Text: "Hello, "},
				{Expr: ident("title")},
				{Text: " "},
				{Expr: ident("name")},
				{Text: "!"},
			}}},
		},
	}
	eng := engine.New(spec, nil)
	result, d := eng.Run(context.Background(), map[string]eval.Value{"name": eval.String("Ada")})
	if d != nil {
		t.Fatalf("Run: %s", d.Error())
	}
	if got := result.Computed["greeting"]; got.AsString() != "Hello, friend Ada!" {
		t.Errorf("greeting = %q", got.AsString())
	}
}

func TestRunMissingRequiredInput(t *testing.T) {
	spec := &ast.Spec{
		Name:   "x",
		Inputs: []*ast.InputField{{Name: "name", Type: strType(), Modifiers: ast.FieldModifiers{Required: true}}},
	}
	eng := engine.New(spec, nil)
	_, d := eng.Run(context.Background(), map[string]eval.Value{})
	if d == nil || d.Kind != diag.MissingInput {
		t.Fatalf("expected MissingInput, got %v", d)
	}
}

func TestRunComputedFieldDependencyOrderIsTopological(t *testing.T) {
	spec := &ast.Spec{
		Name: "x",
		Computed: []*ast.ComputedField{
			{Name: "b", Type: numberType(), Expr: &ast.Binary{Op: ast.OpAdd, Left: ident("a"), Right: &ast.Literal{Kind: ast.LitNumber, Num: 1}}},
			{Name: "a", Type: numberType(), Expr: &ast.Literal{Kind: ast.LitNumber, Num: 10}},
			{Name: "c", Type: numberType(), Expr: &ast.Binary{Op: ast.OpAdd, Left: ident("a"), Right: ident("b")}},
		},
	}
	eng := engine.New(spec, nil)
	result, d := eng.Run(context.Background(), nil)
	if d != nil {
		t.Fatalf("Run: %s", d.Error())
	}
	if result.Computed["a"].AsNumber() != 10 {
		t.Errorf("a = %v", result.Computed["a"].AsNumber())
	}
	if result.Computed["b"].AsNumber() != 11 {
		t.Errorf("b = %v", result.Computed["b"].AsNumber())
	}
	if result.Computed["c"].AsNumber() != 21 {
		t.Errorf("c = %v", result.Computed["c"].AsNumber())
	}
}

func TestRunDetectsComputedCycle(t *testing.T) {
	spec := &ast.Spec{
		Name: "x",
		Computed: []*ast.ComputedField{
			{Name: "a", Type: numberType(), Expr: ident("b")},
			{Name: "b", Type: numberType(), Expr: ident("a")},
		},
	}
	eng := engine.New(spec, nil)
	_, d := eng.Run(context.Background(), nil)
	if d == nil || d.Kind != diag.CycleDetected {
		t.Fatalf("expected CycleDetected, got %v", d)
	}
}

func TestRunConstraintViolation(t *testing.T) {
	spec := &ast.Spec{
		Name: "x",
		Inputs: []*ast.InputField{
			{Name: "n", Type: numberType(), Modifiers: ast.FieldModifiers{Required: true}},
		},
		Constraints: []*ast.Constraint{
			{Kind: ast.Assert, Predicate: &ast.Binary{Op: ast.OpGte, Left: ident("n"), Right: &ast.Literal{Kind: ast.LitNumber, Num: 0}}, Message: "n must be non-negative", HasMessage: true},
		},
	}
	eng := engine.New(spec, nil)
	_, d := eng.Run(context.Background(), map[string]eval.Value{"n": eval.Number(-1)})
	if d == nil || d.Kind != diag.ConstraintViolated {
		t.Fatalf("expected ConstraintViolated, got %v", d)
	}
	if d.Message != "n must be non-negative" {
		t.Errorf("message = %q", d.Message)
	}
}

// TestRunInputOnlyAssertFailsBeforeOnCreate pins down the "age = 17"
// scenario: an assert referencing only input fields must be checked,
// and abort the run, before onCreate ever fires.
func TestRunInputOnlyAssertFailsBeforeOnCreate(t *testing.T) {
	spec := &ast.Spec{
		Name: "x",
		Inputs: []*ast.InputField{
			{Name: "age", Type: numberType(), Modifiers: ast.FieldModifiers{Required: true}},
		},
		Constraints: []*ast.Constraint{
			{Kind: ast.Assert, Predicate: &ast.Binary{Op: ast.OpGte, Left: ident("age"), Right: &ast.Literal{Kind: ast.LitNumber, Num: 18}}},
		},
		Events: []*ast.EventHandler{
			{Kind: string(ast.OnCreate), Param: "self", Body: &ast.FunctionCall{Object: "probe", Method: "mark"}},
		},
		Lifecycle: []*ast.LifecycleHook{
			{Phase: ast.Finally, Body: &ast.FunctionCall{Object: "probe", Method: "mark"}},
		},
	}
	calls := 0
	eng := engine.New(spec, markerCaller{onCall: func() { calls++ }})
	_, d := eng.Run(context.Background(), map[string]eval.Value{"age": eval.Number(17)})
	if d == nil || d.Kind != diag.ConstraintViolated {
		t.Fatalf("expected ConstraintViolated, got %v", d)
	}
	// Exactly one plugin call is expected: the finally hook. If
	// onCreate had fired despite the failing assert, this would be 2.
	if calls != 1 {
		t.Errorf("expected exactly 1 plugin call (finally only), got %d — onCreate must not fire before a failing input-only assert", calls)
	}
}

// TestRunAssertReferencingComputedRunsAfterComputed verifies that an
// assert whose predicate touches a computed field is deferred to the
// post-computed constraint pass rather than rejected for referencing
// an unbound name.
func TestRunAssertReferencingComputedRunsAfterComputed(t *testing.T) {
	spec := &ast.Spec{
		Name: "x",
		Inputs: []*ast.InputField{
			{Name: "n", Type: numberType(), Modifiers: ast.FieldModifiers{Required: true}},
		},
		Computed: []*ast.ComputedField{
			{Name: "doubled", Type: numberType(), Expr: &ast.Binary{Op: ast.OpMul, Left: ident("n"), Right: &ast.Literal{Kind: ast.LitNumber, Num: 2}}},
		},
		Constraints: []*ast.Constraint{
			{Kind: ast.Assert, Predicate: &ast.Binary{Op: ast.OpLt, Left: ident("doubled"), Right: &ast.Literal{Kind: ast.LitNumber, Num: 10}}, Message: "doubled too large", HasMessage: true},
		},
	}
	eng := engine.New(spec, nil)
	_, d := eng.Run(context.Background(), map[string]eval.Value{"n": eval.Number(6)})
	if d == nil || d.Kind != diag.ConstraintViolated {
		t.Fatalf("expected ConstraintViolated, got %v", d)
	}
	if d.Message != "doubled too large" {
		t.Errorf("message = %q", d.Message)
	}
}

func TestRunOnCreateSeesOnlyInputs(t *testing.T) {
	spec := &ast.Spec{
		Name: "x",
		Inputs: []*ast.InputField{
			{Name: "name", Type: strType(), Modifiers: ast.FieldModifiers{Required: true}},
		},
		Computed: []*ast.ComputedField{
			{Name: "shout", Type: strType(), Expr: &ast.FunctionCall{Object: ast.BuiltinObject, Method: "upper", Args: []*ast.Argument{{Value: ident("name")}}}},
		},
		Events: []*ast.EventHandler{
			// self.shout is not yet bound at onCreate time; property
			// access on a missing key resolves to null rather than
			// failing the run.
			{Kind: string(ast.OnCreate), Param: "self", Body: &ast.PropertyAccess{Target: ident("self"), Name: "shout"}},
		},
	}
	eng := engine.New(spec, nil)
	result, d := eng.Run(context.Background(), map[string]eval.Value{"name": eval.String("ada")})
	if d != nil {
		t.Fatalf("Run: %s", d.Error())
	}
	if result.Computed["shout"].AsString() != "ADA" {
		t.Errorf("shout = %q", result.Computed["shout"].AsString())
	}
}

func TestRunFinallyRunsEvenAfterConstraintFailure(t *testing.T) {
	var finallyRan bool
	spec := &ast.Spec{
		Name: "x",
		Inputs: []*ast.InputField{
			{Name: "n", Type: numberType(), Modifiers: ast.FieldModifiers{Required: true}},
		},
		Constraints: []*ast.Constraint{
			{Kind: ast.Assert, Predicate: &ast.Literal{Kind: ast.LitBool, Bool: false}},
		},
		Lifecycle: []*ast.LifecycleHook{
			{Phase: ast.Finally, Body: &ast.FunctionCall{Object: "probe", Method: "mark"}},
		},
	}
	eng := engine.New(spec, markerCaller{onCall: func() { finallyRan = true }})
	_, d := eng.Run(context.Background(), map[string]eval.Value{"n": eval.Number(1)})
	if d == nil || d.Kind != diag.ConstraintViolated {
		t.Fatalf("expected ConstraintViolated, got %v", d)
	}
	if !finallyRan {
		t.Error("expected finally to run despite the constraint failure")
	}
}

func TestRunCancelledContext(t *testing.T) {
	spec := &ast.Spec{Name: "x"}
	eng := engine.New(spec, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, d := eng.Run(ctx, nil)
	if d == nil || d.Kind != diag.Cancelled {
		t.Fatalf("expected Cancelled, got %v", d)
	}
}

// markerCaller is a minimal eval.PluginCaller stub used only to observe
// that a lifecycle hook actually ran.
type markerCaller struct {
	onCall func()
}

func (m markerCaller) Invoke(alias, method string, args *eval.OrderedMap) (eval.Value, *diag.Diagnostic) {
	m.onCall()
	return eval.Null(), nil
}

// TestRunRegistersSecretInputsBeforeInvokingPlugins pins down the
// wiring between a `secret`-modified input and a plugin caller
// implementing eval.SecretSource: the engine must hand the bound
// secret value over before the first plugin call, so a caller (like
// plugin.Registry) can redact it out of a failing call's error text.
func TestRunRegistersSecretInputsBeforeInvokingPlugins(t *testing.T) {
	spec := &ast.Spec{
		Name: "x",
		Inputs: []*ast.InputField{
			{Name: "apiKey", Type: strType(), Modifiers: ast.FieldModifiers{Required: true, Secret: true}},
		},
		Lifecycle: []*ast.LifecycleHook{
			{Phase: ast.Finally, Body: &ast.FunctionCall{Object: "probe", Method: "mark"}},
		},
	}
	caller := &secretAwareCaller{}
	eng := engine.New(spec, caller)
	_, d := eng.Run(context.Background(), map[string]eval.Value{"apiKey": eval.String("sk-topsecret")})
	if d != nil {
		t.Fatalf("Run: %s", d.Error())
	}
	if len(caller.secrets) != 1 || caller.secrets[0] != "sk-topsecret" {
		t.Fatalf("secrets = %v, want [sk-topsecret]", caller.secrets)
	}
	if !caller.secretsSetBeforeCall {
		t.Error("expected secret values to be registered before any plugin call")
	}
}

// secretAwareCaller implements both eval.PluginCaller and
// eval.SecretSource, recording whether SetSecretValues ran before its
// first Invoke.
type secretAwareCaller struct {
	secrets              []string
	invoked              bool
	secretsSetBeforeCall bool
}

func (c *secretAwareCaller) SetSecretValues(values []string) {
	c.secrets = values
	if !c.invoked {
		c.secretsSetBeforeCall = true
	}
}

func (c *secretAwareCaller) Invoke(alias, method string, args *eval.OrderedMap) (eval.Value, *diag.Diagnostic) {
	c.invoked = true
	return eval.Null(), nil
}
