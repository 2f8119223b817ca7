package plugin_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/gaarutyunov/sigmos/internal/diag"
	"github.com/gaarutyunov/sigmos/pkg/eval"
	"github.com/gaarutyunov/sigmos/pkg/plugin"
	"github.com/gaarutyunov/sigmos/pkg/plugin/plugins/echoplugin"
)

func TestInvokeBindsPositionalArgument(t *testing.T) {
	r := plugin.NewRegistry(context.Background())
	r.Register("echo", echoplugin.New())

	args := eval.NewOrderedMap()
	args.Set("$0", eval.String("hi"))

	v, d := r.Invoke("echo", "echo", args)
	if d != nil {
		t.Fatalf("Invoke: %s", d.Error())
	}
	if v.AsString() != "hi" {
		t.Errorf("got %q, want hi", v.AsString())
	}
}

func TestInvokeBindsNamedArgument(t *testing.T) {
	r := plugin.NewRegistry(context.Background())
	r.Register("echo", echoplugin.New())

	args := eval.NewOrderedMap()
	args.Set("value", eval.Number(42))

	v, d := r.Invoke("echo", "echo", args)
	if d != nil {
		t.Fatalf("Invoke: %s", d.Error())
	}
	if v.AsNumber() != 42 {
		t.Errorf("got %v, want 42", v.AsNumber())
	}
}

func TestInvokeRejectsMissingRequiredArgument(t *testing.T) {
	r := plugin.NewRegistry(context.Background())
	r.Register("echo", echoplugin.New())

	_, d := r.Invoke("echo", "echo", eval.NewOrderedMap())
	if d == nil || d.Kind != diag.BadArity {
		t.Fatalf("expected BadArity, got %v", d)
	}
}

func TestInvokeRejectsWrongArgumentKind(t *testing.T) {
	r := plugin.NewRegistry(context.Background())
	r.Register("echo", echoplugin.New())

	args := eval.NewOrderedMap()
	args.Set("a", eval.Number(1))
	args.Set("b", eval.String("y"))

	_, d := r.Invoke("echo", "concat", args)
	if d == nil || d.Kind != diag.TypeMismatch {
		t.Fatalf("expected TypeMismatch, got %v", d)
	}
}

func TestInvokeUnknownAlias(t *testing.T) {
	r := plugin.NewRegistry(context.Background())
	_, d := r.Invoke("ghost", "echo", eval.NewOrderedMap())
	if d == nil || d.Kind != diag.UnknownExtension {
		t.Fatalf("expected UnknownExtension, got %v", d)
	}
}

func TestInvokeUnknownMethod(t *testing.T) {
	r := plugin.NewRegistry(context.Background())
	r.Register("echo", echoplugin.New())
	_, d := r.Invoke("echo", "vanish", eval.NewOrderedMap())
	if d == nil || d.Kind != diag.Plugin {
		t.Fatalf("expected Plugin, got %v", d)
	}
}

func TestInvokeRedactsSecretValuesFromFailingCall(t *testing.T) {
	r := plugin.NewRegistry(context.Background())
	r.Register("auth", failingPlugin{})
	r.SetSecretValues([]string{"swordfish"})

	args := eval.NewOrderedMap()
	args.Set("$0", eval.String("swordfish"))

	_, d := r.Invoke("auth", "login", args)
	if d == nil || d.Kind != diag.Plugin {
		t.Fatalf("expected Plugin, got %v", d)
	}
	if strings.Contains(d.Message, "swordfish") {
		t.Errorf("message leaked the secret value: %q", d.Message)
	}
	if !strings.Contains(d.Message, diag.RedactedSentinel) {
		t.Errorf("message = %q, want it to contain the redaction sentinel", d.Message)
	}
}

// failingPlugin always rejects its one call, echoing the offending
// argument back in the error text — standing in for a real plugin
// that might leak a credential into an upstream error message.
type failingPlugin struct{}

func (failingPlugin) Name() string { return "auth" }

func (failingPlugin) DescribeMethods() []plugin.Method {
	return []plugin.Method{{Name: "login", Params: []plugin.Param{{Name: "password", Kind: plugin.ParamString, Required: true}}}}
}

func (failingPlugin) Call(ctx context.Context, method string, args *eval.OrderedMap) (eval.Value, error) {
	pw, _ := args.Get("password")
	return eval.Null(), fmt.Errorf("login rejected for password %q", pw.AsString())
}

func TestAliasesSorted(t *testing.T) {
	r := plugin.NewRegistry(context.Background())
	r.Register("zeta", echoplugin.New())
	r.Register("alpha", echoplugin.New())
	got := r.Aliases()
	if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Fatalf("got %v, want [alpha zeta]", got)
	}
}
