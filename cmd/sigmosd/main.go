// Command sigmosd is a secondary SIGMOS entrypoint: a long-running
// host process that loads a spec and its plugin registry once, then
// serves repeated `run` requests over stdin/stdout — one JSON object
// of input bindings per line, one JSON result per line back. It
// demonstrates urfave/cli/v2 as an alternate CLI binding alongside
// cmd/sigmos's cobra front-end.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/urfave/cli/v2"

	"github.com/gaarutyunov/sigmos/internal/diag"
	"github.com/gaarutyunov/sigmos/pkg/ast"
	"github.com/gaarutyunov/sigmos/pkg/engine"
	"github.com/gaarutyunov/sigmos/pkg/eval"
	"github.com/gaarutyunov/sigmos/pkg/parser"
	"github.com/gaarutyunov/sigmos/pkg/plugin"
	"github.com/gaarutyunov/sigmos/pkg/plugin/plugins/echoplugin"
	"github.com/gaarutyunov/sigmos/pkg/plugin/plugins/httpplugin"
)

func main() {
	app := &cli.App{
		Name:  "sigmosd",
		Usage: "serve repeated executions of one spec over stdin/stdout",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "spec", Required: true, Usage: "path to a .sigmos spec file"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "per-execution timeout"},
		},
		Action: serve,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(c *cli.Context) error {
	spec, err := loadSpec(c.String("spec"))
	if err != nil {
		return err
	}

	registry := plugin.NewRegistry(context.Background())
	registry.Register("echo", echoplugin.New())
	registry.Register("http", httpplugin.New())
	for _, ext := range spec.Extensions {
		if ext.RefName != "echo" && ext.RefName != "http" {
			log.Printf("sigmosd: no builtin plugin for extension %q (%s), calls to it will fail", ext.Alias, ext.RefName)
		}
	}

	eng := engine.New(spec, registry)
	timeout := c.Duration("timeout")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw map[string]interface{}
		if err := json.Unmarshal(line, &raw); err != nil {
			fmt.Println(errorLine(fmt.Errorf("decoding request: %w", err)))
			continue
		}
		inputs := make(map[string]eval.Value, len(raw))
		for k, v := range raw {
			inputs[k] = eval.FromJSON(v)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		result, d := eng.Run(ctx, inputs)
		cancel()
		if d != nil {
			fmt.Println(errorLine(d))
			continue
		}
		fmt.Println(eval.Stringify(result.Root))
	}
	return scanner.Err()
}

func errorLine(err error) string {
	if d, ok := err.(*diag.Diagnostic); ok {
		return fmt.Sprintf(`{"error": %q, "kind": %q}`, d.Message, d.Kind)
	}
	return fmt.Sprintf(`{"error": %q}`, err.Error())
}

func loadSpec(path string) (*ast.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	p, err := parser.New()
	if err != nil {
		return nil, fmt.Errorf("building parser: %w", err)
	}
	raw, err := p.ParseBytes(path, data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	s, diags := ast.Build(raw)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: %s", path, diags.Error())
	}
	return s, nil
}
