package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-json-experiment/json"
	"github.com/spf13/cobra"

	"github.com/gaarutyunov/sigmos/internal/cache"
	"github.com/gaarutyunov/sigmos/pkg/engine"
	"github.com/gaarutyunov/sigmos/pkg/eval"
)

func newRunCmd() *cobra.Command {
	var inputFlags []string
	var watch bool

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a spec once against the given inputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			inputs, err := parseInputFlags(inputFlags)
			if err != nil {
				return err
			}
			if err := runOnce(cmd, path, inputs); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return watchAndRerun(cmd, path, inputs)
		},
	}
	cmd.Flags().StringArrayVar(&inputFlags, "input", nil, `bind an input field, e.g. --input name=value (value parsed as JSON)`)
	cmd.Flags().BoolVar(&watch, "watch", false, "re-run whenever the spec file changes")
	return cmd
}

func parseInputFlags(flags []string) (map[string]eval.Value, error) {
	inputs := make(map[string]eval.Value, len(flags))
	for _, kv := range flags {
		name, raw, found := strings.Cut(kv, "=")
		if !found {
			return nil, fmt.Errorf("malformed --input %q, expected name=value", kv)
		}
		var decoded interface{}
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			decoded = raw // bare strings need not be quoted on the command line
		}
		inputs[name] = eval.FromJSON(decoded)
	}
	return inputs, nil
}

func runOnce(cmd *cobra.Command, path string, inputs map[string]eval.Value) error {
	spec, err := loadSpec(path)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	registry, unresolved := buildRegistry(ctx, spec)
	if len(unresolved) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: unresolved extensions: %v\n", unresolved)
	}

	result, d := engine.New(spec, registry).Run(ctx, inputs)
	if d != nil {
		return d
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", eval.Stringify(result.Root))
	return nil
}

// watchAndRerun implements `run --watch`: re-execute whenever path's
// containing directory reports a write or create of path itself.
// Events for other files are ignored, and the incremental cache skips
// re-runs when the spec's fingerprint has not changed.
func watchAndRerun(cmd *cobra.Command, path string, inputs map[string]eval.Value) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	dir := dirOf(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	hashes := cache.New("")
	hashes.UpdateHash(path)

	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s for changes (ctrl-c to stop)\n", path)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != path || !(ev.Op&(fsnotify.Write|fsnotify.Create) != 0) {
				continue
			}
			changed, err := hashes.NeedsRegeneration(path)
			if err != nil || !changed {
				continue
			}
			if err := runOnce(cmd, path, inputs); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "watch error:", err)
		}
	}
}

func dirOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "."
	}
	return path[:idx]
}
