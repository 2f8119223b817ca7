// Package httpplugin is the "http" extension: a thin, retrying JSON
// HTTP client exposed to specs as get/post methods, plus
// jsonPath/jsonSet/jsonKeys helpers over a response body. Response
// bodies are navigated with gjson/sjson rather than unmarshaled into
// Go structs, since the shape of a response is only known at spec
// authoring time. jsonKeys uses simplejson instead, since listing an
// object's keys needs a decoded map rather than a path query.
package httpplugin

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bitly/go-simplejson"
	"github.com/jpillora/backoff"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/gaarutyunov/sigmos/pkg/eval"
	"github.com/gaarutyunov/sigmos/pkg/plugin"
)

// HTTP implements plugin.Plugin backed by a *http.Client with
// exponential backoff retry on 5xx/network failures.
type HTTP struct {
	client  *http.Client
	backoff backoff.Backoff
	retries int
}

// New builds an HTTP plugin with a 10s request timeout and up to 3
// retries using a 100ms..2s exponential backoff.
func New() *HTTP {
	return &HTTP{
		client:  &http.Client{Timeout: 10 * time.Second},
		backoff: backoff.Backoff{Min: 100 * time.Millisecond, Max: 2 * time.Second, Factor: 2},
		retries: 3,
	}
}

func (*HTTP) Name() string { return "http" }

func (*HTTP) DescribeMethods() []plugin.Method {
	str := plugin.Param{Kind: plugin.ParamString, Required: true}
	bodyParam := plugin.Param{Name: "body", Kind: plugin.ParamString, Required: false}
	pathParam := func(name string) plugin.Param { p := str; p.Name = name; return p }
	return []plugin.Method{
		{Name: "get", Params: []plugin.Param{pathParam("url")}},
		{Name: "post", Params: []plugin.Param{pathParam("url"), bodyParam}},
		{Name: "jsonPath", Params: []plugin.Param{
			{Name: "json", Kind: plugin.ParamString, Required: true},
			{Name: "path", Kind: plugin.ParamString, Required: true},
		}},
		{Name: "jsonSet", Params: []plugin.Param{
			{Name: "json", Kind: plugin.ParamString, Required: true},
			{Name: "path", Kind: plugin.ParamString, Required: true},
			{Name: "value", Kind: plugin.ParamString, Required: true},
		}},
		{Name: "jsonKeys", Params: []plugin.Param{
			{Name: "json", Kind: plugin.ParamString, Required: true},
			{Name: "path", Kind: plugin.ParamString, Required: false},
		}},
	}
}

func (h *HTTP) Call(ctx context.Context, method string, args *eval.OrderedMap) (eval.Value, error) {
	switch method {
	case "get":
		url, _ := args.Get("url")
		return h.do(ctx, http.MethodGet, url.AsString(), "")
	case "post":
		url, _ := args.Get("url")
		body, _ := args.Get("body")
		return h.do(ctx, http.MethodPost, url.AsString(), body.AsString())
	case "jsonPath":
		j, _ := args.Get("json")
		p, _ := args.Get("path")
		res := gjson.Get(j.AsString(), p.AsString())
		if !res.Exists() {
			return eval.Null(), nil
		}
		return eval.String(res.String()), nil
	case "jsonSet":
		j, _ := args.Get("json")
		p, _ := args.Get("path")
		v, _ := args.Get("value")
		out, err := sjson.Set(j.AsString(), p.AsString(), v.AsString())
		if err != nil {
			return eval.Null(), fmt.Errorf("http.jsonSet: %w", err)
		}
		return eval.String(out), nil
	case "jsonKeys":
		j, _ := args.Get("json")
		doc, err := simplejson.NewJson([]byte(j.AsString()))
		if err != nil {
			return eval.Null(), fmt.Errorf("http.jsonKeys: %w", err)
		}
		if p, ok := args.Get("path"); ok && p.AsString() != "" {
			doc = doc.GetPath(strings.Split(p.AsString(), ".")...)
		}
		obj, err := doc.Map()
		if err != nil {
			return eval.Null(), fmt.Errorf("http.jsonKeys: value is not an object: %w", err)
		}
		keys := make([]eval.Value, 0, len(obj))
		for k := range obj {
			keys = append(keys, eval.String(k))
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].AsString() < keys[j].AsString() })
		return eval.Array(keys), nil
	default:
		return eval.Null(), fmt.Errorf("http: unknown method %q", method)
	}
}

// do issues a request with retry-on-failure, returning the response
// body as a raw string (left for jsonPath to navigate).
func (h *HTTP) do(ctx context.Context, verb, url, body string) (eval.Value, error) {
	b := h.backoff
	b.Reset()
	var lastErr error
	for attempt := 0; attempt <= h.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return eval.Null(), ctx.Err()
			case <-time.After(b.Duration()):
			}
		}
		var reader io.Reader
		if body != "" {
			reader = bytes.NewBufferString(body)
		}
		req, err := http.NewRequestWithContext(ctx, verb, url, reader)
		if err != nil {
			return eval.Null(), fmt.Errorf("http.%s: %w", verb, err)
		}
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			return eval.Null(), fmt.Errorf("http.%s: status %d: %s", verb, resp.StatusCode, string(data))
		}
		return eval.String(string(data)), nil
	}
	return eval.Null(), fmt.Errorf("http.%s: exhausted %d retries: %w", verb, h.retries, lastErr)
}
