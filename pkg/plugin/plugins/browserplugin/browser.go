// Package browserplugin is the "browser" extension: headless-Chrome
// page text extraction for specs whose computed fields depend on a
// rendered page rather than a plain HTTP response.
package browserplugin

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/gaarutyunov/sigmos/pkg/eval"
	"github.com/gaarutyunov/sigmos/pkg/plugin"
)

// Browser implements plugin.Plugin with a single method, text, that
// navigates to a URL and returns the rendered text of one CSS
// selector. Each call gets its own short-lived browser context so
// specs calling it concurrently don't share tab state.
type Browser struct {
	navTimeout time.Duration
}

func New() *Browser {
	return &Browser{navTimeout: 20 * time.Second}
}

func (*Browser) Name() string { return "browser" }

func (*Browser) DescribeMethods() []plugin.Method {
	return []plugin.Method{
		{Name: "text", Params: []plugin.Param{
			{Name: "url", Kind: plugin.ParamString, Required: true},
			{Name: "selector", Kind: plugin.ParamString, Required: true},
		}},
	}
}

func (b *Browser) Call(ctx context.Context, method string, args *eval.OrderedMap) (eval.Value, error) {
	switch method {
	case "text":
		url, _ := args.Get("url")
		selector, _ := args.Get("selector")
		return b.text(ctx, url.AsString(), selector.AsString())
	default:
		return eval.Null(), fmt.Errorf("browser: unknown method %q", method)
	}
}

func (b *Browser) text(ctx context.Context, url, selector string) (eval.Value, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, b.navTimeout)
	defer cancelTimeout()

	var nodes []*cdp.Node
	var out string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery),
		chromedp.Text(selector, &out, chromedp.NodeVisible),
	)
	if err != nil {
		return eval.Null(), fmt.Errorf("browser.text: %w", err)
	}
	return eval.String(out), nil
}
