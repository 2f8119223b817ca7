// Package binanceplugin is the "binance" extension: a read-only market
// data lookup used by specs that price something against a live
// exchange feed. The quoted price string is parsed with
// shopspring/decimal and returned to the spec as a float64 Number.
package binanceplugin

import (
	"context"
	"fmt"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/gaarutyunov/sigmos/pkg/eval"
	"github.com/gaarutyunov/sigmos/pkg/plugin"
)

// Binance implements plugin.Plugin over the public (unauthenticated)
// market data endpoints only; specs cannot place orders through it.
type Binance struct {
	client *binance.Client
}

func New() *Binance {
	return &Binance{client: binance.NewClient("", "")}
}

func (*Binance) Name() string { return "binance" }

func (*Binance) DescribeMethods() []plugin.Method {
	return []plugin.Method{
		{Name: "price", Params: []plugin.Param{{Name: "symbol", Kind: plugin.ParamString, Required: true}}},
	}
}

func (b *Binance) Call(ctx context.Context, method string, args *eval.OrderedMap) (eval.Value, error) {
	switch method {
	case "price":
		symbol, _ := args.Get("symbol")
		prices, err := b.client.NewListPricesService().Symbol(symbol.AsString()).Do(ctx)
		if err != nil {
			return eval.Null(), fmt.Errorf("binance.price: %w", err)
		}
		if len(prices) == 0 {
			return eval.Null(), fmt.Errorf("binance.price: no price for symbol %q", symbol.AsString())
		}
		d, err := decimal.NewFromString(prices[0].Price)
		if err != nil {
			return eval.Null(), fmt.Errorf("binance.price: %w", err)
		}
		f, _ := strconv.ParseFloat(d.String(), 64)
		return eval.Number(f), nil
	default:
		return eval.Null(), fmt.Errorf("binance: unknown method %q", method)
	}
}
