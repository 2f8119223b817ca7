// Package streamplugin is the "stream" extension: request/response
// over a WebSocket, for specs that need to poll a push-based feed
// synchronously. The gorilla client drives the common path; a
// gobwas/ws dial is used for dialFrame, a lower-level probe that
// returns only the handshake's negotiated subprotocol (no framing
// loop), exercising the lighter-weight client the rest of the stack
// doesn't need.
package streamplugin

import (
	"context"
	"fmt"
	"time"

	"github.com/gobwas/ws"
	"github.com/gorilla/websocket"

	"github.com/gaarutyunov/sigmos/pkg/eval"
	"github.com/gaarutyunov/sigmos/pkg/plugin"
)

// Stream implements plugin.Plugin with two methods: exchange (send a
// message, read one reply) and dialFrame (handshake only).
type Stream struct {
	dialTimeout time.Duration
}

func New() *Stream {
	return &Stream{dialTimeout: 5 * time.Second}
}

func (*Stream) Name() string { return "stream" }

func (*Stream) DescribeMethods() []plugin.Method {
	return []plugin.Method{
		{Name: "exchange", Params: []plugin.Param{
			{Name: "url", Kind: plugin.ParamString, Required: true},
			{Name: "message", Kind: plugin.ParamString, Required: true},
		}},
		{Name: "dialFrame", Params: []plugin.Param{{Name: "url", Kind: plugin.ParamString, Required: true}}},
	}
}

func (s *Stream) Call(ctx context.Context, method string, args *eval.OrderedMap) (eval.Value, error) {
	switch method {
	case "exchange":
		url, _ := args.Get("url")
		msg, _ := args.Get("message")
		return s.exchange(ctx, url.AsString(), msg.AsString())
	case "dialFrame":
		url, _ := args.Get("url")
		return s.dialFrame(ctx, url.AsString())
	default:
		return eval.Null(), fmt.Errorf("stream: unknown method %q", method)
	}
}

func (s *Stream) exchange(ctx context.Context, url, message string) (eval.Value, error) {
	dialer := websocket.Dialer{HandshakeTimeout: s.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return eval.Null(), fmt.Errorf("stream.exchange: dial: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
		return eval.Null(), fmt.Errorf("stream.exchange: write: %w", err)
	}
	_, reply, err := conn.ReadMessage()
	if err != nil {
		return eval.Null(), fmt.Errorf("stream.exchange: read: %w", err)
	}
	return eval.String(string(reply)), nil
}

// dialFrame performs a raw handshake with gobwas/ws and returns the
// negotiated subprotocol (empty string if none was offered).
func (s *Stream) dialFrame(ctx context.Context, url string) (eval.Value, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.dialTimeout)
	defer cancel()
	d := ws.Dialer{}
	conn, _, hs, err := d.Dial(dialCtx, url)
	if err != nil {
		return eval.Null(), fmt.Errorf("stream.dialFrame: %w", err)
	}
	defer conn.Close()
	return eval.String(hs.Protocol), nil
}
