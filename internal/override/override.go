// Package override provides building blocks for proxy override functions.
//
// The proxy core keeps policy out: its override is just a function value.
// Hosts that want method-by-method dispatch compose one here.
package override

import (
	"encoding/json"

	"github.com/gmwallet/rpc-proxy/internal/proxy"
	"github.com/gmwallet/rpc-proxy/internal/rpc"
)

// Handler decides the outcome for requests of a single method.
type Handler func(req rpc.Request) (proxy.Outcome, error)

// Mux routes override decisions by method name, passing unregistered
// methods through to the upstream. Register all handlers before serving;
// the map is read-only afterwards, which is what makes Func safe for
// concurrent calls.
type Mux struct {
	handlers map[string]Handler
}

func NewMux() *Mux {
	return &Mux{handlers: make(map[string]Handler)}
}

// Handle registers h for the given method, replacing any previous handler.
func (m *Mux) Handle(method string, h Handler) {
	m.handlers[method] = h
}

// Func adapts the mux to the proxy's override signature.
func (m *Mux) Func() proxy.OverrideFunc {
	return func(req rpc.Request) (proxy.Outcome, error) {
		if h, ok := m.handlers[req.Method]; ok {
			return h(req)
		}
		return proxy.NoOverride(), nil
	}
}

// Static answers every request with the same result value.
func Static(v any) Handler {
	return func(rpc.Request) (proxy.Outcome, error) {
		p, err := rpc.NewResult(v)
		if err != nil {
			return proxy.Outcome{}, err
		}
		return proxy.Sync(p), nil
	}
}

// StaticRaw answers every request with the same pre-encoded JSON result.
func StaticRaw(raw json.RawMessage) Handler {
	return func(rpc.Request) (proxy.Outcome, error) {
		return proxy.Sync(rpc.RawResult(raw)), nil
	}
}

// Reject answers every request with the user-rejected error, the response
// a wallet gives for a sensitive method nobody is around to approve.
func Reject() Handler {
	return func(rpc.Request) (proxy.Outcome, error) {
		return proxy.Sync(rpc.ErrorPayload(rpc.UserRejected())), nil
	}
}
