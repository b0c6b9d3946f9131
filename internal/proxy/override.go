package proxy

import "github.com/gmwallet/rpc-proxy/internal/rpc"

// OverrideFunc decides how a request is answered. It is the sole extension
// surface of the proxy: hosts intercept sensitive wallet methods here and
// let everything else flow to the upstream.
//
// The function is called once per request, possibly from many goroutines
// at once, so it must be safe for concurrent use and must not block.
type OverrideFunc func(req rpc.Request) (Outcome, error)

type outcomeKind int

const (
	outcomeNoOverride outcomeKind = iota
	outcomeSync
	outcomeAsync
)

// Outcome is an OverrideFunc's decision for a single request: answer now,
// answer later through a Reply handle, or forward to the upstream.
type Outcome struct {
	kind    outcomeKind
	payload rpc.Payload
	reply   *Reply
}

// Sync answers the request immediately with the given payload.
func Sync(p rpc.Payload) Outcome {
	return Outcome{kind: outcomeSync, payload: p}
}

// Async defers the answer: the dispatcher waits on the handle until an
// out-of-band actor sends the payload, bounded by the async timeout.
func Async(r *Reply) Outcome {
	return Outcome{kind: outcomeAsync, reply: r}
}

// NoOverride forwards the request unchanged to the upstream.
func NoOverride() Outcome {
	return Outcome{kind: outcomeNoOverride}
}
