package proxy

import (
	"errors"
	"sync"

	"github.com/gmwallet/rpc-proxy/internal/rpc"
)

var (
	// ErrReplySpent is returned by Send when the handle was already used.
	ErrReplySpent = errors.New("reply handle already used")

	// ErrReplyAbandoned is returned by Send when the waiting request has
	// already given up (timeout or client disconnect).
	ErrReplyAbandoned = errors.New("request is no longer waiting for the reply")
)

// Reply is the single-use handle behind an Async override outcome. The
// override hands it to an out-of-band actor (a confirmation prompt, a
// signer); the dispatcher waits on it for the response payload.
//
// At most one payload travels through the handle. Closing it without
// sending tells the dispatcher the producer gave up, which surfaces to the
// client as an internal error rather than a hang.
type Reply struct {
	once sync.Once
	ch   chan rpc.Payload
	done chan struct{}
}

func NewReply() *Reply {
	return &Reply{
		ch:   make(chan rpc.Payload, 1),
		done: make(chan struct{}),
	}
}

// Send fulfils the reply. It returns ErrReplyAbandoned if the dispatcher
// stopped waiting, and ErrReplySpent if the handle was already used.
func (r *Reply) Send(p rpc.Payload) error {
	select {
	case <-r.done:
		return ErrReplyAbandoned
	default:
	}

	sent := false
	r.once.Do(func() {
		r.ch <- p
		sent = true
	})
	if !sent {
		return ErrReplySpent
	}
	return nil
}

// Close abandons the handle without sending. Safe to call after Send, in
// which case it does nothing.
func (r *Reply) Close() {
	r.once.Do(func() {
		close(r.ch)
	})
}

// Done is closed once the dispatcher is no longer waiting on the handle,
// either because a payload arrived or because it gave up. Producers should
// select on it and stop work when it fires.
func (r *Reply) Done() <-chan struct{} {
	return r.done
}

// abandon marks the handle as no longer awaited. Called exactly once by
// the dispatcher when its wait ends, whatever the outcome.
func (r *Reply) abandon() {
	close(r.done)
}
