package proxy

import (
	"context"
	"fmt"
	"time"

	"github.com/gmwallet/rpc-proxy/internal/rpc"
)

// Outcome labels reported to the metrics recorder.
const (
	labelSync         = "sync"
	labelDeferred     = "deferred"
	labelForward      = "forward"
	labelForwardError = "forward_error"
	labelOverrideErr  = "override_error"
	labelTimeout      = "timeout"
	labelDropped      = "dropped"
	labelCanceled     = "canceled"
)

// dispatch runs one request through the override function and the chosen
// completion strategy. Every path produces a response envelope carrying
// the request's id; errors never escape the request boundary.
func (s *Server) dispatch(ctx context.Context, req rpc.Request) rpc.Response {
	start := time.Now()
	resp, outcome := s.dispatchOutcome(ctx, req)
	s.metrics.RecordRPC(ctx, req.Method, outcome, time.Since(start))
	return resp
}

func (s *Server) dispatchOutcome(ctx context.Context, req rpc.Request) (rpc.Response, string) {
	out, err := s.override(req)
	if err != nil {
		s.logger.Errorw("Override failed", "method", req.Method, "id", req.ID, "error", err)
		return rpc.InternalError(req.ID, err.Error()), labelOverrideErr
	}

	switch out.kind {
	case outcomeSync:
		return rpc.NewResponse(req.ID, out.payload), labelSync
	case outcomeAsync:
		return s.awaitReply(ctx, req, out.reply)
	default:
		resp, err := s.fwd.call(ctx, req)
		if err != nil {
			s.logger.Warnw("Upstream forward failed", "method", req.Method, "id", req.ID, "error", err)
			s.metrics.RecordForwardError(ctx, req.Method)
			return rpc.InternalError(req.ID, err.Error()), labelForwardError
		}
		return resp, labelForward
	}
}

// awaitReply blocks until the out-of-band actor fulfils the handle, the
// async timeout fires, or the client goes away. Whichever way the wait
// ends, the handle is marked abandoned so the producer can stop working.
func (s *Server) awaitReply(ctx context.Context, req rpc.Request, reply *Reply) (rpc.Response, string) {
	timer := time.NewTimer(s.asyncTimeout)
	defer timer.Stop()
	defer reply.abandon()

	select {
	case p, ok := <-reply.ch:
		if !ok {
			s.logger.Warnw("Reply handle dropped", "method", req.Method, "id", req.ID)
			return rpc.InternalError(req.ID, "reply handle closed without a response"), labelDropped
		}
		return rpc.NewResponse(req.ID, p), labelDeferred
	case <-timer.C:
		s.logger.Warnw("Deferred reply timed out", "method", req.Method, "id", req.ID, "timeout", s.asyncTimeout)
		return rpc.InternalError(req.ID, fmt.Sprintf("timed out after %s waiting for the deferred reply", s.asyncTimeout)), labelTimeout
	case <-ctx.Done():
		// Client disconnected; the envelope is built for consistency even
		// though the transport will not deliver it.
		return rpc.InternalError(req.ID, fmt.Sprintf("request canceled while waiting for the deferred reply: %v", ctx.Err())), labelCanceled
	}
}
