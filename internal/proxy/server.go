// Package proxy implements the local JSON-RPC override proxy: an HTTP
// endpoint that serves JSON-RPC 2.0 on a single secret-guarded route,
// lets a caller-supplied override intercept requests, and forwards the
// rest to a real upstream RPC server.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gmwallet/rpc-proxy/internal/rpc"
	"go.uber.org/zap"
)

// DefaultAsyncTimeout bounds how long the dispatcher waits on an async
// override handle before answering with an internal error.
const DefaultAsyncTimeout = 180 * time.Second

// Recorder receives proxy telemetry. Implemented by internal/metrics; a
// no-op recorder is used when none is configured.
type Recorder interface {
	RecordRPC(ctx context.Context, method, outcome string, duration time.Duration)
	RecordForwardError(ctx context.Context, method string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRPC(context.Context, string, string, time.Duration) {}
func (nopRecorder) RecordForwardError(context.Context, string)               {}

// Options tune a Server beyond the required construction arguments. The
// zero value gives 0.0.0.0 binding, a no-op logger and recorder, the
// default async timeout, and a pooled upstream HTTP client.
type Options struct {
	BindHost     string
	Logger       *zap.SugaredLogger
	Metrics      Recorder
	CORSOrigins  []string
	AsyncTimeout time.Duration
	HTTPClient   *http.Client
}

// Server is the proxy. Its state is immutable after construction; request
// handling shares the override function, upstream client, and secret by
// reference only, so the hot path needs no locks.
type Server struct {
	port         int
	bindHost     string
	secret       string
	override     OverrideFunc
	fwd          *forwarder
	logger       *zap.SugaredLogger
	metrics      Recorder
	corsOrigins  []string
	asyncTimeout time.Duration
	httpSrv      *http.Server
}

// NewServer builds a proxy that listens on the given port, accepts POSTs
// on /<secret>, consults override for every request, and forwards the
// rest to upstream.
func NewServer(port int, secret string, upstream string, override OverrideFunc, opts Options) *Server {
	if opts.BindHost == "" {
		opts.BindHost = "0.0.0.0"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	if opts.AsyncTimeout <= 0 {
		opts.AsyncTimeout = DefaultAsyncTimeout
	}

	s := &Server{
		port:         port,
		bindHost:     opts.BindHost,
		secret:       secret,
		override:     override,
		fwd:          newForwarder(opts.HTTPClient, upstream),
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		corsOrigins:  opts.CORSOrigins,
		asyncTimeout: opts.AsyncTimeout,
	}

	s.httpSrv = &http.Server{
		Handler: s.Routes(),
		// No write timeout: deferred replies may legitimately take up to
		// the async bound to materialise.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Routes builds the router: one POST route on the capability path. The
// secret is an opaque single-segment token compared verbatim; everything
// else is the router's default 404/405.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.recoverer)
	r.Use(s.requestLogger)
	if len(s.corsOrigins) > 0 {
		r.Use(corsHandler(s.corsOrigins))
	}

	r.Post("/{secret}", s.handleRPC)

	return r
}

// Serve binds the listen address and serves until Shutdown. It never
// returns on success; a failed bind yields *BindError and an accept-loop
// failure yields *CrashError.
func (s *Server) Serve() error {
	addr := net.JoinHostPort(s.bindHost, strconv.Itoa(s.port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return &BindError{Addr: addr, Err: err}
	}

	s.logger.Infow("RPC proxy listening", "addr", addr)

	if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return &CrashError{Err: err}
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "secret") != s.secret {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	// Batch detection: a top-level array is a batch, an object is a single
	// request, anything else fails at the codec and collapses to a single
	// parse-error envelope with a null id.
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []rpc.Request
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			s.writeJSON(w, rpc.ParseError(err))
			return
		}

		// Sequential by design: a batch is answered in input order, and a
		// caller that depends on ordering is spared races.
		resps := make([]rpc.Response, 0, len(reqs))
		for _, req := range reqs {
			resps = append(resps, s.dispatch(r.Context(), req))
		}
		s.writeJSON(w, resps)
		return
	}

	var req rpc.Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		s.writeJSON(w, rpc.ParseError(err))
		return
	}
	s.writeJSON(w, s.dispatch(r.Context(), req))
}

// writeJSON sends a JSON-RPC payload. Protocol-level errors still travel
// with HTTP 200; only transport problems use other status codes.
func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorw("Failed to encode response", "error", err)
	}
}
