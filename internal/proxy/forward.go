package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gmwallet/rpc-proxy/internal/rpc"
)

// forwarder relays non-intercepted requests to the upstream JSON-RPC
// server. A single HTTP client is shared across all requests so pooled
// keep-alive connections are reused. Failures are final: no retries.
type forwarder struct {
	client   *http.Client
	upstream string
}

func newForwarder(client *http.Client, upstream string) *forwarder {
	if client == nil {
		client = defaultHTTPClient()
	}
	return &forwarder{client: client, upstream: upstream}
}

// defaultHTTPClient pools connections to the upstream. No client timeout:
// the only timeout the proxy owns is the async override bound, and the
// upstream's own limits govern forwarded calls.
func defaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// call POSTs the re-serialised request to the upstream and decodes the
// reply as a response envelope. The upstream's id is relayed as received.
func (f *forwarder) call(ctx context.Context, req rpc.Request) (rpc.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return rpc.Response{}, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.upstream, bytes.NewReader(body))
	if err != nil {
		return rpc.Response{}, fmt.Errorf("failed to build upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return rpc.Response{}, fmt.Errorf("upstream call failed: %w", err)
	}
	defer httpResp.Body.Close()

	var resp rpc.Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return rpc.Response{}, fmt.Errorf("failed to decode upstream response: %w", err)
	}
	if resp.Result == nil && resp.Error == nil {
		return rpc.Response{}, errors.New("upstream returned a malformed JSON-RPC response")
	}
	return resp, nil
}
