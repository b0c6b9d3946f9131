package override

import (
	"encoding/json"
	"testing"

	"github.com/gmwallet/rpc-proxy/internal/proxy"
	"github.com/gmwallet/rpc-proxy/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMuxDispatch(t *testing.T) {
	mux := NewMux()
	mux.Handle("eth_blockNumber", StaticRaw(json.RawMessage(`"0x1"`)))
	mux.Handle("eth_sendTransaction", Reject())

	fn := mux.Func()

	out, err := fn(rpc.Request{Method: "eth_blockNumber", ID: rpc.NumberID(1)})
	require.NoError(t, err)
	assert.Equal(t, proxy.Sync(rpc.RawResult(json.RawMessage(`"0x1"`))), out)

	out, err = fn(rpc.Request{Method: "eth_sendTransaction", ID: rpc.NumberID(2)})
	require.NoError(t, err)
	assert.Equal(t, proxy.Sync(rpc.ErrorPayload(rpc.UserRejected())), out)

	out, err = fn(rpc.Request{Method: "eth_chainId", ID: rpc.NumberID(3)})
	require.NoError(t, err)
	assert.Equal(t, proxy.NoOverride(), out, "unregistered methods pass through")
}

func TestMuxReplacesHandler(t *testing.T) {
	mux := NewMux()
	mux.Handle("eth_accounts", Reject())
	mux.Handle("eth_accounts", Static([]string{"0xabc"}))

	out, err := mux.Func()(rpc.Request{Method: "eth_accounts", ID: rpc.NumberID(1)})
	require.NoError(t, err)
	assert.Equal(t, proxy.Sync(rpc.RawResult(json.RawMessage(`["0xabc"]`))), out)
}

func TestStaticMarshalFailure(t *testing.T) {
	h := Static(make(chan int))

	_, err := h(rpc.Request{Method: "x"})
	require.Error(t, err)
}
