package rpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ID
		wantErr bool
	}{
		{name: "number", input: "1", want: NumberID(1)},
		{name: "zero", input: "0", want: NumberID(0)},
		{name: "max_uint64", input: "18446744073709551615", want: NumberID(18446744073709551615)},
		{name: "string", input: `"abc"`, want: StringID("abc")},
		{name: "empty_string", input: `""`, want: StringID("")},
		{name: "null", input: "null", want: NullID()},
		{name: "negative", input: "-1", wantErr: true},
		{name: "float", input: "1.5", wantErr: true},
		{name: "exponent", input: "1e3", wantErr: true},
		{name: "overflow", input: "18446744073709551616", wantErr: true},
		{name: "bool", input: "true", wantErr: true},
		{name: "array", input: "[1]", wantErr: true},
		{name: "object", input: "{}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			err := json.Unmarshal([]byte(tt.input), &id)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestIDMarshal(t *testing.T) {
	tests := []struct {
		name string
		id   ID
		want string
	}{
		{name: "number", id: NumberID(42), want: "42"},
		{name: "string", id: StringID("x"), want: `"x"`},
		{name: "null", id: NullID(), want: "null"},
		{name: "zero_value", id: ID{}, want: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(raw))
		})
	}
}

func TestVersionStrictness(t *testing.T) {
	var v Version

	require.NoError(t, json.Unmarshal([]byte(`"2.0"`), &v))

	err := json.Unmarshal([]byte(`"1.0"`), &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"1.0"`)

	require.Error(t, json.Unmarshal([]byte(`2.0`), &v))
	require.Error(t, json.Unmarshal([]byte(`null`), &v))

	raw, err := json.Marshal(Version{})
	require.NoError(t, err)
	assert.Equal(t, `"2.0"`, string(raw))
}

func TestRequestUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Request
		wantErr bool
	}{
		{
			name:  "full",
			input: `{"jsonrpc":"2.0","method":"eth_call","params":[{"to":"0x1"}],"id":7}`,
			want: Request{
				Method: "eth_call",
				Params: json.RawMessage(`[{"to":"0x1"}]`),
				ID:     NumberID(7),
			},
		},
		{
			name:  "missing_params",
			input: `{"jsonrpc":"2.0","method":"eth_blockNumber","id":1}`,
			want:  Request{Method: "eth_blockNumber", ID: NumberID(1)},
		},
		{
			name:  "absent_id_is_null",
			input: `{"jsonrpc":"2.0","method":"eth_blockNumber"}`,
			want:  Request{Method: "eth_blockNumber", ID: NullID()},
		},
		{
			name:  "empty_method",
			input: `{"jsonrpc":"2.0","method":"","id":"x"}`,
			want:  Request{Method: "", ID: StringID("x")},
		},
		{name: "wrong_marker", input: `{"jsonrpc":"1.0","method":"x","id":1}`, wantErr: true},
		{name: "numeric_marker", input: `{"jsonrpc":2.0,"method":"x","id":1}`, wantErr: true},
		{name: "missing_marker", input: `{"method":"x","id":1}`, wantErr: true},
		{name: "missing_method", input: `{"jsonrpc":"2.0","id":1}`, wantErr: true},
		{name: "bad_id", input: `{"jsonrpc":"2.0","method":"x","id":1.5}`, wantErr: true},
		{name: "not_an_object", input: `5`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req Request
			err := json.Unmarshal([]byte(tt.input), &req)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req)
		})
	}
}

func TestRequestRoundTrip(t *testing.T) {
	inputs := []string{
		`{"jsonrpc":"2.0","method":"eth_call","params":[{"to":"0x1"},"latest"],"id":7}`,
		`{"jsonrpc":"2.0","method":"eth_chainId","id":"req-1"}`,
		`{"jsonrpc":"2.0","method":"eth_blockNumber","id":null}`,
		`{"jsonrpc":"2.0","method":"","params":{"a":1},"id":0}`,
	}

	for _, input := range inputs {
		var req Request
		require.NoError(t, json.Unmarshal([]byte(input), &req))

		out, err := json.Marshal(req)
		require.NoError(t, err)
		assert.JSONEq(t, input, string(out))
	}
}

func TestResponseSerialisation(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want string
	}{
		{
			name: "result",
			resp: NewResponse(NumberID(1), RawResult(json.RawMessage(`"0x1"`))),
			want: `{"jsonrpc":"2.0","result":"0x1","id":1}`,
		},
		{
			name: "null_result_kept",
			resp: NewResponse(StringID("x"), RawResult(json.RawMessage(`null`))),
			want: `{"jsonrpc":"2.0","result":null,"id":"x"}`,
		},
		{
			name: "error_without_data",
			resp: NewResponse(NullID(), ErrorPayload(UserRejected())),
			want: `{"jsonrpc":"2.0","error":{"code":-4001,"message":"User rejected the request."},"id":null}`,
		},
		{
			name: "internal_error",
			resp: InternalError(NumberID(3), "boom"),
			want: `{"jsonrpc":"2.0","error":{"code":-32603,"message":"Internal error: boom"},"id":3}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.resp)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestParseError(t *testing.T) {
	resp := ParseError(assert.AnError)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Nil(t, decoded["id"])

	errObj, ok := decoded["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(CodeParseError), errObj["code"])
	assert.Equal(t, "Parse error", errObj["message"])
	assert.Equal(t, assert.AnError.Error(), errObj["data"])
}

func TestNewResult(t *testing.T) {
	p, err := NewResult(map[string]string{"hash": "0xabc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"hash":"0xabc"}`, string(p.Result))
	assert.Nil(t, p.Error)

	_, err = NewResult(make(chan int))
	require.Error(t, err)
}
