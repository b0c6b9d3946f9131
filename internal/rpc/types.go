// Package rpc implements the JSON-RPC 2.0 envelope types used by the proxy.
//
// The codec is deliberately strict: the "jsonrpc" marker must be exactly
// "2.0", and request ids are restricted to unsigned integers, strings, and
// null. Ids round-trip unchanged onto responses, including null.
package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// JSON-RPC 2.0 error codes (following standard), plus the EIP-1193
// user-rejection code the wallet exposes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeUserRejected   = -4001
)

// Version is the protocol marker. It always serialises to the literal
// string "2.0" and refuses to deserialise anything else.
type Version struct{}

func (Version) MarshalJSON() ([]byte, error) {
	return []byte(`"2.0"`), nil
}

func (*Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid jsonrpc marker %s: %w", data, err)
	}
	if s != "2.0" {
		return fmt.Errorf("invalid jsonrpc marker %q: must be \"2.0\"", s)
	}
	return nil
}

type idKind int

const (
	idNull idKind = iota
	idNumber
	idString
)

// ID is a request id: an unsigned integer, a string, or null. The zero
// value is the null id. An absent id field decodes as null; the proxy
// answers notifications like any other request.
type ID struct {
	kind idKind
	num  uint64
	str  string
}

func NumberID(n uint64) ID { return ID{kind: idNumber, num: n} }

func StringID(s string) ID { return ID{kind: idString, str: s} }

func NullID() ID { return ID{} }

func (id ID) IsNull() bool { return id.kind == idNull }

// String renders the id for logging.
func (id ID) String() string {
	switch id.kind {
	case idNumber:
		return strconv.FormatUint(id.num, 10)
	case idString:
		return strconv.Quote(id.str)
	default:
		return "null"
	}
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idNumber:
		return []byte(strconv.FormatUint(id.num, 10)), nil
	case idString:
		return json.Marshal(id.str)
	default:
		return []byte("null"), nil
	}
}

func (id *ID) UnmarshalJSON(data []byte) error {
	b := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ID{}
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("invalid request id %s: %w", b, err)
		}
		*id = ID{kind: idString, str: s}
		return nil
	default:
		n, err := strconv.ParseUint(string(b), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid request id %s: must be an unsigned integer, a string, or null", b)
		}
		*id = ID{kind: idNumber, num: n}
		return nil
	}
}

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC Version         `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      ID              `json:"id"`
}

func (r *Request) UnmarshalJSON(data []byte) error {
	var w struct {
		JSONRPC *Version        `json:"jsonrpc"`
		Method  *string         `json:"method"`
		Params  json.RawMessage `json:"params"`
		ID      ID              `json:"id"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.JSONRPC == nil {
		return errors.New("missing jsonrpc marker: must be \"2.0\"")
	}
	if w.Method == nil {
		return errors.New("missing method")
	}
	r.Method = *w.Method
	r.Params = w.Params
	r.ID = w.ID
	return nil
}

// ErrorObject is a JSON-RPC 2.0 error: code, message, and optional data.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// UserRejected is the error a wallet returns when the user declines a
// sensitive request such as eth_sendTransaction or personal_sign.
func UserRejected() *ErrorObject {
	return &ErrorObject{Code: CodeUserRejected, Message: "User rejected the request."}
}

// withDetail attaches the given text as the error's data field.
func (e *ErrorObject) withDetail(detail string) *ErrorObject {
	raw, err := json.Marshal(detail)
	if err != nil {
		return e
	}
	e.Data = raw
	return e
}

// Payload is the result-or-error half of a response envelope. Exactly one
// of the two fields is set.
type Payload struct {
	Result json.RawMessage
	Error  *ErrorObject
}

// NewResult builds a success payload from any JSON-marshalable value.
func NewResult(v any) (Payload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to encode result: %w", err)
	}
	return Payload{Result: raw}, nil
}

// RawResult builds a success payload from pre-encoded JSON.
func RawResult(raw json.RawMessage) Payload {
	return Payload{Result: raw}
}

// ErrorPayload builds an error payload.
func ErrorPayload(e *ErrorObject) Payload {
	return Payload{Error: e}
}

// Response is a JSON-RPC 2.0 response envelope: the marker, exactly one of
// result or error, and the id of the request it answers. A null id is
// serialised explicitly, never omitted.
type Response struct {
	JSONRPC Version         `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
	ID      ID              `json:"id"`
}

// NewResponse wraps a payload with the protocol marker and the request id.
func NewResponse(id ID, p Payload) Response {
	return Response{Result: p.Result, Error: p.Error, ID: id}
}

// InternalError builds an internal-error response carrying the failure
// text in the message, preserving the request id.
func InternalError(id ID, detail string) Response {
	return Response{
		Error: &ErrorObject{
			Code:    CodeInternalError,
			Message: fmt.Sprintf("Internal error: %s", detail),
		},
		ID: id,
	}
}

// ParseError builds the single null-id envelope that answers a request
// body the codec could not decode.
func ParseError(err error) Response {
	e := &ErrorObject{Code: CodeParseError, Message: "Parse error"}
	if err != nil {
		e = e.withDetail(err.Error())
	}
	return Response{Error: e, ID: NullID()}
}
