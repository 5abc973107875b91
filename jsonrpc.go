package mymcp

import (
	"encoding/json"
	"errors"

	"github.com/tmarkel/mysql-mcp/internal/pool"
)

// ProtocolVersion is the MCP protocol revision this server speaks.
const ProtocolVersion = "2025-03-26"

// JSON-RPC 2.0 error codes. The -32000 range carries the domain taxonomy.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeNotInitialized  = -32002
	CodeDatabaseError   = -32003
	CodePolicyViolation = -32004
	CodeUnsafeMutation  = -32005
	CodeTableNotFound   = -32006
	CodePoolExhausted   = -32007
)

// Request is an incoming JSON-RPC 2.0 message. ID is kept raw so that
// numeric and string ids are echoed back byte-for-byte. A missing or null ID
// marks a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the message carries no id and therefore
// must not produce a response.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// Response is an outgoing JSON-RPC 2.0 message: exactly one of Result/Error
// is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func newResponse(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

func newErrorResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// rpcErrorFor maps the engine's error taxonomy onto JSON-RPC error objects.
// Raw driver errors never cross this boundary unwrapped.
func rpcErrorFor(err error) *RPCError {
	var invalidArgsErr *InvalidArgumentsError
	var policyErr *PolicyViolationError
	var notFoundErr *TableNotFoundError
	var dbErr *DatabaseError

	switch {
	case errors.Is(err, ErrEmptyStatement):
		return &RPCError{Code: CodeInvalidParams, Message: "sql must contain a statement"}
	case errors.Is(err, ErrMultipleStatements):
		return &RPCError{Code: CodeInvalidParams, Message: "multi-statement input is not allowed"}
	case errors.As(err, &invalidArgsErr):
		return &RPCError{Code: CodeInvalidParams, Message: invalidArgsErr.Error()}
	case errors.As(err, &policyErr):
		return &RPCError{Code: CodePolicyViolation, Message: policyErr.Error()}
	case errors.Is(err, ErrUnconditionedMutation):
		return &RPCError{Code: CodeUnsafeMutation, Message: ErrUnconditionedMutation.Error()}
	case errors.As(err, &notFoundErr):
		return &RPCError{Code: CodeTableNotFound, Message: notFoundErr.Error()}
	case errors.Is(err, pool.ErrExhausted):
		return &RPCError{Code: CodePoolExhausted, Message: pool.ErrExhausted.Error()}
	case errors.As(err, &dbErr):
		return &RPCError{Code: CodeDatabaseError, Message: dbErr.Error()}
	default:
		return &RPCError{Code: CodeInternalError, Message: err.Error()}
	}
}
