package jsonrpc

import (
	"encoding/json"

	"github.com/theapemachine/a2a-srv/pkg/errors"
)

type RPCResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id"`
	Result  any              `json:"result,omitempty"`
	Error   *errors.RpcError `json:"error,omitempty"`
}

// NewSuccessResponse wraps a result in a JSON-RPC 2.0 success envelope
// echoing the request id.
func NewSuccessResponse(id json.RawMessage, result any) RPCResponse {
	return RPCResponse{
		JSONRPC: "2.0",
		ID:      normalizeID(id),
		Result:  result,
	}
}

// NewErrorResponse wraps an RpcError in a JSON-RPC 2.0 error envelope.  A nil
// error is promoted to ErrInternal so the mandatory code/message are present.
func NewErrorResponse(id json.RawMessage, e *errors.RpcError) RPCResponse {
	if e == nil {
		e = errors.ErrInternal
	}

	return RPCResponse{
		JSONRPC: "2.0",
		ID:      normalizeID(id),
		Error:   e,
	}
}

// normalizeID keeps the response id field explicit: an unreadable or absent
// request id echoes back as null.
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
