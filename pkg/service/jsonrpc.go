package service

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/theapemachine/a2a-srv/pkg/errors"
	"github.com/theapemachine/a2a-srv/pkg/jsonrpc"
	"github.com/theapemachine/a2a-srv/pkg/metrics"
	"github.com/theapemachine/a2a-srv/pkg/tasks"
)

/*
RPCServer accepts JSON-RPC 2.0 over HTTP POST and routes the four task
methods into the engine.  Every error leaves as an HTTP 200 JSON-RPC error
body; the response id echoes the request id, or null when the request was
unreadable.  tasks/sendSubscribe switches the response to an SSE stream.
*/
type RPCServer struct {
	manager *TaskManager
	metrics *metrics.Metrics
}

func NewRPCServer(manager *TaskManager, m *metrics.Metrics) *RPCServer {
	return &RPCServer{
		manager: manager,
		metrics: m,
	}
}

func (srv *RPCServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST supported", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respond(w, jsonrpc.NewErrorResponse(nil, errors.ErrParseError))
		return
	}

	body = bytes.TrimSpace(body)

	if len(body) == 0 {
		respond(w, jsonrpc.NewErrorResponse(nil, errors.ErrInvalidRequest))
		return
	}

	// Batch requests carry only unary methods; a stream cannot share a
	// response body with its siblings.
	if body[0] == '[' {
		srv.serveBatch(w, r, body)
		return
	}

	req, rpcErr := parseRequest(body)
	if rpcErr != nil {
		respond(w, jsonrpc.NewErrorResponse(nil, rpcErr))
		return
	}

	if req.Method == "tasks/sendSubscribe" {
		srv.serveStream(w, r, req)
		return
	}

	resp := srv.handle(r.Context(), req)

	// Notification – no ID → no response body.
	if len(req.ID) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respond(w, resp)
}

func (srv *RPCServer) serveBatch(w http.ResponseWriter, r *http.Request, body []byte) {
	var batch []json.RawMessage

	if err := json.Unmarshal(body, &batch); err != nil {
		respond(w, jsonrpc.NewErrorResponse(nil, errors.ErrParseError))
		return
	}

	if len(batch) == 0 {
		respond(w, jsonrpc.NewErrorResponse(nil, errors.ErrInvalidRequest))
		return
	}

	var responses []jsonrpc.RPCResponse

	for _, raw := range batch {
		req, rpcErr := parseRequest(raw)
		if rpcErr != nil {
			responses = append(responses, jsonrpc.NewErrorResponse(nil, rpcErr))
			continue
		}

		if req.Method == "tasks/sendSubscribe" {
			responses = append(responses, jsonrpc.NewErrorResponse(req.ID,
				errors.ErrInvalidRequest.WithMessagef("tasks/sendSubscribe cannot be part of a batch")))
			continue
		}

		resp := srv.handle(r.Context(), req)

		if len(req.ID) != 0 {
			responses = append(responses, resp)
		}
	}

	if len(responses) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(responses); err != nil {
		log.Error("failed to encode batch response", "error", err)
	}
}

func (srv *RPCServer) serveStream(w http.ResponseWriter, r *http.Request, req *jsonrpc.RPCRequest) {
	stream, rpcErr := tasks.SendSubscribe(r.Context(), req.Params, srv.manager)

	srv.metrics.ObserveRPC(req.Method, rpcErr)

	if rpcErr != nil {
		logRPCError(req, rpcErr)
		respond(w, jsonrpc.NewErrorResponse(req.ID, rpcErr))
		return
	}

	StreamEvents(w, r, req.ID, stream, srv.metrics)
}

func (srv *RPCServer) handle(ctx context.Context, req *jsonrpc.RPCRequest) jsonrpc.RPCResponse {
	var (
		result any
		rpcErr *errors.RpcError
	)

	method := req.Method

	switch req.Method {
	case "tasks/send":
		result, rpcErr = tasks.Send(ctx, req.Params, srv.manager)
	case "tasks/get":
		result, rpcErr = tasks.Get(ctx, req.Params, srv.manager)
	case "tasks/cancel":
		result, rpcErr = tasks.Cancel(ctx, req.Params, srv.manager)
	default:
		// keep the metrics label space bounded
		method = "unknown"
		rpcErr = errors.ErrMethodNotFound.WithData(req.Method)
	}

	srv.metrics.ObserveRPC(method, rpcErr)

	if rpcErr != nil {
		logRPCError(req, rpcErr)
		return jsonrpc.NewErrorResponse(req.ID, rpcErr)
	}

	return jsonrpc.NewSuccessResponse(req.ID, result)
}

// parseRequest validates the JSON-RPC 2.0 envelope: version "2.0", method a
// string, id a string, number or null, params an object or array when
// present.  Malformed JSON is a parse error; a well-formed but non-conforming
// envelope is an invalid request.
func parseRequest(raw []byte) (*jsonrpc.RPCRequest, *errors.RpcError) {
	var env struct {
		JSONRPC json.RawMessage `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  json.RawMessage `json:"method"`
		Params  json.RawMessage `json:"params"`
	}

	if err := json.Unmarshal(raw, &env); err != nil {
		var syntaxErr *json.SyntaxError
		if stderrors.As(err, &syntaxErr) {
			return nil, errors.ErrParseError.WithData(err.Error())
		}
		return nil, errors.ErrInvalidRequest.WithData(err.Error())
	}

	var version string
	if json.Unmarshal(env.JSONRPC, &version) != nil || version != "2.0" {
		return nil, errors.ErrInvalidRequest.WithMessagef(`jsonrpc version must be "2.0"`)
	}

	var method string
	if len(env.Method) == 0 || json.Unmarshal(env.Method, &method) != nil || method == "" {
		return nil, errors.ErrInvalidRequest.WithMessagef("method must be a non-empty string")
	}

	if !validRequestID(env.ID) {
		return nil, errors.ErrInvalidRequest.WithMessagef("id must be a string, number or null")
	}

	if len(env.Params) > 0 && env.Params[0] != '{' && env.Params[0] != '[' &&
		!bytes.Equal(env.Params, []byte("null")) {
		return nil, errors.ErrInvalidRequest.WithMessagef("params must be an object or array")
	}

	return &jsonrpc.RPCRequest{
		JSONRPC: version,
		ID:      env.ID,
		Method:  method,
		Params:  env.Params,
	}, nil
}

func validRequestID(raw json.RawMessage) bool {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return true
	}

	switch raw[0] {
	case '"':
		return true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return true
	default:
		return false
	}
}

func respond(w http.ResponseWriter, resp jsonrpc.RPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("failed to encode RPC response", "error", err)
	}
}

func logRPCError(req *jsonrpc.RPCRequest, rpcErr *errors.RpcError) {
	log.Error("request failed",
		"method", req.Method,
		"request_id", string(req.ID),
		"task_id", rpcErr.TaskID,
		"code", rpcErr.Code,
		"message", rpcErr.Message,
	)
}
