package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/jsonrpc"
)

/*
StreamEvent is one frame of a tasks/sendSubscribe stream: exactly one of
Status or Artifact is set.
*/
type StreamEvent struct {
	ID       string
	Final    bool
	Status   *a2a.TaskStatus
	Artifact *a2a.Artifact
}

/*
SendTaskSubscribe opens a tasks/sendSubscribe stream and invokes handler for
every event until the server sends the final frame, the context is done, or
the connection drops.
*/
func (client *A2AClient) SendTaskSubscribe(
	ctx context.Context,
	params a2a.TaskSendParams,
	handler func(StreamEvent),
) error {
	paramsBuf, err := json.Marshal(params)
	if err != nil {
		return err
	}

	req := jsonrpc.RPCRequest{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`"` + uuid.NewString() + `"`),
		Method:  "tasks/sendSubscribe",
		Params:  paramsBuf,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, client.baseURL+"/", bytes.NewReader(body),
	)
	if err != nil {
		return err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	if client.signer != nil {
		for k, v := range client.signer.Headers() {
			httpReq.Header.Set(k, v)
		}
	}

	res, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		// pre-stream protocol error: a single JSON-RPC error body
		var rpcResp jsonrpc.RPCResponse
		if err := json.NewDecoder(res.Body).Decode(&rpcResp); err != nil {
			return fmt.Errorf("unexpected response content type %q", ct)
		}
		if rpcResp.Error != nil {
			return rpcResp.Error
		}
		return fmt.Errorf("unexpected non-stream response")
	}

	reader := bufio.NewReader(res.Body)

	for {
		data, err := readSSE(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if data == "" {
			continue
		}

		var frame struct {
			Result json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			return fmt.Errorf("malformed stream frame: %w", err)
		}

		var probe struct {
			ID       string          `json:"id"`
			Final    bool            `json:"final"`
			Status   *a2a.TaskStatus `json:"status"`
			Artifact *a2a.Artifact   `json:"artifact"`
		}
		if err := json.Unmarshal(frame.Result, &probe); err != nil {
			return fmt.Errorf("malformed stream event: %w", err)
		}

		handler(StreamEvent{
			ID:       probe.ID,
			Final:    probe.Final,
			Status:   probe.Status,
			Artifact: probe.Artifact,
		})

		if probe.Final {
			return nil
		}
	}
}

// readSSE reads one line of an SSE stream, returning the payload of a data:
// line and "" for blanks and comment heartbeats.
func readSSE(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')

	if err != nil {
		return "", err
	}

	line = strings.TrimSpace(line)

	if line == "" || strings.HasPrefix(line, ":") {
		return "", nil
	}

	if !strings.HasPrefix(line, "data: ") {
		return "", errors.New("invalid SSE line")
	}

	return strings.TrimPrefix(line, "data: "), nil
}
