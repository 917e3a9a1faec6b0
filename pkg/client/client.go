package client

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	fiberClient "github.com/gofiber/fiber/v3/client"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/auth"
	"github.com/theapemachine/a2a-srv/pkg/errors"
	"github.com/theapemachine/a2a-srv/pkg/jsonrpc"
)

/*
A2AClient talks to an A2A task server: unary calls over JSON-RPC, streaming
via SendTaskSubscribe.
*/
type A2AClient struct {
	baseURL string
	conn    *fiberClient.Client
	signer  *Signer
}

type ClientOption func(*A2AClient)

// WithSigner attaches the signed-nonce auth headers to every request.
func WithSigner(signer *Signer) ClientOption {
	return func(c *A2AClient) {
		c.signer = signer
	}
}

/*
New creates a new A2A client for the given base URL.
*/
func New(baseURL string, options ...ClientOption) *A2AClient {
	client := &A2AClient{
		baseURL: baseURL,
		conn:    fiberClient.New().SetBaseURL(baseURL),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

/*
Signer produces the three auth headers from an ed25519 private key: a fresh
nonce, its signature, and the base58 public key.
*/
type Signer struct {
	priv ed25519.PrivateKey
}

func NewSigner(priv ed25519.PrivateKey) *Signer {
	return &Signer{priv: priv}
}

func (s *Signer) Headers() map[string]string {
	nonce := uuid.NewString()
	sig := ed25519.Sign(s.priv, []byte(nonce))

	return map[string]string{
		auth.HeaderSignature: base64.StdEncoding.EncodeToString(sig),
		auth.HeaderNonce:     nonce,
		auth.HeaderPublicKey: base58.Encode(s.priv.Public().(ed25519.PublicKey)),
	}
}

func (client *A2AClient) headers() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	if client.signer != nil {
		for k, v := range client.signer.Headers() {
			headers[k] = v
		}
	}

	return headers
}

/*
doRequest sends one JSON-RPC request and decodes the result into out.
*/
func (client *A2AClient) doRequest(method string, params any, out any) error {
	buf, err := json.Marshal(params)
	if err != nil {
		log.Error("failed to marshal request params", "method", method, "error", err)
		return err
	}

	req := jsonrpc.RPCRequest{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`"` + uuid.NewString() + `"`),
		Method:  method,
		Params:  buf,
	}

	res, err := client.conn.Post("/", fiberClient.Config{
		Header: client.headers(),
		Body:   req,
	})

	if err != nil {
		return err
	}

	var rpcResp struct {
		Result json.RawMessage  `json:"result"`
		Error  *errors.RpcError `json:"error"`
	}

	if err := res.JSON(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if out != nil {
		return json.Unmarshal(rpcResp.Result, out)
	}

	return nil
}

/*
SendTask sends a task message and blocks until the run finishes.
*/
func (client *A2AClient) SendTask(params a2a.TaskSendParams) (*a2a.Task, error) {
	var task a2a.Task

	if err := client.doRequest("tasks/send", params, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

/*
GetTask fetches the current state of a task.
*/
func (client *A2AClient) GetTask(id string) (*a2a.Task, error) {
	var task a2a.Task

	if err := client.doRequest("tasks/get", a2a.TaskGetParams{ID: id}, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

/*
CancelTask requests cooperative cancellation and returns the post-cancel
task.
*/
func (client *A2AClient) CancelTask(id string) (*a2a.Task, error) {
	var task a2a.Task

	if err := client.doRequest("tasks/cancel", a2a.TaskCancelParams{ID: id}, &task); err != nil {
		return nil, err
	}

	return &task, nil
}
