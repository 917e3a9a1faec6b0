package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedRequest(t *testing.T) (*http.Request, ed25519.PrivateKey) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	nonce := uuid.NewString()
	sig := ed25519.Sign(priv, []byte(nonce))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(HeaderSignature, base64.StdEncoding.EncodeToString(sig))
	req.Header.Set(HeaderNonce, nonce)
	req.Header.Set(HeaderPublicKey, base58.Encode(pub))

	return req, priv
}

func TestGateAcceptsValidSignature(t *testing.T) {
	gate := NewGate()
	req, _ := signedRequest(t)

	assert.Nil(t, gate.Verify(req))
}

func TestGateRejectsMissingHeaders(t *testing.T) {
	gate := NewGate()

	base, _ := signedRequest(t)

	for _, header := range []string{HeaderSignature, HeaderNonce, HeaderPublicKey} {
		req := base.Clone(context.Background())
		req.Header.Del(header)

		rpcErr := gate.Verify(req)
		require.NotNil(t, rpcErr, "missing %s should be rejected", header)
		assert.Equal(t, -32099, rpcErr.Code)
	}
}

func TestGateRejectsTamperedNonce(t *testing.T) {
	gate := NewGate()
	req, _ := signedRequest(t)

	req.Header.Set(HeaderNonce, "somebody-else's-nonce")

	rpcErr := gate.Verify(req)
	require.NotNil(t, rpcErr)
	assert.Equal(t, -32099, rpcErr.Code)
}

func TestGateRejectsGarbageKey(t *testing.T) {
	gate := NewGate()
	req, _ := signedRequest(t)

	req.Header.Set(HeaderPublicKey, "not-base58-!!!")

	rpcErr := gate.Verify(req)
	require.NotNil(t, rpcErr)
	assert.Equal(t, -32099, rpcErr.Code)
}

type fakeLedger struct {
	active bool
	err    error
	user   string
	agent  string
}

func (l *fakeLedger) HasActiveSubscription(ctx context.Context, user, agent string) (bool, error) {
	l.user = user
	l.agent = agent
	return l.active, l.err
}

func TestGateConsultsLedger(t *testing.T) {
	ledger := &fakeLedger{active: true}
	gate := NewGate(WithLedger(ledger, "agent-key"))

	req, _ := signedRequest(t)

	assert.Nil(t, gate.Verify(req))
	assert.Equal(t, req.Header.Get(HeaderPublicKey), ledger.user)
	assert.Equal(t, "agent-key", ledger.agent)
}

func TestGateRejectsInactiveSubscription(t *testing.T) {
	gate := NewGate(WithLedger(&fakeLedger{active: false}, "agent-key"))

	req, _ := signedRequest(t)

	rpcErr := gate.Verify(req)
	require.NotNil(t, rpcErr)
	assert.Equal(t, -32099, rpcErr.Code)
}

func TestMiddlewareRespondsWith403(t *testing.T) {
	gate := NewGate()

	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp struct {
		Error *struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32099, resp.Error.Code)
}

func TestMiddlewarePassesValidRequests(t *testing.T) {
	gate := NewGate()

	called := false
	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req, _ := signedRequest(t)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}
