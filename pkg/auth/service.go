package auth

// The gate verifies that the caller controls an ed25519 keypair by checking
// a signature over a caller-chosen nonce, and can additionally consult an
// external subscription ledger before letting a request through to the
// dispatcher.  The ledger protocol and key custody are external; the gate
// talks to them through narrow interfaces only.

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"net/http"

	"github.com/mr-tron/base58"

	"github.com/theapemachine/a2a-srv/pkg/errors"
	"github.com/theapemachine/a2a-srv/pkg/metrics"
)

const (
	HeaderSignature = "X-Solana-Signature"
	HeaderNonce     = "X-Solana-Nonce"
	HeaderPublicKey = "X-Solana-PublicKey"
)

/*
SubscriptionLedger is a read-only view of an external subscription registry.
*/
type SubscriptionLedger interface {
	HasActiveSubscription(ctx context.Context, user string, agent string) (bool, error)
}

/*
Gate is the optional pre-dispatch request filter.  A zero Gate verifies
signatures only; wiring a ledger adds the subscription check.
*/
type Gate struct {
	ledger   SubscriptionLedger
	agentKey string
	metrics  *metrics.Metrics
}

type GateOption func(*Gate)

// WithGateMetrics counts rejected requests.
func WithGateMetrics(m *metrics.Metrics) GateOption {
	return func(g *Gate) {
		g.metrics = m
	}
}

// WithLedger makes the gate require an active subscription between the
// caller and the given agent identity.
func WithLedger(ledger SubscriptionLedger, agentKey string) GateOption {
	return func(g *Gate) {
		g.ledger = ledger
		g.agentKey = agentKey
	}
}

func NewGate(options ...GateOption) *Gate {
	gate := &Gate{}

	for _, option := range options {
		option(gate)
	}

	return gate
}

// Verify checks the three auth headers and, when a ledger is configured,
// the caller's subscription.  Any failure maps to the single AuthFailed
// error; callers are not told which check tripped.
func (g *Gate) Verify(r *http.Request) *errors.RpcError {
	sigB64 := r.Header.Get(HeaderSignature)
	nonce := r.Header.Get(HeaderNonce)
	pubB58 := r.Header.Get(HeaderPublicKey)

	if sigB64 == "" || nonce == "" || pubB58 == "" {
		return errors.ErrAuthFailed.WithMessagef("missing authentication headers")
	}

	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return errors.ErrAuthFailed.WithMessagef("signature is not valid base64")
	}

	pub, err := base58.Decode(pubB58)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return errors.ErrAuthFailed.WithMessagef("public key is not a valid ed25519 key")
	}

	if !ed25519.Verify(ed25519.PublicKey(pub), []byte(nonce), sig) {
		return errors.ErrAuthFailed.WithMessagef("signature verification failed")
	}

	if g.ledger != nil {
		active, err := g.ledger.HasActiveSubscription(r.Context(), pubB58, g.agentKey)
		if err != nil {
			return errors.ErrAuthFailed.WithMessagef("subscription check failed: %v", err)
		}
		if !active {
			return errors.ErrAuthFailed.WithMessagef("no active subscription")
		}
	}

	return nil
}
