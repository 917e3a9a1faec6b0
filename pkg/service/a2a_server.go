package service

// A2AServer bundles the JSON-RPC dispatcher, the SSE streamer and a
// TaskManager to expose a fully functional A2A server with minimal glue
// code.  Callers create the server with their handler and mount Handler()
// on an http.Server.

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/auth"
	"github.com/theapemachine/a2a-srv/pkg/metrics"
	"github.com/theapemachine/a2a-srv/pkg/stores"
)

// DefaultPort is the port the server binds when none is configured.
const DefaultPort = 41241

type A2AServer struct {
	Card    a2a.AgentCard
	Manager *TaskManager

	rpc         *RPCServer
	gate        *auth.Gate
	metrics     *metrics.Metrics
	allowOrigin string
}

type ServerOption func(*A2AServer)

// WithGate enables the request-authentication gate in front of the RPC
// endpoint.
func WithGate(gate *auth.Gate) ServerOption {
	return func(s *A2AServer) {
		s.gate = gate
	}
}

// WithServerMetrics exposes operational counters at /metrics.
func WithServerMetrics(m *metrics.Metrics) ServerOption {
	return func(s *A2AServer) {
		s.metrics = m
	}
}

// WithAllowOrigin overrides the permissive default CORS origin.
func WithAllowOrigin(origin string) ServerOption {
	return func(s *A2AServer) {
		s.allowOrigin = origin
	}
}

func NewA2AServer(card a2a.AgentCard, manager *TaskManager, options ...ServerOption) *A2AServer {
	srv := &A2AServer{
		Card:        card,
		Manager:     manager,
		allowOrigin: "*",
	}

	for _, option := range options {
		option(srv)
	}

	srv.rpc = NewRPCServer(manager, srv.metrics)
	return srv
}

// NewA2AServerWithDefaults returns a fully working server that echoes user
// input.  Great for smoke tests.
func NewA2AServerWithDefaults(url string) *A2AServer {
	card := a2a.AgentCard{
		Name:    "Echo Agent (Go)",
		URL:     url,
		Version: "0.1.0",
		Capabilities: a2a.AgentCapabilities{
			Streaming: true,
		},
		Skills: []a2a.AgentSkill{{ID: "echo", Name: "Echo"}},
	}

	manager := NewTaskManager(stores.NewInMemoryTaskStore(), EchoHandler)
	return NewA2AServer(card, manager)
}

// Handler returns the HTTP surface:
//
//	POST /                           – JSON-RPC 2.0 (SSE for sendSubscribe)
//	GET  /.well-known/agent.json     – static agent card
//	GET  /metrics                    – prometheus counters, when enabled
func (s *A2AServer) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/.well-known/agent.json", s.handleAgentCard).Methods(http.MethodGet)

	var rpcHandler http.Handler = s.rpc
	if s.gate != nil {
		rpcHandler = s.gate.Middleware(rpcHandler)
	}
	router.Handle("/", rpcHandler).Methods(http.MethodPost)

	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	return corsMiddleware(s.allowOrigin, router)
}

func (s *A2AServer) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(s.Card); err != nil {
		log.Error("failed to encode agent card", "error", err)
	}
}

func corsMiddleware(origin string, next http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+
			auth.HeaderSignature+", "+auth.HeaderNonce+", "+auth.HeaderPublicKey)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
