package auth

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/theapemachine/a2a-srv/pkg/jsonrpc"
)

// Middleware wraps next and rejects requests the gate refuses with HTTP 403
// and a JSON-RPC error body.  A nil gate passes everything through.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	if g == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rpcErr := g.Verify(r); rpcErr != nil {
			log.Warn("request rejected by auth gate",
				"remote", r.RemoteAddr, "message", rpcErr.Message)
			g.metrics.ObserveAuthRejection()

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)

			if err := json.NewEncoder(w).Encode(jsonrpc.NewErrorResponse(nil, rpcErr)); err != nil {
				log.Error("failed to encode auth error response", "error", err)
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}
