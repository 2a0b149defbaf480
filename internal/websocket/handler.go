package websocket

import (
	"context"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/practicum/internal/auth"
	"github.com/dukerupert/practicum/internal/authn"
	"github.com/dukerupert/practicum/internal/middleware"
)

// HandlePlay upgrades an authenticated request and serves play frames on it.
// The carrier that opened the connection is re-verified before every answer
// and on every ping; a session that no longer verifies as Continue closes
// the connection. A nil verifier skips the re-check.
func HandlePlay(hub *Hub, picker Picker, verifier middleware.Verifier, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		var check SessionCheck
		if verifier != nil {
			carrier := middleware.Carrier(r)
			check = func(ctx context.Context) bool {
				return verifier.Verify(ctx, carrier).Action == authn.Continue
			}
		}

		NewClient(hub, conn, picker, userID, check, logger).Run(r.Context())
		conn.Close(ws.StatusNormalClosure, "")
	}
}
