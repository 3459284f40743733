package mid

import (
	"context"
	"net/http"
	"slices"

	"github.com/ardanlabs/fundme/foundation/web"
)

// Cors lets browsers on the allowed origins call the node API. A "*" entry
// allows every origin. Requests from other origins get no CORS headers, so
// the browser blocks them.
func Cors(allowedOrigins []string) web.Middleware {
	allowAll := slices.Contains(allowedOrigins, "*")

	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			origin := r.Header.Get("Origin")

			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")

			case origin != "" && slices.Contains(allowedOrigins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")

			default:
				return handler(ctx, w, r)
			}

			// The wallet and the viewer only read and submit transactions.
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length")
			w.Header().Set("Access-Control-Max-Age", "86400")

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
