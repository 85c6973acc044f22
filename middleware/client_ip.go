package middleware

import (
	"net"
	"net/http"

	"github.com/MrEthical07/accountgate"
)

// ClientIP attaches the remote address to the request context. Forwarding
// headers are ignored; put a trusted proxy in front and rewrite RemoteAddr
// there if needed.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		next.ServeHTTP(w, r.WithContext(accountgate.WithClientIP(r.Context(), host)))
	})
}
