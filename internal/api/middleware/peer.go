package middleware

import (
	"context"
	"net/http"
)

type peerKey struct{}

// PeerAddr records the socket address of the connection before any
// header-based rewrite of RemoteAddr. Mount it ahead of RealIP.
func PeerAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PeerFromContext returns the address recorded by PeerAddr, or "".
func PeerFromContext(ctx context.Context) string {
	addr, _ := ctx.Value(peerKey{}).(string)
	return addr
}
