package middleware

import (
	"net/http"

	"github.com/MrEthical07/jwtcache/jwt"
)

// RequireClaims must run behind Guard. It answers 403 when check rejects the
// verified claims.
func RequireClaims(check func(jwt.Payload) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				unauthorized(w)
				return
			}
			if check != nil {
				if err := check(claims); err != nil {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
