package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/jwtcache"
	"github.com/MrEthical07/jwtcache/jwt"
)

type resultContextKey struct{}

// ResultFromContext returns the verification result stored by a guard.
func ResultFromContext(ctx context.Context) (*jwtcache.Result, bool) {
	res, ok := ctx.Value(resultContextKey{}).(*jwtcache.Result)
	return res, ok
}

// ClaimsFromContext returns the verified claims stored by a guard.
func ClaimsFromContext(ctx context.Context) (jwt.Payload, bool) {
	res, ok := ResultFromContext(ctx)
	if !ok || res == nil {
		return jwt.Payload{}, false
	}
	return res.Claims, true
}

// Guard rejects requests without a valid bearer token. Verification goes
// through cache; a client that disconnects stops the wait but not the
// verification.
func Guard(cache *jwtcache.Cache) func(http.Handler) http.Handler {
	return guard(cache, false)
}

func guard(cache *jwtcache.Cache, optional bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cache == nil {
				unauthorized(w)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" && optional {
				next.ServeHTTP(w, r)
				return
			}
			token, ok := bearerToken(header)
			if !ok {
				unauthorized(w)
				return
			}

			res, err := cache.VerifyAsync(token).Wait(r.Context())
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), resultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
