package middleware

import (
	"net/http"

	"github.com/MrEthical07/jwtcache"
)

// Optional lets requests without an Authorization header through
// unauthenticated. A header that is present must still carry a valid token.
func Optional(cache *jwtcache.Cache) func(http.Handler) http.Handler {
	return guard(cache, true)
}
