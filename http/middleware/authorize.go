package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/xy-planning-network/switchback"
	"github.com/xy-planning-network/switchback/http/web"
)

// Authorize validates the request's "Authorization: Bearer" token
// against the provided HMAC signing key,
// stashing the verified claims in the *web.Context under switchback.ClaimsKey.
//
// Requests missing a token or carrying an invalid one are refused with 401
// and the chain stops.
//
// If key is empty, Noop returns and this middleware does nothing.
func Authorize(key []byte) Middleware {
	if len(key) == 0 {
		return Noop
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))

	return func(c *web.Context) {
		header := c.Header("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			c.Response().Status(http.StatusUnauthorized)
			c.Abort()
			return
		}

		claims := jwt.MapClaims{}
		_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil {
			c.Response().Status(http.StatusUnauthorized)
			c.Abort()
			return
		}

		c.Set(switchback.ClaimsKey, claims)
	}
}
