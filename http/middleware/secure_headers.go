package middleware

import (
	"github.com/xy-planning-network/switchback"
	"github.com/xy-planning-network/switchback/http/web"
)

// SecureHeaders sets a conservative set of browser security headers on every response.
//
// Strict-Transport-Security is withheld in development and testing
// so plain HTTP keeps working locally.
func SecureHeaders(env switchback.Environment) Middleware {
	return func(c *web.Context) {
		resp := c.Response()
		resp.SetHeader("X-Content-Type-Options", "nosniff")
		resp.SetHeader("X-Frame-Options", "DENY")
		resp.SetHeader("X-XSS-Protection", "1; mode=block")
		resp.SetHeader("Referrer-Policy", "no-referrer")
		if !env.IsDevelopment() && !env.IsTesting() {
			resp.SetHeader("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
	}
}
