package middleware

import (
	"net/http"
	"net/url"

	"github.com/xy-planning-network/switchback"
	"github.com/xy-planning-network/switchback/http/web"
)

// ForceHTTPS redirects HTTP requests to HTTPS if the environment is not "development".
//
// The "X-Forwarded-Proto" is used to check whether HTTP was requested due to a switchback server
// running behind a proxy.
//
// TODO(dlk): configurable headers to check.
func ForceHTTPS(env switchback.Environment) Middleware {
	return func(c *web.Context) {
		if c.Header("X-Forwarded-Proto") == "https" || env.IsDevelopment() {
			return
		}

		u := new(url.URL)
		*u = *c.Request().URL
		u.Scheme = "https"
		u.Host = c.Request().Host

		c.Response().
			Status(http.StatusPermanentRedirect).
			SetHeader("Location", u.String())
		c.Abort()
	}
}
