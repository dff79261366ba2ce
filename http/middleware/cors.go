package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/xy-planning-network/switchback/http/web"
)

// A CORSConfig customizes the cross-origin headers CORS sets.
type CORSConfig struct {
	// AllowedOrigins lists the origins allowed to make cross-origin requests.
	// The single entry "*" allows any origin.
	AllowedOrigins []string

	// AllowedMethods lists the methods advertised on preflight responses.
	AllowedMethods []string

	// AllowedHeaders lists the request headers advertised on preflight responses.
	AllowedHeaders []string

	// AllowCredentials advertises that cookies and authorization headers may be included.
	AllowCredentials bool

	// MaxAge is how many seconds a preflight response may be cached for.
	MaxAge int
}

// CORS sets "Access-Control-Allow" style headers on a response,
// answering preflight OPTIONS requests with 204 and stopping the chain.
//
// The routes including this middleware must also register the http.MethodOptions method
// and not just the HTTP method they're designed for,
// otherwise preflight requests never reach the chain.
//
// If no origins are allowed, Noop returns and this middleware does nothing.
func CORS(cfg CORSConfig) Middleware {
	if len(cfg.AllowedOrigins) == 0 {
		return Noop
	}

	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{
			http.MethodDelete,
			http.MethodGet,
			http.MethodHead,
			http.MethodOptions,
			http.MethodPost,
			http.MethodPut,
		}
	}

	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{
			"Content-Type",
			"X-CSRF-Token",
		}
	}

	return func(c *web.Context) {
		origin := c.Header("Origin")
		if origin == "" {
			return
		}

		allowed := allowedOrigin(cfg.AllowedOrigins, origin)
		if allowed == "" {
			return
		}

		resp := c.Response()
		resp.SetHeader("Access-Control-Allow-Origin", allowed)
		resp.AddHeader("Vary", "Origin")
		if cfg.AllowCredentials {
			resp.SetHeader("Access-Control-Allow-Credentials", "true")
		}

		if c.Method() != http.MethodOptions {
			return
		}

		resp.SetHeader("Access-Control-Allow-Methods", strings.Join(methods, ", "))
		resp.SetHeader("Access-Control-Allow-Headers", strings.Join(headers, ", "))
		if cfg.MaxAge > 0 {
			resp.SetHeader("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		resp.Status(http.StatusNoContent)
		c.Abort()
	}
}

// allowedOrigin returns the Access-Control-Allow-Origin value for origin or the empty string.
func allowedOrigin(allowed []string, origin string) string {
	for _, o := range allowed {
		if o == "*" {
			return "*"
		}

		if strings.EqualFold(o, origin) {
			return origin
		}
	}

	return ""
}
