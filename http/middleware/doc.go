/*
The middleware package defines what a middleware is in switchback and a set of basic middlewares.

The available middlewares are:
  - Authorize
  - CORS
  - ForceHTTPS
  - InjectIPAddress
  - LogRequest
  - RateLimit
  - RequestID
  - SecureHeaders

A middleware consumes the same *web.Context the terminal handler does.
Writing a response and calling Abort stops the rest of the chain,
so whatever the middleware wrote is what the client receives.

Due to the amount of configuration required, middleware does not provide a default middleware chain.
Instead, the following can be copy-pasted:

	vs := middleware.NewVisitors()
	mws := []middleware.Middleware{
		middleware.RateLimit(vs),
		middleware.ForceHTTPS(env),
		middleware.InjectIPAddress(),
		middleware.RequestID(),
		middleware.LogRequest(log),
		middleware.SecureHeaders(env),
	}
*/
package middleware
