/*

Package router matches requests to handlers by pattern specificity.

The package leverages a standardized data model - a [Route] -
when registering how requests should be routed.
A path pattern and an HTTP method comprise a [Route].
A [web.Handler] is the function called when a request matches a Route.
Before a request gets to a handler, though,
any middlewares added to the Route are called in the order they appear.

A pattern is a /-delimited path whose segments match literally,
except for two dynamic forms:

	/users/:id      binds one non-empty segment to "id"
	/files/*path    binds the rest of the path to "path"

When several patterns match the same request, the most specific wins:
comparing segment by segment, static text beats a :param and a :param
beats a *wildcard. Registration order breaks exact ties.
Methods never widen a match - a GET route does not answer HEAD
unless a HEAD route is registered too.

It is often the case that many routes for a web server share identical middleware stacks,
which aid in directing, redirecting, or adding contextual information to a request.
Thus, a [Table] provides conveniences for registering many logically associated Routes
in a single call: [Table.HandleRoutes] for flat sets, [Table.Group] for routes
sharing a path prefix, and [Table.UseOn] for middleware covering a path prefix.

A [Table] is mutable while routes register and immutable after [Table.Freeze],
at which point [Table.Resolve] serves concurrent lookups without locks.

*/
package router
