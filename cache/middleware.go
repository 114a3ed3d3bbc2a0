package cache

// Middleware decorates a Resolver, for example with tracing.
type Middleware func(Resolver) Resolver

// Chain wraps resolver with middlewares. The first middleware is outermost.
func Chain(resolver Resolver, middlewares ...Middleware) Resolver {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] == nil {
			continue
		}
		resolver = middlewares[i](resolver)
	}
	return resolver
}
