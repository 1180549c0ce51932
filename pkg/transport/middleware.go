package transport

// Middleware decorates a Searcher.
type Middleware func(Searcher) Searcher

// Chain combines middlewares so that Chain(a, b)(s) == a(b(s)): the first
// one sees each search first.
func Chain(middlewares ...Middleware) Middleware {
	return func(s Searcher) Searcher {
		for i := len(middlewares) - 1; i >= 0; i-- {
			s = middlewares[i](s)
		}
		return s
	}
}
