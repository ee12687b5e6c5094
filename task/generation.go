package task

// Token is stamped on an asynchronous request. A result carrying a token that is no longer current is stale.
type Token uint64

// Generation is owned by the stack goroutine and is not safe for concurrent use.
type Generation struct {
	current Token
}

func (g *Generation) Next() Token {
	g.current++
	return g.current
}

func (g *Generation) Current() Token {
	return g.current
}

func (g *Generation) Valid(t Token) bool {
	return t == g.current
}
