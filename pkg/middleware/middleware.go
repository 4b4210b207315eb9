// Package middleware provides the HTTP middleware used by scribe modules:
// request identification, request logging, and CORS.
package middleware

import "net/http"

// Middleware wraps an http.Handler.
type Middleware = func(http.Handler) http.Handler

// Stack is an ordered list of middleware. The first entry is the outermost.
type Stack struct {
	items []Middleware
}

// Use appends mw to the stack.
func (s *Stack) Use(mw Middleware) {
	s.items = append(s.items, mw)
}

// Len reports the number of middleware in the stack.
func (s *Stack) Len() int {
	return len(s.items)
}

// Apply wraps handler so that middleware run in the order they were added.
func (s *Stack) Apply(handler http.Handler) http.Handler {
	for i := len(s.items) - 1; i >= 0; i-- {
		handler = s.items[i](handler)
	}
	return handler
}
