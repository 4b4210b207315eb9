// Package module mounts self-contained HTTP modules under single-level path prefixes.
package module

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/scribe/pkg/middleware"
)

// Module serves an inner handler beneath a prefix with its own middleware stack.
// The prefix is stripped before the inner handler sees the request.
type Module struct {
	prefix     string
	handler    http.Handler
	middleware middleware.Stack
}

// New creates a Module for a single-level prefix such as "/api".
func New(prefix string, handler http.Handler) (*Module, error) {
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}
	return &Module{prefix: prefix, handler: handler}, nil
}

// Prefix returns the module's path prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Use appends middleware to the module's stack.
func (m *Module) Use(mw middleware.Middleware) {
	m.middleware.Use(mw)
}

// Handler returns the prefix-stripped handler wrapped in the module middleware.
func (m *Module) Handler() http.Handler {
	return m.middleware.Apply(http.StripPrefix(m.prefix, m.handler))
}

// Router dispatches to mounted modules by prefix and falls back to
// natively registered handlers.
type Router struct {
	mux *http.ServeMux
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{mux: http.NewServeMux()}
}

// Mount routes every request under the module prefix to the module.
func (r *Router) Mount(m *Module) {
	r.mux.Handle(m.prefix+"/", m.Handler())
}

// HandleNative registers a handler outside any module.
func (r *Router) HandleNative(pattern string, handler http.HandlerFunc) {
	r.mux.HandleFunc(pattern, handler)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func validatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("module prefix cannot be empty")
	}
	if !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	}
	if strings.Count(prefix, "/") != 1 {
		return fmt.Errorf("module prefix must be single-level sub-path: %s", prefix)
	}
	return nil
}
