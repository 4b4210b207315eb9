// Package routes declares HTTP routes as data and registers them on a ServeMux.
package routes

import "net/http"

// Route binds an HTTP method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group organizes routes under a common prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds all routes from the given groups to the mux and returns
// the registered patterns in registration order.
func Register(mux *http.ServeMux, groups ...Group) []string {
	var patterns []string
	for _, group := range groups {
		patterns = register(mux, "", group, patterns)
	}
	return patterns
}

func register(mux *http.ServeMux, parent string, group Group, patterns []string) []string {
	prefix := parent + group.Prefix
	for _, route := range group.Routes {
		pattern := route.Method + " " + prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
		patterns = append(patterns, pattern)
	}
	for _, child := range group.Children {
		patterns = register(mux, prefix, child, patterns)
	}
	return patterns
}
