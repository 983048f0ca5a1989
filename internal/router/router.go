// Package router maps the four application paths to page-level views.
//
// The table is flat and static: exact paths only, no parameters, guards,
// redirects or nesting.
package router

import (
	"fmt"
	"net/http"
)

// View names a page-level view.
type View string

const (
	ViewLedger     View = "ledger"
	ViewInput      View = "input"
	ViewCategories View = "categories"
	ViewQuery      View = "query"
)

// InitialPath is the path the application starts on.
const InitialPath = "/"

// Route associates one literal path with one view.
type Route struct {
	Path  string
	View  View
	Title string
}

// DefaultRoutes is the application route table.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/", View: ViewLedger, Title: "Ledger"},
		{Path: "/input", View: ViewInput, Title: "Add entry"},
		{Path: "/categories", View: ViewCategories, Title: "Categories"},
		{Path: "/query", View: ViewQuery, Title: "Reports"},
	}
}

// Router is a read-only lookup table built once.
type Router struct {
	routes []Route
	byPath map[string]View
	byView map[View]string
}

// New builds a Router. Every path must be unique, every view must be
// reachable from exactly one path, and InitialPath must be registered.
func New(routes []Route) (*Router, error) {
	r := &Router{
		routes: make([]Route, 0, len(routes)),
		byPath: make(map[string]View, len(routes)),
		byView: make(map[View]string, len(routes)),
	}
	for _, rt := range routes {
		if rt.Path == "" || rt.Path[0] != '/' {
			return nil, fmt.Errorf("route %q: path must start with '/'", rt.Path)
		}
		if rt.View == "" {
			return nil, fmt.Errorf("route %q: empty view", rt.Path)
		}
		if v, ok := r.byPath[rt.Path]; ok {
			return nil, fmt.Errorf("route %q registered twice (views %s and %s)", rt.Path, v, rt.View)
		}
		if p, ok := r.byView[rt.View]; ok {
			return nil, fmt.Errorf("view %s bound to both %q and %q", rt.View, p, rt.Path)
		}
		r.byPath[rt.Path] = rt.View
		r.byView[rt.View] = rt.Path
		r.routes = append(r.routes, rt)
	}
	if _, ok := r.byPath[InitialPath]; !ok {
		return nil, fmt.Errorf("no view registered for %q", InitialPath)
	}
	return r, nil
}

// Default returns the Router for DefaultRoutes.
func Default() *Router {
	r, err := New(DefaultRoutes())
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the view registered for path. Matching is exact.
func (r *Router) Resolve(path string) (View, bool) {
	v, ok := r.byPath[path]
	return v, ok
}

// PathOf returns the path a view is registered under.
func (r *Router) PathOf(v View) (string, bool) {
	p, ok := r.byView[v]
	return p, ok
}

// Initial returns the view shown for InitialPath.
func (r *Router) Initial() View {
	return r.byPath[InitialPath]
}

// Routes returns a copy of the table in registration order.
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Mount registers one exact-match pattern per route on mux. Every view
// must have a handler.
func (r *Router) Mount(mux *http.ServeMux, handlers map[View]http.Handler) error {
	for _, rt := range r.routes {
		h, ok := handlers[rt.View]
		if !ok || h == nil {
			return fmt.Errorf("no handler for view %s", rt.View)
		}
		mux.Handle(pattern(rt.Path), h)
	}
	return nil
}

// pattern turns a literal path into an exact-match ServeMux pattern.
func pattern(path string) string {
	if path == "/" {
		return "/{$}"
	}
	return path
}
