package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Route labels for requests that matched no route
const (
	RouteNotFound         = "not_found"
	RouteMethodNotAllowed = "method_not_allowed"
)

// RouteMatcher names the route a request is served by
type RouteMatcher interface {
	Match(r *http.Request) string
}

// MuxRouteMatcher names requests after the mux route serving them, prefixed
// with the method since the favorites routes share one path for several verbs
type MuxRouteMatcher struct {
	Router *mux.Router
}

// Match returns "METHOD route" where route is the mux route name, or its path template when unnamed
func (m *MuxRouteMatcher) Match(r *http.Request) string {
	var routeMatch mux.RouteMatch
	matched := m.Router.Match(r, &routeMatch)

	switch {
	case routeMatch.MatchErr == mux.ErrMethodMismatch:
		return RouteMethodNotAllowed
	case !matched || routeMatch.Route == nil:
		// The Route is nil when the NotFoundHandler matched
		return RouteNotFound
	}

	name := routeMatch.Route.GetName()
	if name == "" {
		tmpl, err := routeMatch.Route.GetPathTemplate()
		if err != nil {
			return RouteNotFound
		}
		name = tmpl
	}

	return r.Method + " " + name
}
