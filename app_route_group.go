package nebula

// RouteGroup is a set of routes mounted together under a common path prefix.
//
// Example:
//
//	api := nebula.NewRouteGroup(
//	    nebula.GetRoute("/health", healthCheck),
//	    nebula.PostRoute("/echo", echo),
//	)
//	app.AddRouteGroup("/api", api)
//	// Creates: /api/health, /api/echo
type RouteGroup[RouteState any] struct {
	Routes []GroupedRoute[RouteState]
}

// GroupedRoute is a single route definition inside a RouteGroup. Its path is relative
// to the prefix the group is mounted at.
type GroupedRoute[RouteState any] struct {
	Route   string
	Methods []HttpMethod
	Handler RouteHandlerFn[RouteState]
}

func NewRouteGroup[RouteState any](routes ...GroupedRoute[RouteState]) *RouteGroup[RouteState] {
	return &RouteGroup[RouteState]{
		Routes: routes,
	}
}

// GetRoute creates a GET-only route for a group.
func GetRoute[RouteState any](path string, handler RouteHandlerFn[RouteState]) GroupedRoute[RouteState] {
	return GroupedRoute[RouteState]{
		Route:   path,
		Methods: []HttpMethod{Get},
		Handler: handler,
	}
}

// PostRoute creates a POST-only route for a group.
func PostRoute[RouteState any](path string, handler RouteHandlerFn[RouteState]) GroupedRoute[RouteState] {
	return GroupedRoute[RouteState]{
		Route:   path,
		Methods: []HttpMethod{Post},
		Handler: handler,
	}
}

// MethodsRoute creates a group route accepting each of methods.
func MethodsRoute[RouteState any](path string, handler RouteHandlerFn[RouteState], methods ...HttpMethod) GroupedRoute[RouteState] {
	return GroupedRoute[RouteState]{
		Route:   path,
		Methods: methods,
		Handler: handler,
	}
}

// Add appends a route to the group.
func (rg *RouteGroup[RouteState]) Add(route GroupedRoute[RouteState]) *RouteGroup[RouteState] {
	rg.Routes = append(rg.Routes, route)
	return rg
}
