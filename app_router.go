package nebula

import (
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// RouteHandlerFn handles a request for a matched route. Returning an error (or
// panicking) sends the request down the 500 path.
type RouteHandlerFn[RouteState any] func(*RouteRequest[RouteState]) (*HttpResponse, error)

// Route associates an exact path with a handler and the methods it accepts.
type Route[RouteState any] struct {
	Path    string
	Methods []HttpMethod
	Handler RouteHandlerFn[RouteState]
}

// Allows reports whether method is in the route's method set.
func (r *Route[RouteState]) Allows(method HttpMethod) bool {
	for _, m := range r.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// RouteCollection is the routing table: exact path strings to routes. Paths are not
// normalized, so "/a" and "/a/" are different routes.
type RouteCollection[RouteState any] struct {
	routes map[string]*Route[RouteState]
}

func NewRouteCollection[RouteState any]() *RouteCollection[RouteState] {
	return &RouteCollection[RouteState]{
		routes: map[string]*Route[RouteState]{},
	}
}

// AddRoute registers handler for path. With no methods the route accepts GET.
// Every method must be in AvailableMethods or nothing is registered. A later
// registration for the same path replaces the earlier one.
func (self *RouteCollection[RouteState]) AddRoute(path string, handler RouteHandlerFn[RouteState], methods ...HttpMethod) error {
	if len(methods) == 0 {
		methods = []HttpMethod{Get}
	}
	if err := validateMethods(methods); err != nil {
		return err
	}
	self.routes[path] = &Route[RouteState]{
		Path:    path,
		Methods: append([]HttpMethod(nil), methods...),
		Handler: handler,
	}
	return nil
}

// FindPath returns the route registered for exactly path, or nil.
func (self *RouteCollection[RouteState]) FindPath(path string) *Route[RouteState] {
	return self.routes[path]
}

// Len returns the number of registered paths.
func (self *RouteCollection[RouteState]) Len() int {
	return len(self.routes)
}

// Paths returns the registered paths in sorted order.
func (self *RouteCollection[RouteState]) Paths() []string {
	paths := make([]string, 0, len(self.routes))
	for p := range self.routes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// PrintTree renders the routing table to w, one row per path.
func (self *RouteCollection[RouteState]) PrintTree(w io.Writer) {
	pathColor := color.New(color.FgCyan)
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Path", "Methods"})
	for _, p := range self.Paths() {
		route := self.routes[p]
		methods := make([]string, 0, len(route.Methods))
		for _, m := range route.Methods {
			methods = append(methods, m.String())
		}
		table.Append([]string{pathColor.Sprint(p), strings.Join(methods, ", ")})
	}
	table.Render()
}
