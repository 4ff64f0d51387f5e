package nebula

import "github.com/pkg/errors"

// HttpMethod represents the HTTP request method/verb used for routing and handler dispatch.
// Any method can arrive over the wire, but only the methods in AvailableMethods can be
// attached to a route.
type HttpMethod string

// HTTP method constants. Get and Post are the only routable methods; the others are
// recognized by the request parser so that a registered path answers them with 405.
const (
	Get     HttpMethod = "GET"
	Post    HttpMethod = "POST"
	Put     HttpMethod = "PUT"
	Patch   HttpMethod = "PATCH"
	Delete  HttpMethod = "DELETE"
	Head    HttpMethod = "HEAD"
	Options HttpMethod = "OPTIONS"
)

// AvailableMethods is the fixed set of methods a route may be registered for.
var AvailableMethods = []HttpMethod{Get, Post}

// ErrInvalidMethod is returned when a route is registered with a method outside AvailableMethods.
var ErrInvalidMethod = errors.New("invalid method")

func (m HttpMethod) String() string {
	return string(m)
}

// IsAvailable reports whether m can be used in a route registration.
func (m HttpMethod) IsAvailable() bool {
	for _, available := range AvailableMethods {
		if m == available {
			return true
		}
	}
	return false
}

// validateMethods checks every method before anything is stored, so a failed
// registration never leaves a partial route behind.
func validateMethods(methods []HttpMethod) error {
	for _, m := range methods {
		if !m.IsAvailable() {
			return errors.Wrapf(ErrInvalidMethod, "method '%s' not recognized", m)
		}
	}
	return nil
}
