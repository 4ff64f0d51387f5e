package nebula

import (
	"fmt"
	"log"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrInvalidStatusCode  = errors.New("invalid error handler status code")
	ErrApplicationStarted = errors.New("application already started")
	ErrNilResponse        = errors.New("handler returned no response")
	ErrBodyRead           = errors.New("could not read request body")
	ErrBodyTooLarge       = errors.New("request body too large")
)

// ErrorHandlerFn produces the response for an error status. It receives the request
// as delivered by the transport, since routing failures happen before any request
// context exists.
type ErrorHandlerFn func(*HttpRequest) *HttpResponse

const defaultNotFoundBody = `<!doctype html>
<html>
<head><title>404 Not Found</title></head>
<body>
    <h1>Not Found</h1>
    <p>The requested URL was not found on the server. If you entered the URL manually please check your spelling and try again.</p>
</body>
</html>
`

const defaultMethodNotAllowedBody = `<!doctype html>
<html>
<head><title>405 Method Not Allowed</title></head>
<body>
    <h1>Method Not Allowed</h1>
    <p>The requested HTTP method is not supported for this URL.</p>
</body>
</html>
`

const defaultInternalErrorBody = `<!doctype html>
<html>
<head><title>500 Internal Server Error</title></head>
<body>
    <h1>Internal Server Error</h1>
    <p>The server encountered an unexpected condition that prevented it from fulfilling the request.</p>
    <p>Please try again later.</p>
</body>
</html>
`

const defaultPayloadTooLargeBody = `<!doctype html>
<html>
<head><title>413 Payload Too Large</title></head>
<body>
    <h1>Payload Too Large</h1>
    <p>The request body exceeds the size this server accepts.</p>
</body>
</html>
`

func fixedBody(body string, code StatusCode) ErrorHandlerFn {
	return func(*HttpRequest) *HttpResponse {
		return NewResponse(body, code, nil)
	}
}

var defaultErrorHandlers = map[StatusCode]ErrorHandlerFn{
	StatusNotFound:            fixedBody(defaultNotFoundBody, StatusNotFound),
	StatusMethodNotAllowed:    fixedBody(defaultMethodNotAllowedBody, StatusMethodNotAllowed),
	StatusPayloadTooLarge:     fixedBody(defaultPayloadTooLargeBody, StatusPayloadTooLarge),
	StatusInternalServerError: fixedBody(defaultInternalErrorBody, StatusInternalServerError),
}

// ErrorHandlers maps status codes to the handlers that render them. Built-in defaults
// exist for 404, 405, 413 and 500; any code in 400-599 can be overridden, including while the
// application is serving.
type ErrorHandlers struct {
	mu        sync.RWMutex
	overrides map[StatusCode]ErrorHandlerFn
}

func NewErrorHandlers() *ErrorHandlers {
	return &ErrorHandlers{
		overrides: map[StatusCode]ErrorHandlerFn{},
	}
}

// Register installs fn for code, replacing any previous override.
func (e *ErrorHandlers) Register(code StatusCode, fn ErrorHandlerFn) error {
	if !code.IsError() {
		return errors.Wrapf(ErrInvalidStatusCode, "code %d outside 400-599", code)
	}
	if fn == nil {
		return errors.Errorf("nil error handler for code %d", code)
	}
	e.mu.Lock()
	e.overrides[code] = fn
	e.mu.Unlock()
	return nil
}

// Override returns the explicitly registered handler for code, ignoring defaults.
func (e *ErrorHandlers) Override(code StatusCode) (ErrorHandlerFn, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.overrides[code]
	return fn, ok
}

// Resolve returns the override for code if present, else the built-in default.
// Returns nil when neither exists.
func (e *ErrorHandlers) Resolve(code StatusCode) ErrorHandlerFn {
	if fn, ok := e.Override(code); ok {
		return fn
	}
	return defaultErrorHandlers[code]
}

// Respond renders code through the resolved handler. A handler that panics or returns
// nil is replaced by the built-in default for code, and failing that the built-in 500,
// so a response is always produced.
func (e *ErrorHandlers) Respond(code StatusCode, req *HttpRequest) *HttpResponse {
	if fn := e.Resolve(code); fn != nil {
		res, err := callErrorHandler(fn, req)
		if err == nil {
			return res
		}
		log.Printf("[ERROR]: error handler for %d failed: %v", code, err)
	}
	if fn, ok := defaultErrorHandlers[code]; ok {
		return fn(req)
	}
	return defaultErrorHandlers[StatusInternalServerError](req)
}

func callErrorHandler(fn ErrorHandlerFn, req *HttpRequest) (res *HttpResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	res = fn(req)
	if res == nil {
		return nil, ErrNilResponse
	}
	if !res.StatusCode.Valid() {
		return nil, errors.Errorf("invalid status code %d", res.StatusCode)
	}
	return res, nil
}
