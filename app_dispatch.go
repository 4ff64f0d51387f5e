package nebula

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ResponseWriter is the transport side of a dispatch: it commits one response.
type ResponseWriter interface {
	WriteResponse(*HttpResponse) error
}

type connWriter struct {
	conn net.Conn
}

func (w *connWriter) WriteResponse(res *HttpResponse) error {
	return res.Write(w.conn)
}

// ResponseRecorder captures the committed response in memory.
type ResponseRecorder struct {
	Response *HttpResponse
	Writes   int
}

func (r *ResponseRecorder) WriteResponse(res *HttpResponse) error {
	r.Response = res
	r.Writes++
	return nil
}

// Handle dispatches req and returns the response that was committed.
func (a *Application[RouteState]) Handle(req *HttpRequest) *HttpResponse {
	recorder := &ResponseRecorder{}
	a.Dispatch(req, recorder)
	return recorder.Response
}

// Dispatch turns one request into exactly one response written to w.
//
// The order is fixed: static mount, route lookup (404), method check (405), body read,
// before-hooks, handler, status substitution, write, after-hooks. Failures between the
// body read and the handler's return are converted to the 500 handler's response.
func (a *Application[RouteState]) Dispatch(req *HttpRequest, w ResponseWriter) {
	path, query := ParseTarget(req.Target)

	if a.Static != nil && req.Method == Get && a.Static.Matches(path) {
		a.send(w, a.serveStatic(req, path))
		return
	}

	route := a.Routes.FindPath(path)
	if route == nil {
		a.send(w, a.Errors.Respond(StatusNotFound, req))
		return
	}
	if !route.Allows(req.Method) {
		a.send(w, a.Errors.Respond(StatusMethodNotAllowed, req))
		return
	}

	ctx := a.Context
	if ctx == nil {
		ctx = context.Background()
	}
	var state RouteState
	rr := &RouteRequest[RouteState]{
		RequestId: uuid.New(),
		Path:      path,
		Query:     query,
		Method:    req.Method,
		Headers:   req.Headers,
		IpAddress: req.IpAddress,
		Context:   ctx,
		State:     &state,
		received:  time.Now(),
	}

	a.send(w, a.invoke(route, rr, req))
	a.runAfterHooks(rr)
}

// invoke runs the body read, before-hooks and handler inside a recover boundary.
func (a *Application[RouteState]) invoke(route *Route[RouteState], rr *RouteRequest[RouteState], req *HttpRequest) (res *HttpResponse) {
	defer func() {
		if r := recover(); r != nil {
			res = a.internalError(req, rr, fmt.Errorf("panic: %v", r))
		}
	}()

	if req.Method == Post {
		body, err := readBody(req, a.MaxBodyBytes)
		if errors.Is(err, ErrBodyTooLarge) {
			return a.Errors.Respond(StatusPayloadTooLarge, req)
		}
		if err != nil {
			return a.internalError(req, rr, err)
		}
		rr.Body = body
	}

	for _, hook := range a.before {
		if err := hook(rr); err != nil {
			return a.internalError(req, rr, errors.Wrap(err, "before-request hook"))
		}
	}

	res, err := route.Handler(rr)
	if err != nil {
		return a.internalError(req, rr, err)
	}
	if res == nil {
		return a.internalError(req, rr, ErrNilResponse)
	}
	if !res.StatusCode.Valid() {
		return a.internalError(req, rr, errors.Errorf("handler returned invalid status code %d", res.StatusCode))
	}

	// Only explicit overrides replace a handler's own error response.
	if res.StatusCode.IsError() {
		if _, ok := a.Errors.Override(res.StatusCode); ok {
			return a.Errors.Respond(res.StatusCode, req)
		}
	}
	return res
}

// readBody reads exactly Content-Length bytes. Lengths above max fail with
// ErrBodyTooLarge before anything is read; max <= 0 means DefaultMaxBodyBytes.
func readBody(req *HttpRequest, max int64) (*RawBody, error) {
	length, err := req.ContentLength()
	if err != nil {
		return nil, errors.Wrap(ErrBodyRead, err.Error())
	}
	if max <= 0 {
		max = DefaultMaxBodyBytes
	}
	if int64(length) > max {
		return nil, errors.Wrapf(ErrBodyTooLarge, "content length %d exceeds %d", length, max)
	}
	if length == 0 || req.Body == nil {
		return NewRawBody(nil), nil
	}
	body, err := io.ReadAll(io.LimitReader(req.Body, int64(length)))
	if err != nil {
		return nil, errors.Wrap(ErrBodyRead, err.Error())
	}
	if len(body) != length {
		return nil, errors.Wrapf(ErrBodyRead, "read %d of %d bytes", len(body), length)
	}
	return NewRawBody(body), nil
}

func (a *Application[RouteState]) internalError(req *HttpRequest, rr *RouteRequest[RouteState], cause error) *HttpResponse {
	if a.Debug {
		if rr != nil {
			log.Printf("[ERROR]: %s: %v", rr, cause)
		} else {
			log.Printf("[ERROR]: %s %s: %v", req.Method, req.Target, cause)
		}
	}
	return a.Errors.Respond(StatusInternalServerError, req)
}

func (a *Application[RouteState]) serveStatic(req *HttpRequest, path string) (res *HttpResponse) {
	defer func() {
		if r := recover(); r != nil {
			res = a.internalError(req, nil, fmt.Errorf("panic: %v", r))
		}
	}()
	resolved, err := a.Static.Resolve(path)
	if err != nil {
		if errors.Is(err, ErrStaticNotFound) {
			return a.Errors.Respond(StatusNotFound, req)
		}
		return a.internalError(req, nil, err)
	}
	return resolved.Response()
}

func (a *Application[RouteState]) send(w ResponseWriter, res *HttpResponse) {
	if err := w.WriteResponse(res); err != nil && a.LogRequestsLevel > 0 {
		log.Printf("[ERROR]: writing response: %v", err)
	}
}

// runAfterHooks runs after the response is committed; failures are logged and never
// affect what was sent.
func (a *Application[RouteState]) runAfterHooks(rr *RouteRequest[RouteState]) {
	for i, hook := range a.after {
		if err := callHook(hook, rr); err != nil {
			log.Printf("[HOOK]: after-request hook #%d failed for %s: %v", i, rr, err)
		}
	}
}

func callHook[RouteState any](hook HookFn[RouteState], rr *RouteRequest[RouteState]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return hook(rr)
}
