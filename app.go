// Package nebula is a small HTTP application server core. It matches requests against
// an exact-path routing table, runs before/after hooks around the matched handler, and
// renders routing failures, method mismatches and handler failures through a
// status-code keyed error handler registry. Files under a configured directory can be
// served from a static mount with MIME inference and cache headers.
//
// Example usage:
//
//	type AppState struct {
//	    UserID int64
//	}
//
//	app := nebula.NewApplication[AppState]("8080")
//	app.Route("/greet", greet)
//	app.Route("/submit", submit, nebula.Post)
//	app.ServeStatic("./statics", "static")
//	app.Start()
package nebula

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// HookFn runs before or after a route handler with the request context.
// A before-hook error aborts the request with a 500; after-hook errors are only logged.
type HookFn[RouteState any] func(*RouteRequest[RouteState]) error

// Application is one server instance. It owns the routing table, the error handler
// registry and the hook chains for its whole lifetime.
//
// Routes, hooks and the static mount must be configured before Start; once the
// application is serving they are read concurrently by every worker and further
// registration returns ErrApplicationStarted. Error handlers may be replaced at any time.
type Application[RouteState any] struct {
	Host             string
	Port             string
	Routes           *RouteCollection[RouteState]
	Errors           *ErrorHandlers
	Static           *StaticMount
	TemplatesDir     string
	Debug            bool
	SilentMode       bool
	Context          context.Context
	WorkerCount      int32
	LogRequestsLevel int
	MaxBodyBytes     int64

	before  []HookFn[RouteState]
	after   []HookFn[RouteState]
	started atomic.Bool
}

// NewInlineApplication creates an Application whose lifetime is bound to ctx.
func NewInlineApplication[RouteState any](port string, ctx context.Context) *Application[RouteState] {
	return &Application[RouteState]{
		Port:             port,
		Routes:           NewRouteCollection[RouteState](),
		Errors:           NewErrorHandlers(),
		TemplatesDir:     DefaultTemplatesDir,
		SilentMode:       false,
		WorkerCount:      10,
		Context:          ctx,
		LogRequestsLevel: 0,
		MaxBodyBytes:     DefaultMaxBodyBytes,
	}
}

// NewApplication creates an Application that shuts down on SIGINT.
func NewApplication[RouteState any](port string) *Application[RouteState] {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt)
	return NewInlineApplication[RouteState](port, ctx)
}

// NewApplicationFromConfig creates an Application from cfg, mounting the static
// directory when one is configured.
func NewApplicationFromConfig[RouteState any](cfg Config, ctx context.Context) (*Application[RouteState], error) {
	app := NewInlineApplication[RouteState](cfg.Port, ctx)
	app.Host = cfg.Host
	app.Debug = cfg.Debug
	app.SilentMode = cfg.SilentMode
	app.LogRequestsLevel = cfg.LogRequestsLevel
	if cfg.WorkerCount > 0 {
		app.WorkerCount = cfg.WorkerCount
	}
	if cfg.MaxBodyBytes > 0 {
		app.MaxBodyBytes = cfg.MaxBodyBytes
	}
	if cfg.TemplatesDir != "" {
		app.TemplatesDir = cfg.TemplatesDir
	}
	if cfg.StaticDir != "" {
		if err := app.ServeStatic(cfg.StaticDir, cfg.StaticMount); err != nil {
			return nil, err
		}
	}
	return app, nil
}

func (a *Application[RouteState]) checkNotStarted() error {
	if a.started.Load() {
		return ErrApplicationStarted
	}
	return nil
}

// Route registers handler for the exact path. With no methods the route accepts GET.
// Fails with ErrInvalidMethod if any method is not routable.
func (a *Application[RouteState]) Route(path string, handler RouteHandlerFn[RouteState], methods ...HttpMethod) error {
	if err := a.checkNotStarted(); err != nil {
		return err
	}
	return a.Routes.AddRoute(path, handler, methods...)
}

// AddRouteGroup registers every route of rg under prefix. Routes are validated before
// any of them is added.
func (a *Application[RouteState]) AddRouteGroup(prefix string, rg *RouteGroup[RouteState]) error {
	if err := a.checkNotStarted(); err != nil {
		return err
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	for i := range rg.Routes {
		if err := validateMethods(rg.Routes[i].Methods); err != nil {
			return errors.Wrapf(err, "route %s", rg.Routes[i].Route)
		}
	}
	for i := range rg.Routes {
		route := strings.TrimPrefix(rg.Routes[i].Route, "/")
		if err := a.Routes.AddRoute(prefix+route, rg.Routes[i].Handler, rg.Routes[i].Methods...); err != nil {
			return err
		}
	}
	return nil
}

// BeforeRequest appends a hook run, in registration order, before the route handler.
func (a *Application[RouteState]) BeforeRequest(fn HookFn[RouteState]) error {
	if err := a.checkNotStarted(); err != nil {
		return err
	}
	a.before = append(a.before, fn)
	return nil
}

// AfterRequest appends a hook run, in registration order, after the response is sent.
func (a *Application[RouteState]) AfterRequest(fn HookFn[RouteState]) error {
	if err := a.checkNotStarted(); err != nil {
		return err
	}
	a.after = append(a.after, fn)
	return nil
}

// SetErrorHandler overrides the handler for code, which must be in 400-599.
func (a *Application[RouteState]) SetErrorHandler(code StatusCode, fn ErrorHandlerFn) error {
	return a.Errors.Register(code, fn)
}

// ServeStatic serves files from root under /<mount>/. An empty mount means "static".
func (a *Application[RouteState]) ServeStatic(root string, mount string) error {
	if err := a.checkNotStarted(); err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return errors.Wrapf(err, "static root %s", root)
	}
	if !info.IsDir() {
		return errors.Errorf("static root %s is not a directory", root)
	}
	a.Static = NewStaticMount(root, mount)
	return nil
}

// LoadTemplate reads a template file from the application's templates directory.
// Fails with ErrTemplateNotFound if the file does not exist.
func (a *Application[RouteState]) LoadTemplate(name string) (string, error) {
	return LoadTemplate(a.TemplatesDir, name)
}

// TemplateResponse loads a template and returns it as an HTML response with code.
func (a *Application[RouteState]) TemplateResponse(name string, code StatusCode) (*HttpResponse, error) {
	content, err := a.LoadTemplate(name)
	if err != nil {
		return nil, err
	}
	return HtmlResponse(content, code), nil
}

// Address returns the host:port the listener binds to. An empty Host binds every
// interface.
func (a *Application[RouteState]) Address() string {
	return net.JoinHostPort(a.Host, a.Port)
}

// Start listens on Host:Port and serves until the application context is cancelled.
func (a *Application[RouteState]) Start() error {
	listener, err := net.Listen("tcp", a.Address())
	if err != nil {
		return errors.Wrap(err, "starting listener")
	}
	return a.Serve(listener)
}

// Serve accepts connections from listener and dispatches them on a pool of WorkerCount
// goroutines. It returns once the application context is cancelled and in-flight
// requests have completed.
func (a *Application[RouteState]) Serve(listener net.Listener) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrApplicationStarted
	}
	if a.Context == nil {
		a.Context = context.Background()
	}
	if !a.SilentMode {
		color.New(color.FgGreen, color.Bold).Printf("Server is up! - http://%s\n", listener.Addr().String())
		fmt.Printf("\nRegistered routes:\n")
		a.Routes.PrintTree(os.Stdout)
		if a.Static != nil {
			fmt.Printf(" /%s/* -> %s\n", a.Static.Mount, a.Static.Root)
		}
	}

	workers := a.WorkerCount
	if workers < 1 {
		workers = 1
	}
	var wg sync.WaitGroup
	queue := make(chan net.Conn, workers*10)
	for i := int32(0); i < workers; i++ {
		wg.Add(1)
		go func(id int32) {
			defer wg.Done()
			a.handleConnections(queue, id)
		}(i)
	}

	accepting := make(chan struct{})
	go func() {
		defer close(accepting)
		var delay time.Duration
		for {
			conn, err := listener.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				delay = nextAcceptDelay(delay)
				log.Printf("[ERROR]: accept: %v; retrying in %v", err, delay)
				select {
				case <-time.After(delay):
				case <-a.Context.Done():
					return
				}
				continue
			}
			delay = 0
			if a.LogRequestsLevel > 1 {
				log.Printf("{receiver} Dispatching connection from %s\n", conn.RemoteAddr().String())
			}
			select {
			case queue <- conn:
			case <-a.Context.Done():
				rejectConn(conn)
				return
			}
		}
	}()

	<-a.Context.Done()
	log.Println("Stopping Nebula server...")
	listener.Close()
	<-accepting
	wg.Wait()
	close(queue)
	for conn := range queue {
		rejectConn(conn)
	}
	return nil
}

// nextAcceptDelay doubles the wait after a failed Accept, from 5ms up to 1s.
func nextAcceptDelay(prev time.Duration) time.Duration {
	if prev == 0 {
		return 5 * time.Millisecond
	}
	if next := prev * 2; next < time.Second {
		return next
	}
	return time.Second
}

// rejectConn answers a connection that was accepted but will never be dispatched.
func rejectConn(conn net.Conn) {
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	NewResponse("", StatusServiceUnavailable, nil).Write(conn)
	conn.Close()
}

func handlerLog(id int32, connId int64, ip net.Addr, msg string) {
	log.Printf("{%d/%d} (%s): %s\n", id, connId, ip.String(), msg)
}

// handleConnections is a worker loop: each connection carries one request and is
// closed once the request has been dispatched.
func (a *Application[RouteState]) handleConnections(queue <-chan net.Conn, id int32) {
	var connId int64 = 0
	if a.LogRequestsLevel > 1 {
		log.Printf("Worker #%d online, ready for requests.", id)
	}
	for {
		select {
		case <-a.Context.Done():
			if a.LogRequestsLevel > 1 {
				log.Printf("Worker #%d shutdown.", id)
			}
			return
		case conn := <-queue:
			connId++
			request, err := ParseRequest(conn)
			if err != nil {
				if a.LogRequestsLevel > 0 {
					handlerLog(id, connId, conn.RemoteAddr(), "Could not parse request: "+err.Error())
				}
				NewResponse("", StatusBadRequest, nil).Write(conn)
				conn.Close()
				continue
			}
			if a.LogRequestsLevel > 0 {
				handlerLog(id, connId, conn.RemoteAddr(), fmt.Sprintf("%s: '%s'", request.Method, request.Target))
			}
			a.Dispatch(request, &connWriter{conn: conn})
			conn.Close()
		}
	}
}
