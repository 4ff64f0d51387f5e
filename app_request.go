package nebula

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// HttpRequest is a request as delivered by the transport: the method, the raw request
// target, headers and an unread body stream. The engine decides whether the body is read
// at all (only POST requests to an allowed route consume it).
type HttpRequest struct {
	Method    HttpMethod
	Target    string
	Version   string
	Headers   map[string]string
	Body      io.Reader
	IpAddress string
}

// Header returns a header value using a case-insensitive key lookup.
func (req *HttpRequest) Header(key string) string {
	if v, ok := req.Headers[key]; ok {
		return v
	}
	for k, v := range req.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// ContentLength returns the parsed Content-Length header, or 0 when it is missing.
func (req *HttpRequest) ContentLength() (int, error) {
	header := req.Header("Content-Length")
	if header == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || n < 0 {
		return 0, errors.Errorf("invalid Content-Length %q", header)
	}
	return n, nil
}

// ParseRequest reads the request line and headers of an HTTP/1.1 request from a TCP
// connection. The body is left on the connection and exposed through HttpRequest.Body.
func ParseRequest(incoming net.Conn) (*HttpRequest, error) {
	incoming.SetReadDeadline(time.Now().Add(time.Second * 10))
	req, err := readRequest(bufio.NewReader(incoming))
	if err != nil {
		return nil, err
	}
	req.IpAddress = incoming.RemoteAddr().String()
	return req, nil
}

const (
	maxLineBytes   = 8 << 10
	maxHeaderLines = 100
)

// ErrRequestTooLarge is returned when the request line or a header line exceeds
// maxLineBytes, or the request carries more than maxHeaderLines headers.
var ErrRequestTooLarge = errors.New("request head too large")

// readLine reads one CRLF or LF terminated line without its terminator, failing once
// the line grows past maxLineBytes.
func readLine(reader *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := reader.ReadSlice('\n')
		if len(line)+len(chunk) > maxLineBytes {
			return nil, ErrRequestTooLarge
		}
		line = append(line, chunk...)
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			return nil, err
		}
		return bytes.TrimRight(line, "\r\n"), nil
	}
}

func readRequest(reader *bufio.Reader) (*HttpRequest, error) {
	line, err := readLine(reader)
	if err != nil {
		return nil, errors.Wrap(err, "reading request line")
	}
	if len(line) == 0 {
		return nil, errors.New("empty request line")
	}
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return nil, errors.Errorf("malformed request line: %q", string(line))
	}

	req := HttpRequest{
		Method:  HttpMethod(parts[0]),
		Target:  string(parts[1]),
		Version: string(parts[2]),
		Headers: make(map[string]string),
		Body:    reader,
	}

	for count := 0; ; count++ {
		line, err = readLine(reader)
		if err != nil {
			return nil, errors.Wrap(err, "reading header line")
		}
		if len(line) == 0 {
			break
		}
		if count == maxHeaderLines {
			return nil, errors.Wrapf(ErrRequestTooLarge, "more than %d headers", maxHeaderLines)
		}
		key, value, found := strings.Cut(string(line), ":")
		if !found {
			continue
		}
		req.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return &req, nil
}

// QueryParams maps each query parameter name to every value it was given, in order.
type QueryParams map[string][]string

// Get returns the first value for key, or "" if it is absent.
func (q QueryParams) Get(key string) string {
	if values := q[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// Has reports whether key appeared in the query string, with or without a value.
func (q QueryParams) Has(key string) bool {
	_, ok := q[key]
	return ok
}

// ParseTarget splits a request target into its path and query parameters.
// Repeated keys accumulate in order and a parameter without '=' gets an empty value:
//
//	"/search?q=hello&q=world&flag" → "/search", {q: [hello world], flag: [""]}
//
// Keys and values are percent-decoded ('+' is a space); a malformed escape keeps the
// raw text. The path is returned exactly as received.
func ParseTarget(target string) (string, QueryParams) {
	query := QueryParams{}
	if idx := strings.IndexByte(target, '#'); idx > -1 {
		target = target[:idx]
	}
	path, rawQuery, found := strings.Cut(target, "?")
	if !found {
		return path, query
	}
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key := unescapeQuery(rawKey)
		query[key] = append(query[key], unescapeQuery(rawValue))
	}
	return path, query
}

func unescapeQuery(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// RouteRequest is the per-request context handed to hooks and the route handler.
// One is built for each dispatched request and is owned by the goroutine serving it.
// State is zero-valued per request and is typically filled in by before-hooks.
type RouteRequest[RouteState any] struct {
	RequestId uuid.UUID
	Path      string
	Query     QueryParams
	Method    HttpMethod
	Headers   map[string]string
	Body      *RawBody
	IpAddress string
	Context   context.Context
	State     *RouteState
	received  time.Time
}

// ReceivedAt returns when the request context was built.
func (req *RouteRequest[RouteState]) ReceivedAt() time.Time {
	return req.received
}

// QueryString returns the first value of a query parameter.
// Returns nil if the parameter is missing, but a pointer to "" for a parameter without a value.
func (req *RouteRequest[RouteState]) QueryString(key string) *string {
	if !req.Query.Has(key) {
		return nil
	}
	val := req.Query.Get(key)
	return &val
}

// QueryAll returns every value given for a query parameter.
func (req *RouteRequest[RouteState]) QueryAll(key string) []string {
	return req.Query[key]
}

// QueryInt32 extracts a query parameter as a 32-bit signed integer.
// Returns nil if the parameter is missing or cannot be parsed as int32.
func (req *RouteRequest[RouteState]) QueryInt32(key string) *int32 {
	if !req.Query.Has(key) {
		return nil
	}
	num, err := strconv.ParseInt(req.Query.Get(key), 10, 32)
	if err != nil {
		return nil
	}
	v := int32(num)
	return &v
}

// QueryInt64 extracts a query parameter as a 64-bit signed integer.
// Returns nil if the parameter is missing or cannot be parsed as int64.
func (req *RouteRequest[RouteState]) QueryInt64(key string) *int64 {
	if !req.Query.Has(key) {
		return nil
	}
	num, err := strconv.ParseInt(req.Query.Get(key), 10, 64)
	if err != nil {
		return nil
	}
	return &num
}

// QueryUUID extracts and validates a query parameter as a UUID.
// Returns nil if the parameter is missing or not a valid UUID.
func (req *RouteRequest[RouteState]) QueryUUID(key string) *uuid.UUID {
	if !req.Query.Has(key) {
		return nil
	}
	g, err := uuid.Parse(req.Query.Get(key))
	if err != nil {
		return nil
	}
	return &g
}

// Header returns a request header using a case-insensitive key lookup.
func (req *RouteRequest[RouteState]) Header(key string) string {
	if v, ok := req.Headers[key]; ok {
		return v
	}
	for k, v := range req.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (req *RouteRequest[RouteState]) String() string {
	return fmt.Sprintf("%s %s [%s]", req.Method, req.Path, req.RequestId)
}
