package nebula

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// HttpResponse is the value produced by route handlers and error handlers alike.
// The engine never modifies a response it receives; transport-level headers such as
// Content-Length are added at write time.
type HttpResponse struct {
	StatusCode StatusCode
	Headers    map[string]string
	Body       []byte
}

// NewResponse creates a response with the given body, status code and headers.
func NewResponse(body string, code StatusCode, headers map[string]string) *HttpResponse {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return &HttpResponse{
		StatusCode: code,
		Headers:    h,
		Body:       []byte(body),
	}
}

// BytesResponse creates a response from raw bytes.
func BytesResponse(body []byte, code StatusCode, headers map[string]string) *HttpResponse {
	res := NewResponse("", code, headers)
	res.Body = body
	return res
}

// StringResponse creates a 200 OK plain text response.
func StringResponse(body string) *HttpResponse {
	return NewResponse(body, StatusOK, map[string]string{"Content-Type": "text/plain; charset=utf-8"})
}

// HtmlResponse creates an HTML response with the given status.
func HtmlResponse(body string, code StatusCode) *HttpResponse {
	return NewResponse(body, code, map[string]string{"Content-Type": "text/html; charset=utf-8"})
}

// JsonResponse creates a 200 OK JSON response from any serializable value.
func JsonResponse(body any) (*HttpResponse, error) {
	return Jsonify(body, StatusOK)
}

// Jsonify encodes value as JSON into a response with the given status and
// Content-Type: application/json.
func Jsonify(value any, status StatusCode) (*HttpResponse, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "encoding json response")
	}
	return BytesResponse(encoded, status, map[string]string{"Content-Type": "application/json"}), nil
}

// Header returns a response header using a case-insensitive key lookup.
func (res *HttpResponse) Header(key string) string {
	if v, ok := res.Headers[key]; ok {
		return v
	}
	for k, v := range res.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// Text returns the body as a string.
func (res *HttpResponse) Text() string {
	return string(res.Body)
}

// WithHeader returns a copy of the response with an additional header.
func (res *HttpResponse) WithHeader(key string, value string) *HttpResponse {
	copied := BytesResponse(res.Body, res.StatusCode, res.Headers)
	copied.Headers[key] = value
	return copied
}

// Write sends the response as HTTP/1.1 over stream, followed by the body.
// Content-Length and Connection are computed here and override any handler values.
func (res *HttpResponse) Write(stream io.Writer) error {
	var output strings.Builder
	output.WriteString("HTTP/1.1 ")
	output.WriteString(strconv.Itoa(int(res.StatusCode)))
	output.WriteString(" ")
	output.WriteString(res.StatusCode.Description())
	output.WriteString("\r\n")

	keys := make([]string, 0, len(res.Headers))
	for key := range res.Headers {
		if strings.EqualFold(key, "Content-Length") || strings.EqualFold(key, "Connection") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		output.WriteString(key)
		output.WriteString(": ")
		output.WriteString(res.Headers[key])
		output.WriteString("\r\n")
	}
	output.WriteString("Content-Length: ")
	output.WriteString(strconv.Itoa(len(res.Body)))
	output.WriteString("\r\nConnection: close\r\n\r\n")

	if _, err := io.WriteString(stream, output.String()); err != nil {
		return errors.Wrap(err, "writing response head")
	}
	if _, err := stream.Write(res.Body); err != nil {
		return errors.Wrap(err, "writing response body")
	}
	return nil
}
