package nebula

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHttpResponseWrite(t *testing.T) {
	res := NewResponse("hello", StatusOK, map[string]string{
		"X-B":            "2",
		"Content-Type":   "text/plain",
		"content-length": "999",
		"X-A":            "1",
	})
	var out strings.Builder
	require.NoError(t, res.Write(&out))
	assert.Equal(t, "HTTP/1.1 200 OK\r\n"+
		"Content-Type: text/plain\r\n"+
		"X-A: 1\r\n"+
		"X-B: 2\r\n"+
		"Content-Length: 5\r\n"+
		"Connection: close\r\n"+
		"\r\nhello", out.String())
}

func TestHttpResponseWriteUnknownStatus(t *testing.T) {
	var out strings.Builder
	require.NoError(t, NewResponse("", 299, nil).Write(&out))
	assert.True(t, strings.HasPrefix(out.String(), "HTTP/1.1 299 Success\r\n"))
}

func TestJsonify(t *testing.T) {
	res, err := Jsonify(map[string]any{"ok": true}, StatusCreated)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, res.StatusCode)
	assert.Equal(t, "application/json", res.Header("content-type"))
	assert.JSONEq(t, `{"ok":true}`, res.Text())

	res, err = JsonResponse([]int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.StatusCode)
	assert.Equal(t, "[1,2]", res.Text())

	_, err = Jsonify(make(chan int), StatusOK)
	assert.Error(t, err)
}

func TestResponseHelpers(t *testing.T) {
	headers := map[string]string{"X-A": "1"}
	res := NewResponse("x", StatusCreated, headers)
	headers["X-A"] = "changed"
	assert.Equal(t, "1", res.Header("X-A"))

	copied := res.WithHeader("X-B", "2")
	assert.Equal(t, "2", copied.Header("X-B"))
	assert.Equal(t, "", res.Header("X-B"))

	html := HtmlResponse("<p>hi</p>", StatusNotFound)
	assert.Equal(t, StatusNotFound, html.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", html.Header("Content-Type"))
	assert.Equal(t, "text/plain; charset=utf-8", StringResponse("s").Header("Content-Type"))
}

func TestStatusCode(t *testing.T) {
	assert.True(t, StatusNotFound.IsError())
	assert.True(t, StatusCode(599).IsError())
	assert.False(t, StatusFound.IsError())
	assert.False(t, StatusCode(600).Valid())
	assert.False(t, StatusCode(99).Valid())
	assert.Equal(t, "Method Not Allowed", StatusMethodNotAllowed.Description())
	assert.Equal(t, "Client Error", StatusCode(499).Description())
}
