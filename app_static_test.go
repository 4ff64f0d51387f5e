package nebula

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticFixture(t *testing.T) (string, *StaticMount) {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "public")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.js"), []byte("console.log(1)"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "css", "site.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<p>hi</p>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.zzunknown"), []byte{0x00, 0xff}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "my file.txt"), []byte("spaced"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "secret.txt"), []byte("secret"), 0o644))
	return base, NewStaticMount(root, "static")
}

func TestStaticMountResolve(t *testing.T) {
	_, mount := staticFixture(t)
	tests := []struct {
		name     string
		path     string
		wantMime string
		wantBody string
	}{
		{
			name:     "javascript",
			path:     "/static/app.js",
			wantMime: "application/javascript; charset=utf-8",
			wantBody: "console.log(1)",
		},
		{
			name:     "nested css",
			path:     "/static/css/site.css",
			wantMime: "text/css; charset=utf-8",
			wantBody: "body{}",
		},
		{
			name:     "html",
			path:     "/static/index.html",
			wantMime: "text/html; charset=utf-8",
			wantBody: "<p>hi</p>",
		},
		{
			name:     "unknown extension",
			path:     "/static/blob.zzunknown",
			wantMime: "application/octet-stream",
			wantBody: string([]byte{0x00, 0xff}),
		},
		{
			name:     "escaped name",
			path:     "/static/my%20file.txt",
			wantMime: "text/plain; charset=utf-8",
			wantBody: "spaced",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := mount.Resolve(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMime, resolved.Mime)
			assert.Equal(t, tt.wantBody, string(resolved.Body))

			res := resolved.Response()
			assert.Equal(t, StatusOK, res.StatusCode)
			assert.Equal(t, tt.wantMime, res.Header("Content-Type"))
			assert.Equal(t, "public, max-age=3600", res.Header("Cache-Control"))
		})
	}
}

func TestStaticMountResolveSymlinkUsesRequestedName(t *testing.T) {
	base, mount := staticFixture(t)
	root := filepath.Join(base, "public")
	require.NoError(t, os.WriteFile(filepath.Join(root, "bundle"), []byte("let x = 1"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(root, "bundle"), filepath.Join(root, "latest.js")))

	resolved, err := mount.Resolve("/static/latest.js")
	require.NoError(t, err)
	assert.Equal(t, "application/javascript; charset=utf-8", resolved.Mime)
	assert.Equal(t, "let x = 1", string(resolved.Body))

	resolved, err = mount.Resolve("/static/bundle")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", resolved.Mime)
}

func TestStaticMountResolveNotFound(t *testing.T) {
	base, mount := staticFixture(t)
	require.NoError(t, os.Symlink(filepath.Join(base, "secret.txt"), filepath.Join(mount.Root, "link.txt")))

	for _, path := range []string{
		"/static/",
		"/static",
		"/static/missing.js",
		"/static/css",
		"/static/../secret.txt",
		"/static/..%2fsecret.txt",
		"/static/%2e%2e/secret.txt",
		"/static/css/../../secret.txt",
		"/static/link.txt",
		"/static/%zz",
		"/other/app.js",
	} {
		t.Run(path, func(t *testing.T) {
			_, err := mount.Resolve(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrStaticNotFound))
		})
	}
}

func TestStaticMountMatches(t *testing.T) {
	mount := NewStaticMount("/srv", "")
	assert.Equal(t, DefaultStaticMount, mount.Mount)
	assert.True(t, mount.Matches("/static/app.js"))
	assert.True(t, mount.Matches("/static/"))
	assert.False(t, mount.Matches("/staticfiles/app.js"))
	assert.False(t, mount.Matches("/"))

	assert.Equal(t, "assets", NewStaticMount("/srv", "/assets/").Mount)
}

func TestStaticMimeType(t *testing.T) {
	assert.Equal(t, "application/javascript", staticMimeType("a.JS"))
	assert.Equal(t, "text/html", staticMimeType("a.htm"))
	assert.Equal(t, "application/octet-stream", staticMimeType("noext"))
	assert.Equal(t, "image/png", staticMimeType("a.png"))
}
