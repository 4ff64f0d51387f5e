package nebula

import (
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const DefaultStaticMount = "static"

// ErrStaticNotFound signals that a static request does not resolve to a servable file.
var ErrStaticNotFound = errors.New("static file not found")

var staticMimeTypes = map[string]string{
	".js":   "application/javascript",
	".css":  "text/css",
	".html": "text/html",
	".htm":  "text/html",
}

var staticCacheHeaders = map[string]string{
	"Cache-Control": "public, max-age=3600",
}

// StaticMount serves files from Root for paths whose first segment is Mount.
type StaticMount struct {
	Root  string
	Mount string
}

// NewStaticMount creates a mount for root. An empty mount name means DefaultStaticMount.
func NewStaticMount(root string, mount string) *StaticMount {
	mount = strings.Trim(mount, "/")
	if mount == "" {
		mount = DefaultStaticMount
	}
	return &StaticMount{Root: root, Mount: mount}
}

// StaticResolution is a resolved static file, ready to be turned into a response.
type StaticResolution struct {
	Body    []byte
	Mime    string
	Headers map[string]string
}

// Response builds the 200 response for the resolution.
func (s *StaticResolution) Response() *HttpResponse {
	return BytesResponse(s.Body, StatusOK, s.Headers)
}

// Matches reports whether path belongs to this mount.
func (s *StaticMount) Matches(path string) bool {
	return firstSegment(path) == s.Mount
}

// Resolve maps path to a file under Root. It returns ErrStaticNotFound when the path has
// no file segment, escapes Root, or does not name a regular file. Any other error is a
// read failure.
func (s *StaticMount) Resolve(path string) (*StaticResolution, error) {
	prefix := "/" + s.Mount + "/"
	if !strings.HasPrefix(path, prefix) || len(path) == len(prefix) {
		return nil, ErrStaticNotFound
	}
	rel, err := url.PathUnescape(path[len(prefix):])
	if err != nil {
		return nil, errors.Wrap(ErrStaticNotFound, err.Error())
	}

	target, err := s.contain(rel)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return nil, errors.Wrap(ErrStaticNotFound, rel)
		}
		return nil, errors.Wrapf(err, "stat %s", rel)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.Wrap(ErrStaticNotFound, rel)
	}
	content, err := os.ReadFile(target)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", rel)
	}

	mimeType := staticMimeType(rel)
	body := content
	if isTextMime(mimeType) {
		mimeType += "; charset=utf-8"
		body = []byte(decodeUTF8(content))
	}
	headers := map[string]string{"Content-Type": mimeType}
	for k, v := range staticCacheHeaders {
		headers[k] = v
	}
	return &StaticResolution{Body: body, Mime: mimeType, Headers: headers}, nil
}

// contain joins rel onto Root and verifies the result, with symlinks resolved, is still
// inside Root.
func (s *StaticMount) contain(rel string) (string, error) {
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", errors.Wrap(err, "resolving static root")
	}
	cleaned := filepath.Clean(string(filepath.Separator) + filepath.FromSlash(rel))
	target := filepath.Join(root, cleaned)
	if !within(root, target) {
		return "", errors.Wrap(ErrStaticNotFound, rel)
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", errors.Wrap(ErrStaticNotFound, "static root unavailable")
	}
	realTarget, err := filepath.EvalSymlinks(target)
	if err != nil {
		return "", errors.Wrap(ErrStaticNotFound, rel)
	}
	if !within(realRoot, realTarget) {
		return "", errors.Wrap(ErrStaticNotFound, rel)
	}
	return realTarget, nil
}

func within(root string, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func staticMimeType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if known, ok := staticMimeTypes[ext]; ok {
		return known
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return "application/octet-stream"
}

func isTextMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/") || mimeType == "application/javascript"
}
