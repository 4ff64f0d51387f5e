package nebula

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const DefaultTemplatesDir = "./templates"

// ErrTemplateNotFound is returned by LoadTemplate when the named file does not exist.
var ErrTemplateNotFound = errors.New("template not found")

// LoadTemplate reads <dir>/<name> and returns its contents.
func LoadTemplate(dir string, name string) (string, error) {
	cleaned := filepath.Clean(string(filepath.Separator) + filepath.FromSlash(name))
	content, err := os.ReadFile(filepath.Join(dir, cleaned))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrapf(ErrTemplateNotFound, "file '%s' not found in %s directory", name, dir)
		}
		return "", errors.Wrapf(err, "reading template %s", name)
	}
	return string(content), nil
}
