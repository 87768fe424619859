package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"PaintVisualizer/pkg/utils"
)

// IStore writes short-lived files into a directory shared by concurrent
// requests. Names embed a ULID so writers never collide.
type IStore interface {
	Write(kind string, ext string, data []byte) (string, error)
	Remove(paths ...string) error
	Dir() string
}

type store struct {
	dir   string
	utils utils.IUtils
}

func New(dir string, u utils.IUtils) (IStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "paint-artifacts")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &store{dir: dir, utils: u}, nil
}

func (s *store) Dir() string {
	return s.dir
}

func (s *store) Write(kind string, ext string, data []byte) (string, error) {
	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-%s.%s", kind, strings.ToLower(id), strings.TrimPrefix(ext, "."))
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close artifact: %w", err)
	}

	return path, nil
}

// Remove deletes every path and joins the failures. Missing files are not errors.
func (s *store) Remove(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
