package avatar

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStorage writes avatars into Dir, which the server exposes under URLPrefix.
type LocalStorage struct {
	Dir       string
	URLPrefix string
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates dir if needed.
func NewLocalStorage(dir, urlPrefix string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create avatar dir: %w", err)
	}
	return &LocalStorage{Dir: dir, URLPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

func (s *LocalStorage) Save(_ context.Context, name string, data []byte) (string, error) {
	name = filepath.Base(name)
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write avatar: %w", err)
	}
	return path.Join(s.URLPrefix, name), nil
}

func (s *LocalStorage) Remove(_ context.Context, avatarURL string) error {
	if !strings.HasPrefix(avatarURL, s.URLPrefix+"/") {
		return nil
	}
	name := path.Base(avatarURL)
	err := os.Remove(filepath.Join(s.Dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove avatar: %w", err)
	}
	return nil
}
