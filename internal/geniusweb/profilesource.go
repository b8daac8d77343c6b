package geniusweb

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// ProfileURI - file: URI для пути к профилю
func ProfileURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// LoadProfile читает профиль по URI из Settings; поддерживается только схема file
func LoadProfile(uri string) (UtilitySpace, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse profile uri: %w", err)
	}
	if u.Scheme != "file" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	data, err := os.ReadFile(filepath.FromSlash(path))
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data)
}
