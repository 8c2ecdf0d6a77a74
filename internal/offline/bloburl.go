package offline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileBlobURLProvider materializes blobs as temp files under a fixed
// directory and hands out file:// URLs. Revoke deletes the backing file;
// nothing is reclaimed automatically.
type FileBlobURLProvider struct {
	dir string
}

var _ BlobURLProvider = (*FileBlobURLProvider)(nil)

// NewFileBlobURLProvider creates the provider, ensuring dir exists.
func NewFileBlobURLProvider(dir string) (*FileBlobURLProvider, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating viewable blob directory: %w", err)
	}
	return &FileBlobURLProvider{dir: dir}, nil
}

func (p *FileBlobURLProvider) ViewableURL(name string, data []byte) (string, error) {
	f, err := os.CreateTemp(p.dir, "view-*-"+sanitizeName(name))
	if err != nil {
		return "", fmt.Errorf("creating viewable blob file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing viewable blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing viewable blob: %w", err)
	}
	return "file://" + f.Name(), nil
}

// Revoke deletes the backing file. Revoking an already-revoked URL is a
// no-op.
func (p *FileBlobURLProvider) Revoke(url string) error {
	path := strings.TrimPrefix(url, "file://")
	if filepath.Dir(path) != filepath.Clean(p.dir) {
		return fmt.Errorf("url does not belong to this provider: %s", url)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("revoking viewable blob: %w", err)
	}
	return nil
}

// sanitizeName keeps the suffix filesystem-safe.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
