package datastore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var _ MediaStore = &DiskStore{}

// DiskStore keeps media on the local filesystem. The web router serves RootPath under BaseURL.
type DiskStore struct {
	RootPath string
	BaseURL  string
}

func NewDiskStore(root, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &DiskStore{RootPath: root, BaseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (d *DiskStore) Upload(_ context.Context, key string, body io.Reader, size int64, _ string) error {
	p, err := d.filePath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	return writeFile(p, io.LimitReader(body, size), 0644)
}

func (d *DiskStore) Delete(_ context.Context, key string) error {
	p, err := d.filePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (d *DiskStore) URL(key string) string {
	return d.BaseURL + "/" + (&url.URL{Path: key}).EscapedPath()
}

// FS exposes the stored objects for serving.
func (d *DiskStore) FS() fs.FS {
	return os.DirFS(d.RootPath)
}

func (d *DiskStore) filePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || clean != "/"+key {
		return "", errors.New("invalid object key")
	}
	return filepath.Join(d.RootPath, filepath.FromSlash(clean)), nil
}

func writeFile(p string, r io.Reader, mode fs.FileMode) error {
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, r)
	if err1 := f.Close(); err1 != nil && err == nil {
		err = err1
	}
	return err
}
