// Package datastore holds the media storage backends used for post images and avatars.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// MaxUploadSize is the largest accepted image, in bytes.
const MaxUploadSize = 10 << 20

var ErrNotFound = errors.New("object not found")

// MediaStore uploads blobs and hands out durable URLs for them.
type MediaStore interface {
	// Upload stores size bytes of body under key.
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// URL returns the public URL of the object stored under key.
	URL(key string) string
}

// PostImageKey returns the object key of a featured post image uploaded at t.
func PostImageKey(t time.Time, filename string) string {
	return fmt.Sprintf("images/%d_%s", t.UnixMilli(), CleanFilename(filename))
}

// ProfileImageKey returns the object key of an avatar of user uid uploaded at t.
func ProfileImageKey(uid int, t time.Time, filename string) string {
	return fmt.Sprintf("profile-images/%d/%d-%s", uid, t.UnixMilli(), CleanFilename(filename))
}

// CleanFilename strips directories from name and slugifies it, keeping the extension.
func CleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := strings.ToLower(path.Ext(name))
	base := slug.Make(strings.TrimSuffix(name, path.Ext(name)))
	if base == "" {
		base = "file"
	}
	if ext != "" && slug.Make(ext[1:]) != ext[1:] {
		ext = ""
	}
	return base + ext
}

// IsImage reports whether contentType is an accepted image type.
func IsImage(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/png", "image/jpeg", "image/gif", "image/webp", "image/avif", "image/svg+xml":
		return true
	}
	return false
}
