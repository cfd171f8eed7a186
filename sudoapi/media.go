package sudoapi

import (
	"context"
	"io"
	"log/slog"

	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/datastore"
)

// Upload is an image received from a form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (up *Upload) validate() error {
	if up == nil || up.Body == nil || up.Size <= 0 {
		return Statusf(400, "No file uploaded")
	}
	if !datastore.IsImage(up.ContentType) {
		return Statusf(400, "File must be an image")
	}
	if up.Size > datastore.MaxUploadSize {
		return Statusf(400, "File is too large")
	}
	return nil
}

func (s *BaseAPI) upload(ctx context.Context, key string, up *Upload) (string, error) {
	if err := s.media.Upload(ctx, key, up.Body, up.Size, up.ContentType); err != nil {
		slog.WarnContext(ctx, "Couldn't upload file", slog.String("key", key), slog.Any("err", err))
		return "", WrapError(err, "Couldn't upload file")
	}
	return s.media.URL(key), nil
}

// UploadPostImage stores a featured post image and returns its URL.
func (s *BaseAPI) UploadPostImage(ctx context.Context, user *dardanova.User, up *Upload) (string, error) {
	if user == nil {
		return "", ErrUnauthenticated
	}
	if err := up.validate(); err != nil {
		return "", err
	}
	return s.upload(ctx, datastore.PostImageKey(s.now(), up.Filename), up)
}

// UploadProfileImage stores an avatar of user and returns its URL.
// The profile itself is not changed, see UpdateProfile.
func (s *BaseAPI) UploadProfileImage(ctx context.Context, user *dardanova.User, up *Upload) (string, error) {
	if user == nil {
		return "", ErrUnauthenticated
	}
	if err := up.validate(); err != nil {
		return "", err
	}
	return s.upload(ctx, datastore.ProfileImageKey(user.ID, s.now(), up.Filename), up)
}
