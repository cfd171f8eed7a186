package sudoapi

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dardanova/dardanova"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "admin@dardanova.com", "hunter22")

	_, _, err := env.base.SignIn(ctx, "nobody@dardanova.com", "hunter22")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, _, err = env.base.SignIn(ctx, "admin@dardanova.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, token, err := env.base.SignIn(ctx, "  ADMIN@dardanova.com ", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "admin@dardanova.com", user.Email)

	sessUser, err := env.base.SessionUser(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, sessUser)
	assert.Equal(t, user.ID, sessUser.ID)
}

func TestSessionUserRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.addUser(t, "admin@dardanova.com", "hunter22")

	token, err := env.base.CreateSession(ctx, user.ID)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"empty":    "",
		"garbage":  "not-a-token",
		"tampered": token[:len(token)-2] + "xx",
		"raw uid":  "1",
	} {
		u, err := env.base.SessionUser(ctx, tok)
		assert.NoError(t, err, name)
		assert.Nil(t, u, name)
	}

	other, err := GetBaseAPI(env.store, env.media, env.mailer, []byte("another-secret"))
	require.NoError(t, err)
	u, err := other.SessionUser(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, u, "token signed with a different secret")
}

func TestSessionExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.addUser(t, "admin@dardanova.com", "hunter22")

	token, err := env.base.CreateSession(ctx, user.ID)
	require.NoError(t, err)

	env.clock.Advance(SessionDuration + time.Minute)
	u, err := env.base.SessionUser(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, u)

	removed, err := env.store.RemoveExpiredSessions(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

func TestSignOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "admin@dardanova.com", "hunter22")

	_, token, err := env.base.SignIn(ctx, "admin@dardanova.com", "hunter22")
	require.NoError(t, err)
	u, err := env.base.SessionUser(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, u)

	require.NoError(t, env.base.SignOut(ctx, token))
	u, err = env.base.SessionUser(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, u)

	assert.NoError(t, env.base.SignOut(ctx, "garbage"))
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.addUser(t, "admin@dardanova.com", "hunter22")
	token, err := env.base.CreateSession(ctx, user.ID)
	require.NoError(t, err)

	name := "Dardan"
	assert.ErrorIs(t, env.base.UpdateProfile(ctx, nil, dardanova.UserUpdate{DisplayName: &name}), ErrUnauthenticated)
	assert.ErrorIs(t, env.base.UpdateProfile(ctx, user, dardanova.UserUpdate{}), ErrNoUpdates)

	short := " D "
	assert.Equal(t, 400, dardanova.ErrorCode(env.base.UpdateProfile(ctx, user, dardanova.UserUpdate{DisplayName: &short})))

	// warm the cache with the old profile
	u, err := env.base.SessionUser(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "Admin", u.DisplayName)

	photo := "/media/profile-images/1/1-me.png"
	require.NoError(t, env.base.UpdateProfile(ctx, user, dardanova.UserUpdate{DisplayName: &name, PhotoURL: &photo}))
	assert.Equal(t, "Dardan", user.DisplayName)
	assert.Equal(t, photo, user.PhotoURL)

	u, err = env.base.SessionUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "Dardan", u.DisplayName)
	assert.Equal(t, photo, u.PhotoURL)
}

func TestUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.addUser(t, "admin@dardanova.com", "hunter22")

	assert.ErrorIs(t, env.base.UpdatePassword(ctx, nil, "hunter22", "newpass1"), ErrUnauthenticated)
	assert.ErrorIs(t, env.base.UpdatePassword(ctx, user, "wrong", "newpass1"), ErrReauthFailed)
	assert.Equal(t, 400, dardanova.ErrorCode(env.base.UpdatePassword(ctx, user, "hunter22", "123")))

	require.NoError(t, env.base.UpdatePassword(ctx, user, "hunter22", "newpass1"))

	_, _, err := env.base.SignIn(ctx, "admin@dardanova.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = env.base.SignIn(ctx, "admin@dardanova.com", "newpass1")
	assert.NoError(t, err)
}

func TestCreateUserValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "admin@dardanova.com", "hunter22")

	_, err := env.base.CreateUser(ctx, "not-an-email", "x", "hunter22")
	assert.Equal(t, 400, dardanova.ErrorCode(err))
	_, err = env.base.CreateUser(ctx, "new@dardanova.com", "x", "123")
	assert.Equal(t, 400, dardanova.ErrorCode(err))
	_, err = env.base.CreateUser(ctx, "Admin@Dardanova.com", "x", "hunter22")
	assert.Equal(t, 400, dardanova.ErrorCode(err))
}

func TestUploadProfileImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.addUser(t, "admin@dardanova.com", "hunter22")

	up := func(name, ct string) *Upload {
		return &Upload{Filename: name, ContentType: ct, Size: 3, Body: bytes.NewReader([]byte("img"))}
	}

	_, err := env.base.UploadProfileImage(ctx, nil, up("me.png", "image/png"))
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = env.base.UploadProfileImage(ctx, user, up("me.html", "text/html"))
	assert.Equal(t, 400, dardanova.ErrorCode(err))

	big := up("big.png", "image/png")
	big.Size = 11 << 20
	_, err = env.base.UploadProfileImage(ctx, user, big)
	assert.Equal(t, 400, dardanova.ErrorCode(err))

	url, err := env.base.UploadProfileImage(ctx, user, up("Me.PNG", "image/png"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/media/profile-images/"+"1/"), url)
	assert.True(t, strings.HasSuffix(url, "-me.png"), url)

	key := strings.TrimPrefix(url, "/media/")
	data, err := os.ReadFile(filepath.Join(env.media.RootPath, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))

	// uploading does not touch the profile
	stored, err := env.store.User(ctx, dardanova.UserFilter{ID: &user.ID})
	require.NoError(t, err)
	assert.Empty(t, stored.PhotoURL)

	postURL, err := env.base.UploadPostImage(ctx, user, up("cover.jpg", "image/jpeg"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(postURL, "/media/images/"), postURL)
	assert.True(t, strings.HasSuffix(postURL, "_cover.jpg"), postURL)
}
