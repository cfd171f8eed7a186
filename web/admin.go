package web

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/datastore"
	"github.com/dardanova/dardanova/internal/util"
	"github.com/dardanova/dardanova/sudoapi"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gorilla/schema"
)

var formDecoder *schema.Decoder

func init() {
	formDecoder = schema.NewDecoder()
	formDecoder.IgnoreUnknownKeys(true)
}

// parseUploadForm parses multipart and url encoded forms alike into r.PostForm
func parseUploadForm(r *http.Request) error {
	err := r.ParseMultipartForm(datastore.MaxUploadSize)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// formUpload returns the uploaded file of the named field, or nil if none was chosen.
func formUpload(r *http.Request, field string) (*sudoapi.Upload, func(), error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}
	if header.Size == 0 {
		file.Close()
		return nil, func() {}, nil
	}
	return &sudoapi.Upload{
		Filename:    header.Filename,
		ContentType: uploadContentType(header),
		Size:        header.Size,
		Body:        file,
	}, func() { file.Close() }, nil
}

func uploadContentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (rt *Web) adminIndex(w http.ResponseWriter, r *http.Request) {
	if util.User(r) != nil {
		http.Redirect(w, r, "/admin/blogs", http.StatusTemporaryRedirect)
		return
	}
	rt.clearSessionCookie(w)
	http.Redirect(w, r, "/admin/login", http.StatusTemporaryRedirect)
}

type LoginParams struct {
	Email string
	Error string
}

func (rt *Web) loginPage() http.HandlerFunc {
	templ := rt.parseAdmin(nil, "admin/login.html")
	return func(w http.ResponseWriter, r *http.Request) {
		rt.runTempl(w, r, templ, &LoginParams{})
	}
}

func (rt *Web) postLogin() http.HandlerFunc {
	templ := rt.parseAdmin(nil, "admin/login.html")
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			rt.runTemplStatus(w, r, templ, 400, &LoginParams{Error: rt.text(r, "admin.login.error")})
			return
		}
		email := strings.TrimSpace(r.PostFormValue("email"))
		_, token, err := rt.base.SignIn(r.Context(), email, r.PostFormValue("password"))
		if err != nil {
			var key string
			switch {
			case errors.Is(err, sudoapi.ErrMissingRequired):
				key = "admin.login.missing"
			case errors.Is(err, sudoapi.ErrUserNotFound):
				key = "admin.login.user_not_found"
			case errors.Is(err, sudoapi.ErrInvalidCredentials):
				key = "admin.login.invalid_credentials"
			default:
				slog.WarnContext(r.Context(), "Couldn't sign in", slog.Any("err", err))
				key = "admin.login.error"
			}
			rt.runTemplStatus(w, r, templ, dardanova.ErrorCode(err), &LoginParams{Email: email, Error: rt.text(r, key)})
			return
		}
		rt.setSessionCookie(w, token)
		http.Redirect(w, r, "/admin/blogs", http.StatusSeeOther)
	}
}

func (rt *Web) logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionCookieValue(r); token != "" {
		if err := rt.base.SignOut(r.Context(), token); err != nil {
			slog.WarnContext(r.Context(), "Couldn't sign out", slog.Any("err", err))
		}
	}
	rt.clearSessionCookie(w)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

type DashboardParams struct {
	Stats *dardanova.PostStats
	Error string
}

func (rt *Web) dashboard() http.HandlerFunc {
	templ := rt.parseAdmin(nil, "admin/dashboard.html")
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := rt.base.PostStats(r.Context(), util.User(r))
		if err != nil {
			slog.WarnContext(r.Context(), "Couldn't get post stats", slog.Any("err", err))
			rt.runTemplStatus(w, r, templ, 500, &DashboardParams{Stats: &dardanova.PostStats{}, Error: rt.text(r, "admin.dashboard.error")})
			return
		}
		rt.runTempl(w, r, templ, &DashboardParams{Stats: stats})
	}
}

type AdminPostsParams struct {
	Posts []*dardanova.Post
	Flash string
	Error string
}

func (rt *Web) adminPosts() http.HandlerFunc {
	templ := rt.parseAdmin(nil, "admin/blogs.html")
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := rt.base.ListAll(r.Context())
		if err != nil {
			slog.WarnContext(r.Context(), "Couldn't get posts", slog.Any("err", err))
			rt.runTemplStatus(w, r, templ, 500, &AdminPostsParams{Error: rt.text(r, "blog.load_error")})
			return
		}
		var flash string
		switch {
		case r.FormValue("created") != "":
			flash = rt.text(r, "admin.posts.created")
		case r.FormValue("deleted") != "":
			flash = rt.text(r, "admin.posts.deleted")
		case r.FormValue("updated") != "":
			flash = rt.text(r, "admin.posts.saved")
		}
		rt.runTempl(w, r, templ, &AdminPostsParams{Posts: posts, Flash: flash})
	}
}

// postForm is the admin editor form. The featured image arrives as a separate file field.
type postForm struct {
	Title      string `schema:"title"`
	AuthorName string `schema:"authorName"`
	Lang       string `schema:"lang"`
	Content    string `schema:"content"`
}

func (f *postForm) Validate() error {
	f.Title = strings.TrimSpace(f.Title)
	f.AuthorName = strings.TrimSpace(f.AuthorName)
	return validation.ValidateStruct(f,
		validation.Field(&f.Title, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&f.AuthorName, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&f.Lang, validation.Required, validation.In(dardanova.LocaleTR.String(), dardanova.LocaleEN.String())),
	)
}

func formFromPost(post *dardanova.Post) postForm {
	return postForm{
		Title:      post.Title,
		AuthorName: post.AuthorName,
		Lang:       post.Lang.String(),
		Content:    post.Content,
	}
}

type PostFormParams struct {
	// Post is nil when creating a new post
	Post *dardanova.Post
	Form postForm

	Error   string
	Success string
}

// readPostForm decodes and validates the editor form, uploading the image if one was chosen.
// It returns the image URL to use, or an empty string to keep the current one.
func (rt *Web) readPostForm(r *http.Request, form *postForm) (string, string) {
	if err := parseUploadForm(r); err != nil {
		return "", rt.text(r, "admin.posts.image_invalid")
	}
	if err := formDecoder.Decode(form, r.PostForm); err != nil {
		return "", rt.text(r, "admin.posts.fill_required")
	}
	if err := form.Validate(); err != nil {
		return "", rt.text(r, "admin.posts.fill_required")
	}

	up, closeFile, err := formUpload(r, "image")
	defer closeFile()
	if err != nil {
		return "", rt.text(r, "admin.posts.image_invalid")
	}
	if up == nil {
		return "", ""
	}
	url, err := rt.base.UploadPostImage(r.Context(), util.User(r), up)
	if err != nil {
		if dardanova.ErrorCode(err) == 400 {
			return "", rt.text(r, "admin.posts.image_invalid")
		}
		return "", rt.text(r, "admin.posts.upload_error")
	}
	return url, ""
}

func (rt *Web) newPost() http.HandlerFunc {
	templ := rt.parseAdmin(nil, "admin/edit.html")
	return func(w http.ResponseWriter, r *http.Request) {
		user := util.User(r)
		if r.Method != http.MethodPost {
			rt.runTempl(w, r, templ, &PostFormParams{Form: postForm{
				AuthorName: user.Name(),
				Lang:       rt.locale(r).String(),
			}})
			return
		}

		var form postForm
		imageURL, errText := rt.readPostForm(r, &form)
		if errText != "" {
			rt.runTemplStatus(w, r, templ, 400, &PostFormParams{Form: form, Error: errText})
			return
		}

		_, err := rt.base.CreatePost(r.Context(), user, dardanova.PostCreate{
			Title:      form.Title,
			Content:    form.Content,
			ImageURL:   imageURL,
			AuthorName: form.AuthorName,
			Lang:       dardanova.Locale(form.Lang),
		})
		if err != nil {
			slog.WarnContext(r.Context(), "Couldn't create post", slog.Any("err", err))
			rt.runTemplStatus(w, r, templ, dardanova.ErrorCode(err), &PostFormParams{Form: form, Error: rt.text(r, "admin.posts.save_error")})
			return
		}
		http.Redirect(w, r, "/admin/blogs?created=1", http.StatusSeeOther)
	}
}

func (rt *Web) editPost() http.HandlerFunc {
	templ := rt.parseAdmin(nil, "admin/edit.html")
	return func(w http.ResponseWriter, r *http.Request) {
		post := util.Post(r)
		if r.Method != http.MethodPost {
			params := &PostFormParams{Post: post, Form: formFromPost(post)}
			if r.FormValue("saved") != "" {
				params.Success = rt.text(r, "admin.posts.saved")
			}
			rt.runTempl(w, r, templ, params)
			return
		}

		var form postForm
		imageURL, errText := rt.readPostForm(r, &form)
		if errText != "" {
			rt.runTemplStatus(w, r, templ, 400, &PostFormParams{Post: post, Form: form, Error: errText})
			return
		}

		lang := dardanova.Locale(form.Lang)
		upd := dardanova.PostUpdate{
			Title:      &form.Title,
			Content:    &form.Content,
			AuthorName: &form.AuthorName,
			Lang:       &lang,
		}
		if imageURL != "" {
			upd.ImageURL = &imageURL
		}
		if err := rt.base.UpdatePost(r.Context(), util.User(r), post.ID, upd); err != nil {
			slog.WarnContext(r.Context(), "Couldn't update post", slog.Any("err", err), slog.String("id", post.ID))
			rt.runTemplStatus(w, r, templ, dardanova.ErrorCode(err), &PostFormParams{Post: post, Form: form, Error: rt.text(r, "admin.posts.save_error")})
			return
		}
		http.Redirect(w, r, "/admin/blogs/"+post.ID+"?saved=1", http.StatusSeeOther)
	}
}

type ConfirmParams struct {
	Post *dardanova.Post

	Action    string
	ActionURL string
	// Published is the publish state submitted by publish/unpublish
	Published string
}

// confirmPostAction is the no-JS confirmation step of the destructive actions on the posts list.
func (rt *Web) confirmPostAction() http.HandlerFunc {
	templ := rt.parseAdmin(nil, "admin/confirm.html")
	return func(w http.ResponseWriter, r *http.Request) {
		post := util.Post(r)
		params := &ConfirmParams{Post: post, Action: r.FormValue("action")}
		switch params.Action {
		case "delete":
			params.ActionURL = "/admin/blogs/" + post.ID + "/delete"
		case "publish":
			params.ActionURL = "/admin/blogs/" + post.ID + "/publish"
			params.Published = "true"
		case "unpublish":
			params.ActionURL = "/admin/blogs/" + post.ID + "/publish"
			params.Published = "false"
		default:
			rt.statusPageBack(w, r, 400, rt.text(r, "admin.posts.invalid_action"), "/admin/blogs", rt.text(r, "admin.posts.back"))
			return
		}
		rt.runTempl(w, r, templ, params)
	}
}

func (rt *Web) deletePost(w http.ResponseWriter, r *http.Request) {
	post := util.Post(r)
	if err := rt.base.DeletePost(r.Context(), util.User(r), post.ID); err != nil {
		slog.WarnContext(r.Context(), "Couldn't delete post", slog.Any("err", err), slog.String("id", post.ID))
		rt.statusPageBack(w, r, dardanova.ErrorCode(err), rt.text(r, "admin.posts.delete_error"), "/admin/blogs", rt.text(r, "admin.posts.back"))
		return
	}
	http.Redirect(w, r, "/admin/blogs?deleted=1", http.StatusSeeOther)
}

func (rt *Web) publishPost(w http.ResponseWriter, r *http.Request) {
	post := util.Post(r)
	published := r.FormValue("published") == "true"
	if err := rt.base.SetPublished(r.Context(), util.User(r), post.ID, published); err != nil {
		slog.WarnContext(r.Context(), "Couldn't change publish state", slog.Any("err", err), slog.String("id", post.ID))
		rt.statusPageBack(w, r, dardanova.ErrorCode(err), rt.text(r, "admin.posts.save_error"), "/admin/blogs", rt.text(r, "admin.posts.back"))
		return
	}
	http.Redirect(w, r, "/admin/blogs?updated=1", http.StatusSeeOther)
}

type SettingsParams struct {
	ProfileError   string
	ProfileSuccess string

	PasswordError   string
	PasswordSuccess string
}

func (rt *Web) settings() http.HandlerFunc {
	templ := rt.parseAdmin(nil, "admin/settings.html")
	return func(w http.ResponseWriter, r *http.Request) {
		rt.runTempl(w, r, templ, &SettingsParams{})
	}
}

const minDisplayNameLen = 2

func (rt *Web) updateProfile() http.HandlerFunc {
	templ := rt.parseAdmin(nil, "admin/settings.html")
	return func(w http.ResponseWriter, r *http.Request) {
		user := util.User(r)
		fail := func(code int, key string) {
			rt.runTemplStatus(w, r, templ, code, &SettingsParams{ProfileError: rt.text(r, key)})
		}

		if err := parseUploadForm(r); err != nil {
			fail(400, "admin.settings.avatar_invalid")
			return
		}
		name := strings.TrimSpace(r.PostFormValue("displayName"))
		if utf8.RuneCountInString(name) < minDisplayNameLen {
			fail(400, "admin.settings.name_short")
			return
		}
		upd := dardanova.UserUpdate{DisplayName: &name}

		up, closeFile, err := formUpload(r, "avatar")
		defer closeFile()
		if err != nil {
			fail(400, "admin.settings.avatar_invalid")
			return
		}
		if up != nil {
			url, err := rt.base.UploadProfileImage(r.Context(), user, up)
			if err != nil {
				if dardanova.ErrorCode(err) == 400 {
					fail(400, "admin.settings.avatar_invalid")
				} else {
					fail(500, "admin.settings.profile_error")
				}
				return
			}
			upd.PhotoURL = &url
		}

		if err := rt.base.UpdateProfile(r.Context(), user, upd); err != nil {
			slog.WarnContext(r.Context(), "Couldn't update profile", slog.Any("err", err))
			fail(dardanova.ErrorCode(err), "admin.settings.profile_error")
			return
		}
		rt.runTempl(w, r, templ, &SettingsParams{ProfileSuccess: rt.text(r, "admin.settings.profile_saved")})
	}
}

const minPasswordLen = 6

func (rt *Web) updatePassword() http.HandlerFunc {
	templ := rt.parseAdmin(nil, "admin/settings.html")
	return func(w http.ResponseWriter, r *http.Request) {
		fail := func(code int, key string) {
			rt.runTemplStatus(w, r, templ, code, &SettingsParams{PasswordError: rt.text(r, key)})
		}
		if err := r.ParseForm(); err != nil {
			fail(400, "admin.settings.password_error")
			return
		}

		current := r.PostFormValue("currentPassword")
		newPassword := r.PostFormValue("newPassword")
		if current == "" || newPassword == "" {
			fail(400, "admin.settings.password_missing")
			return
		}
		if newPassword != r.PostFormValue("confirmPassword") {
			fail(400, "admin.settings.password_mismatch")
			return
		}
		if len(newPassword) < minPasswordLen {
			fail(400, "admin.settings.password_short")
			return
		}

		if err := rt.base.UpdatePassword(r.Context(), util.User(r), current, newPassword); err != nil {
			if errors.Is(err, sudoapi.ErrReauthFailed) {
				fail(400, "admin.settings.password_wrong")
				return
			}
			slog.WarnContext(r.Context(), "Couldn't update password", slog.Any("err", err))
			fail(dardanova.ErrorCode(err), "admin.settings.password_error")
			return
		}
		rt.runTempl(w, r, templ, &SettingsParams{PasswordSuccess: rt.text(r, "admin.settings.password_saved")})
	}
}
