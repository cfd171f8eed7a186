package api

import (
	"errors"
	"net/http"

	"github.com/dardanova/dardanova"
	"github.com/dardanova/dardanova/sudoapi"
)

type contactRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Phone    string `json:"phone"`

	Lang string `json:"lang"`
}

func (s *API) sendContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := parseBody(w, r, &req); err != nil {
		lang := requestLocale(r, "")
		errorData(w, dardanova.GetText(lang.String(), "api.invalid_body"), http.StatusBadRequest)
		return
	}
	lang := requestLocale(r, req.Lang)

	err := s.base.SendContactMessage(r.Context(), &sudoapi.ContactMessage{
		FullName: req.FullName,
		Email:    req.Email,
		Subject:  req.Subject,
		Message:  req.Message,
		Phone:    req.Phone,
	})
	if err != nil {
		errorData(w, ContactErrorText(lang, err), dardanova.ErrorCode(err))
		return
	}
	returnData(w, dardanova.GetText(lang.String(), "contact.success"))
}

// ContactErrorText returns the localized visitor message for a failed contact submission.
func ContactErrorText(lang dardanova.Locale, err error) string {
	switch {
	case errors.Is(err, sudoapi.ErrContactIncomplete):
		return dardanova.GetText(lang.String(), "contact.fill_all")
	case errors.Is(err, sudoapi.ErrInvalidEmail):
		return dardanova.GetText(lang.String(), "contact.invalid_email")
	default:
		return dardanova.GetText(lang.String(), "contact.error")
	}
}
