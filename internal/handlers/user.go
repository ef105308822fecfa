package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/petermazzocco/project-journal/internal/auth"
	"github.com/petermazzocco/project-journal/internal/respond"
	"github.com/petermazzocco/project-journal/internal/service"
	"github.com/petermazzocco/project-journal/internal/validate"
	"github.com/petermazzocco/project-journal/models"
)

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		notImplemented(w)
		return
	}
	user, ok := auth.RequireUser(w, r)
	if !ok {
		return
	}
	me, err := h.svc.Me(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, me)
}

// Users lists everyone with a role, for team pickers.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		notImplemented(w)
		return
	}
	if _, ok := auth.RequireAdmin(w, r); !ok {
		return
	}
	users, err := h.svc.Users(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, users)
}

func withProvider(r *http.Request) *http.Request {
	return gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))
}

// BeginAuth starts the provider's OAuth flow, or finishes it right away when
// gothic still holds a completed session.
func (h *Handler) BeginAuth(w http.ResponseWriter, r *http.Request) {
	r = withProvider(r)
	if gothUser, err := gothic.CompleteUserAuth(w, r); err == nil {
		h.completeLogin(w, r, gothUser)
		return
	}
	gothic.BeginAuthHandler(w, r)
}

func (h *Handler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	r = withProvider(r)
	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		h.log.Warn("oauth callback failed", "provider", chi.URLParam(r, "provider"), "err", err)
		h.redirectError(w, r, "OAuthCallback")
		return
	}
	h.completeLogin(w, r, gothUser)
}

func (h *Handler) completeLogin(w http.ResponseWriter, r *http.Request, gothUser goth.User) {
	user, err := h.svc.SignIn(r.Context(), models.User{
		Name:  gothUser.Name,
		Email: gothUser.Email,
		Image: gothUser.AvatarURL,
	})
	if err != nil {
		if service.KindOf(err) != service.KindUnauthorized {
			h.log.Error("sign in failed", "provider", gothUser.Provider, "err", err)
		}
		h.redirectError(w, r, "AccessDenied")
		return
	}
	h.startSession(w, r, user.Email)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, email string) {
	if err := auth.StartSession(w, r, h.sessions, email); err != nil {
		h.log.Error("failed to save session", "err", err)
		respond.Error(w, http.StatusInternalServerError, "Failed to save session.")
		return
	}
	http.Redirect(w, r, h.home, http.StatusTemporaryRedirect)
}

func (h *Handler) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	u, err := url.Parse(h.home)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set("error", code)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusTemporaryRedirect)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	_ = gothic.Logout(w, r)
	if err := auth.EndSession(w, r, h.sessions); err != nil {
		h.log.Error("failed to clear session", "err", err)
	}
	respond.JSON(w, http.StatusOK, struct{}{})
}

// EmailLogin mails a sign-in link. The answer is the same whether or not
// the address belongs to a user.
func (h *Handler) EmailLogin(w http.ResponseWriter, r *http.Request) {
	if h.email == nil {
		notImplemented(w)
		return
	}
	email, err := validate.DecodeLogin(r.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.svc.SignInByEmail(r.Context(), email); err != nil {
		if service.KindOf(err) != service.KindUnauthorized {
			h.fail(w, r, err)
			return
		}
		h.log.Info("sign-in link not sent", "reason", "no access")
		respond.JSON(w, http.StatusOK, struct{}{})
		return
	}
	if err := h.email.Send(r.Context(), email); err != nil {
		h.log.Error("failed to send sign-in link", "err", err)
		respond.Error(w, http.StatusInternalServerError, "Failed to send sign-in link.")
		return
	}
	respond.JSON(w, http.StatusOK, struct{}{})
}

func (h *Handler) EmailCallback(w http.ResponseWriter, r *http.Request) {
	if h.email == nil {
		notImplemented(w)
		return
	}
	email, err := h.email.Verify(r.URL.Query().Get("token"))
	if err != nil {
		h.redirectError(w, r, "Verification")
		return
	}
	user, err := h.svc.SignInByEmail(r.Context(), email)
	if err != nil {
		h.redirectError(w, r, "AccessDenied")
		return
	}
	h.startSession(w, r, user.Email)
}
