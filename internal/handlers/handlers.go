// Package handlers implements the /api and /auth endpoints. Each resource
// has one handler that dispatches on the request method.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/petermazzocco/project-journal/internal/auth"
	"github.com/petermazzocco/project-journal/internal/respond"
	"github.com/petermazzocco/project-journal/internal/service"
	"github.com/petermazzocco/project-journal/internal/validate"
)

const (
	msgNotImplemented = "Method not implemented."
	msgInternal       = "Something went wrong."
	maxUploadBytes    = 10 << 20
)

type Handler struct {
	svc      *service.Service
	sessions sessions.Store
	email    *auth.EmailLogin
	log      *slog.Logger
	// Where the browser lands after signing in or out.
	home string
}

func New(svc *service.Service, ss sessions.Store, email *auth.EmailLogin, log *slog.Logger, home string) *Handler {
	if home == "" {
		home = "/"
	}
	return &Handler{svc: svc, sessions: ss, email: email, log: log, home: home}
}

func notImplemented(w http.ResponseWriter) {
	respond.Error(w, http.StatusNotImplemented, msgNotImplemented)
}

// fail converts an error into the response for its kind. Not-found and
// forbidden lookups answer 501 with the message, matching the behaviour
// clients already depend on.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch service.KindOf(err) {
	case service.KindInvalid:
		respond.Error(w, http.StatusBadRequest, err.Error())
	case service.KindUnauthorized:
		respond.Error(w, http.StatusUnauthorized, auth.MsgNotAuthorized)
	case service.KindNotFound, service.KindForbidden:
		respond.Error(w, http.StatusNotImplemented, err.Error())
	default:
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		respond.Error(w, http.StatusInternalServerError, msgInternal)
	}
}

func queryID(r *http.Request, name string) (uint, error) {
	return validate.ParseID(name, r.URL.Query().Get(name))
}

func deleted(w http.ResponseWriter) {
	respond.JSON(w, http.StatusOK, struct{}{})
}
