package handlers

import (
	"net/http"

	"github.com/petermazzocco/project-journal/internal/auth"
	"github.com/petermazzocco/project-journal/internal/respond"
	"github.com/petermazzocco/project-journal/internal/validate"
)

// Admins serves the admin roster. Non-admins get a null body on GET.
func (h *Handler) Admins(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		user, ok := auth.RequireUser(w, r)
		if !ok {
			return
		}
		admins, err := h.svc.Admins(r.Context(), user)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, admins)
	case http.MethodPost:
		user, ok := auth.RequireAdmin(w, r)
		if !ok {
			return
		}
		in, err := validate.DecodeAdmins(r.Body)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		admins, err := h.svc.SaveAdmins(r.Context(), user, in)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, admins)
	default:
		notImplemented(w)
	}
}
