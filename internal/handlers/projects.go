package handlers

import (
	"net/http"

	"github.com/petermazzocco/project-journal/internal/auth"
	"github.com/petermazzocco/project-journal/internal/respond"
	"github.com/petermazzocco/project-journal/internal/validate"
)

func (h *Handler) Projects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		notImplemented(w)
		return
	}
	user, ok := auth.RequireUser(w, r)
	if !ok {
		return
	}
	projects, err := h.svc.Projects(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, projects)
}

func (h *Handler) Project(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		user, ok := auth.RequireUser(w, r)
		if !ok {
			return
		}
		id, err := queryID(r, "id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		project, err := h.svc.Project(r.Context(), user, id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, project)
	case http.MethodPost:
		if _, ok := auth.RequireAdmin(w, r); !ok {
			return
		}
		in, err := validate.DecodeProject(r.Body)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		project, err := h.svc.SaveProject(r.Context(), in)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, project)
	case http.MethodDelete:
		if _, ok := auth.RequireAdmin(w, r); !ok {
			return
		}
		id, err := validate.DecodeID(r.Body)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.svc.DeleteProject(r.Context(), id); err != nil {
			h.fail(w, r, err)
			return
		}
		deleted(w)
	default:
		notImplemented(w)
	}
}
