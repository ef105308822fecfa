package handlers

import (
	"net/http"

	"github.com/petermazzocco/project-journal/internal/auth"
	"github.com/petermazzocco/project-journal/internal/respond"
	"github.com/petermazzocco/project-journal/internal/validate"
)

func (h *Handler) Updates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		notImplemented(w)
		return
	}
	user, ok := auth.RequireUser(w, r)
	if !ok {
		return
	}
	projectID, err := queryID(r, "projectId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	updates, err := h.svc.Updates(r.Context(), user, projectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, updates)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if _, ok := auth.RequireAdmin(w, r); !ok {
			return
		}
		in, err := validate.DecodeUpdate(r.Body)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		update, err := h.svc.SaveUpdate(r.Context(), in)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, update)
	case http.MethodDelete:
		if _, ok := auth.RequireAdmin(w, r); !ok {
			return
		}
		id, err := validate.DecodeID(r.Body)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if err := h.svc.DeleteUpdate(r.Context(), id); err != nil {
			h.fail(w, r, err)
			return
		}
		deleted(w)
	default:
		notImplemented(w)
	}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		user, ok := auth.RequireUser(w, r)
		if !ok {
			return
		}
		projectID, err := queryID(r, "projectId")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		summary, err := h.svc.Summary(r.Context(), user, projectID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, summary)
	case http.MethodPost:
		if _, ok := auth.RequireAdmin(w, r); !ok {
			return
		}
		in, err := validate.DecodeSummary(r.Body)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		summary, err := h.svc.SaveSummary(r.Context(), in)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, summary)
	default:
		notImplemented(w)
	}
}
