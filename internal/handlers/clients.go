package handlers

import (
	"net/http"

	"github.com/petermazzocco/project-journal/internal/auth"
	"github.com/petermazzocco/project-journal/internal/respond"
	"github.com/petermazzocco/project-journal/internal/validate"
)

func (h *Handler) Clients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		notImplemented(w)
		return
	}
	user, ok := auth.RequireUser(w, r)
	if !ok {
		return
	}
	clients, err := h.svc.Clients(r.Context(), user)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, clients)
}

func (h *Handler) Client(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getClient(w, r)
	case http.MethodPost:
		h.saveClient(w, r)
	case http.MethodDelete:
		h.deleteClient(w, r)
	default:
		notImplemented(w)
	}
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.RequireUser(w, r)
	if !ok {
		return
	}
	id, err := queryID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	client, err := h.svc.Client(r.Context(), user, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, client)
}

func (h *Handler) saveClient(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireAdmin(w, r); !ok {
		return
	}
	in, err := validate.DecodeClient(r.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	client, err := h.svc.SaveClient(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, client)
}

func (h *Handler) deleteClient(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireAdmin(w, r); !ok {
		return
	}
	id, err := validate.DecodeID(r.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.DeleteClient(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	deleted(w)
}
