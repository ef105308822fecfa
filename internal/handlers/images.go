package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/petermazzocco/project-journal/internal/auth"
	"github.com/petermazzocco/project-journal/internal/respond"
	"github.com/petermazzocco/project-journal/internal/validate"
)

// UploadToken issues a direct-to-storage upload URL for a project image.
func (h *Handler) UploadToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		notImplemented(w)
		return
	}
	if _, ok := auth.RequireAdmin(w, r); !ok {
		return
	}
	in, err := validate.DecodeUploadToken(r.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	token, err := h.svc.UploadToken(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, token)
}

// UploadImage accepts a multipart form with projectId and image, stores a
// processed copy and answers with the updated project.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		notImplemented(w)
		return
	}
	user, ok := auth.RequireAdmin(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respond.Error(w, http.StatusBadRequest, "Invalid data: image is too large")
			return
		}
		respond.Error(w, http.StatusBadRequest, "Invalid data: "+err.Error())
		return
	}
	projectID, err := validate.ParseID("projectId", r.FormValue("projectId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid data: image is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid data: "+err.Error())
		return
	}
	if _, err := h.svc.UploadImage(r.Context(), projectID, header.Filename, data); err != nil {
		h.fail(w, r, err)
		return
	}
	project, err := h.svc.Project(r.Context(), user, projectID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, project)
}
