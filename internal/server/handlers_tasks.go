package server

import (
	"net/http"

	"github.com/taskforge/taskforge/internal/model"
)

// HandleListTasks handles GET /tasks.
func (h *Handlers) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.registrySvc.ListTasks(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tasks)
}

// HandleGetTask handles GET /tasks/{id}.
func (h *Handlers) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid task id")
		return
	}

	task, err := h.registrySvc.GetTask(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, task)
}

// HandleCreateTask handles POST /tasks.
func (h *Handlers) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req model.TaskRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if verr := req.Validate(); verr != nil {
		h.writeDomainError(w, r, verr)
		return
	}

	task, err := h.registrySvc.CreateTask(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, task)
}

// HandleUpdateTask handles PUT /tasks/{id}. The supported agent set in the
// request fully replaces the task's existing set.
func (h *Handlers) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid task id")
		return
	}

	var req model.TaskRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if verr := req.Validate(); verr != nil {
		h.writeDomainError(w, r, verr)
		return
	}

	task, err := h.registrySvc.UpdateTask(r.Context(), id, req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, task)
}

// HandleDeleteTask handles DELETE /tasks/{id}.
func (h *Handlers) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid task id")
		return
	}

	if err := h.registrySvc.DeleteTask(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
