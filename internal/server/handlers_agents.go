package server

import (
	"net/http"

	"github.com/taskforge/taskforge/internal/model"
)

// HandleListAgents handles GET /agents.
func (h *Handlers) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.registrySvc.ListAgents(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, agents)
}

// HandleGetAgent handles GET /agents/{id}.
func (h *Handlers) HandleGetAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid agent id")
		return
	}

	agent, err := h.registrySvc.GetAgent(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, agent)
}

// HandleCreateAgent handles POST /agents.
func (h *Handlers) HandleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req model.AgentRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if verr := req.Validate(); verr != nil {
		h.writeDomainError(w, r, verr)
		return
	}

	agent, err := h.registrySvc.CreateAgent(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, agent)
}

// HandleUpdateAgent handles PUT /agents/{id}.
func (h *Handlers) HandleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid agent id")
		return
	}

	var req model.AgentRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if verr := req.Validate(); verr != nil {
		h.writeDomainError(w, r, verr)
		return
	}

	agent, err := h.registrySvc.UpdateAgent(r.Context(), id, req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, agent)
}

// HandleDeleteAgent handles DELETE /agents/{id}.
func (h *Handlers) HandleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid agent id")
		return
	}

	if err := h.registrySvc.DeleteAgent(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
