package server

import (
	"net/http"

	"github.com/taskforge/taskforge/internal/model"
)

// HandleStartExecution handles POST /executions/start.
func (h *Handlers) HandleStartExecution(w http.ResponseWriter, r *http.Request) {
	var req model.StartExecutionRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if verr := req.Validate(); verr != nil {
		h.writeDomainError(w, r, verr)
		return
	}

	exec, err := h.executorSvc.Start(r.Context(), req.TaskID, req.AgentID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, exec)
}

// HandleCompleteExecution handles POST /executions/{id}/complete.
func (h *Handlers) HandleCompleteExecution(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid execution id")
		return
	}

	var req model.CompleteExecutionRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	exec, err := h.executorSvc.Complete(r.Context(), id, req.Result)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, exec)
}

// HandleFailExecution handles POST /executions/{id}/fail.
func (h *Handlers) HandleFailExecution(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid execution id")
		return
	}

	var req model.FailExecutionRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	exec, err := h.executorSvc.Fail(r.Context(), id, req.ErrorMessage)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, exec)
}

// HandleGetExecution handles GET /executions/{id}.
func (h *Handlers) HandleGetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid execution id")
		return
	}

	exec, err := h.executorSvc.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, exec)
}

// HandleListExecutions handles GET /executions. An optional status query
// parameter filters by execution status.
func (h *Handlers) HandleListExecutions(w http.ResponseWriter, r *http.Request) {
	var status *model.ExecutionStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := model.ExecutionStatus(s)
		if !model.ValidExecutionStatus(st) {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid execution status")
			return
		}
		status = &st
	}

	execs, err := h.executorSvc.List(r.Context(), status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, execs)
}

// HandleListRunningExecutions handles GET /executions/running.
func (h *Handlers) HandleListRunningExecutions(w http.ResponseWriter, r *http.Request) {
	execs, err := h.executorSvc.ListRunning(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, execs)
}
