package api

import (
	"net/http"

	service "github.com/okian/roster/internal/app"
	"github.com/okian/roster/internal/domain/pool"
)

type generateRequest struct {
	RosterID   string        `json:"roster_id" validate:"required_without=Candidates,max=128"`
	Candidates []pool.Record `json:"candidates" validate:"max=10000"`
	Size       int           `json:"size"`
	Strategy   string        `json:"strategy" validate:"max=32"`
}

// AssignmentsHandler serves slot assignment generation.
type AssignmentsHandler struct {
	deps         AssignmentDependencies
	maxBodyBytes int64
}

// NewAssignmentsHandler creates a new assignments handler.
func NewAssignmentsHandler(deps AssignmentDependencies, maxBodyBytes int64) *AssignmentsHandler {
	return &AssignmentsHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

// HandleGenerate handles POST /assignments/generate.
func (h *AssignmentsHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	const op = "api.generate"

	var req generateRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if err := validateRequest(op, req); err != nil {
		writeFailure(w, err)
		return
	}

	res, err := h.deps.Generate(r.Context(), service.GenerateRequest{
		RosterID:   req.RosterID,
		Candidates: req.Candidates,
		Size:       req.Size,
		Strategy:   req.Strategy,
	})
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
