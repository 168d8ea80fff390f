package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/roster/internal/domain/pool"
)

type putRosterRequest struct {
	Records []pool.Record `json:"records" validate:"required,max=10000"`
}

type rosterResponse struct {
	ID        string        `json:"id"`
	Records   []pool.Record `json:"records"`
	Count     int           `json:"count"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// RostersHandler serves roster storage and derived views.
type RostersHandler struct {
	deps         RosterDependencies
	maxBodyBytes int64
}

// NewRostersHandler creates a new rosters handler.
func NewRostersHandler(deps RosterDependencies, maxBodyBytes int64) *RostersHandler {
	return &RostersHandler{deps: deps, maxBodyBytes: maxBodyBytes}
}

func rosterID(op string, r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" || len(id) > 128 {
		return "", NewKind(op, ErrBadRequest)
	}
	return id, nil
}

// HandleList handles GET /rosters.
func (h *RostersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.rosters.list"
	ids, err := h.deps.ListRosters(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rosters": ids, "count": len(ids)})
}

// HandlePut handles PUT /rosters/{id}.
func (h *RostersHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.rosters.put"
	id, err := rosterID(op, r)
	if err != nil {
		writeFailure(w, err)
		return
	}

	var req putRosterRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if err := validateRequest(op, req); err != nil {
		writeFailure(w, err)
		return
	}

	roster, err := h.deps.PutRoster(r.Context(), id, req.Records)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, rosterResponse{
		ID:        roster.ID,
		Records:   roster.Records,
		Count:     len(roster.Records),
		UpdatedAt: roster.UpdatedAt,
	})
}

// HandleGet handles GET /rosters/{id}.
func (h *RostersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.rosters.get"
	id, err := rosterID(op, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	roster, err := h.deps.GetRoster(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rosterResponse{
		ID:        roster.ID,
		Records:   roster.Records,
		Count:     len(roster.Records),
		UpdatedAt: roster.UpdatedAt,
	})
}

// HandleDelete handles DELETE /rosters/{id}.
func (h *RostersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "api.rosters.delete"
	id, err := rosterID(op, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := h.deps.DeleteRoster(r.Context(), id); err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSummary handles GET /rosters/{id}/summary.
func (h *RostersHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.rosters.summary"
	id, err := rosterID(op, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	summary, err := h.deps.Summary(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HandlePublished handles GET /rosters/{id}/published.
func (h *RostersHandler) HandlePublished(w http.ResponseWriter, r *http.Request) {
	const op = "api.rosters.published"
	id, err := rosterID(op, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	pub, err := h.deps.Published(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, pub)
}
