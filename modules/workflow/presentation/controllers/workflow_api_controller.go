package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/history"
	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
	"github.com/iota-uz/opsdesk/modules/workflow/presentation/controllers/dtos"
	"github.com/iota-uz/opsdesk/modules/workflow/services"
	"github.com/iota-uz/opsdesk/pkg/application"
	"github.com/iota-uz/opsdesk/pkg/composables"
	"github.com/iota-uz/opsdesk/pkg/diff"
	"github.com/iota-uz/opsdesk/pkg/httpapi"
	"github.com/iota-uz/opsdesk/pkg/serrors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type WorkflowAPIController struct {
	registry  *services.Registry
	apiPrefix string
}

func NewWorkflowAPIController(app application.Application) application.Controller {
	return newWorkflowAPIController(app.Service(services.Registry{}).(*services.Registry))
}

func newWorkflowAPIController(registry *services.Registry) *WorkflowAPIController {
	return &WorkflowAPIController{
		registry:  registry,
		apiPrefix: "/api/workflow",
	}
}

func (c *WorkflowAPIController) Key() string {
	return c.apiPrefix
}

func (c *WorkflowAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/{entity}", c.List).Methods(http.MethodGet)
	api.HandleFunc("/{entity}/batch", c.Batch).Methods(http.MethodPost)
	api.HandleFunc("/{entity}/{id}", c.Get).Methods(http.MethodGet)
	api.HandleFunc("/{entity}/{id}/history", c.History).Methods(http.MethodGet)
	api.HandleFunc("/{entity}/{id}/proposals", c.Propose).Methods(http.MethodPost)
	api.HandleFunc("/{entity}/{id}/decisions", c.Decide).Methods(http.MethodPost)
	api.HandleFunc("/{entity}/{id}/actions", c.SideAction).Methods(http.MethodPost)
}

type listResponse struct {
	Records []*record.Record `json:"records"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

type historyEntryResponse struct {
	history.Entry
	Changes []diff.Line `json:"changes"`
}

func (c *WorkflowAPIController) workflow(w http.ResponseWriter, r *http.Request) (*services.Workflow, bool) {
	entity, err := record.ParseEntityType(mux.Vars(r)["entity"])
	if err == nil {
		var wf *services.Workflow
		if wf, err = c.registry.Get(entity); err == nil {
			return wf, true
		}
	}
	writeError(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	return nil, false
}

func (c *WorkflowAPIController) List(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.workflow(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), defaultListLimit)
	if err != nil || limit < 1 || limit > maxListLimit {
		writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", fmt.Sprintf("limit must be between 1 and %d", maxListLimit), nil)
		return
	}
	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", "offset must be a non-negative integer", nil)
		return
	}
	requestStatus := record.RequestStatus(strings.ToLower(strings.TrimSpace(q.Get("request_status"))))
	switch requestStatus {
	case record.RequestNone, record.RequestPending, record.RequestApproved, record.RequestRejected:
	default:
		writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", "request_status must be one of pending, approved, rejected", nil)
		return
	}

	recs, err := wf.List(r.Context(), requestStatus, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*record.Record{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, listResponse{Records: recs, Limit: limit, Offset: offset})
}

func (c *WorkflowAPIController) Get(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.workflow(w, r)
	if !ok {
		return
	}
	rec, err := wf.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, rec)
}

func (c *WorkflowAPIController) History(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.workflow(w, r)
	if !ok {
		return
	}
	entries, err := wf.History(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryResponse{Entry: e, Changes: e.Changes()})
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *WorkflowAPIController) Propose(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.workflow(w, r)
	if !ok {
		return
	}
	var dto dtos.ProposalDTO
	if !decodeAndValidate(w, r, &dto) {
		return
	}
	rec, err := wf.Propose(r.Context(), mux.Vars(r)["id"], record.Snapshot(dto.Fields), dto.ToActor(), dto.Remark)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusAccepted, services.DecisionResult{Record: rec, Outcome: services.OutcomePending})
}

func (c *WorkflowAPIController) Decide(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.workflow(w, r)
	if !ok {
		return
	}
	var dto dtos.DecisionDTO
	if !decodeAndValidate(w, r, &dto) {
		return
	}
	res, err := wf.Decide(r.Context(), mux.Vars(r)["id"], record.Action(dto.Action), dto.ToActor(), dto.Remark)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, res)
}

func (c *WorkflowAPIController) SideAction(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.workflow(w, r)
	if !ok {
		return
	}
	var dto dtos.SideActionDTO
	if !decodeAndValidate(w, r, &dto) {
		return
	}
	action, err := record.ParseAction(dto.Action)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := wf.SideAction(r.Context(), mux.Vars(r)["id"], action, dto.ToActor(), dto.ToInput())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, res)
}

func (c *WorkflowAPIController) Batch(w http.ResponseWriter, r *http.Request) {
	wf, ok := c.workflow(w, r)
	if !ok {
		return
	}
	var dto dtos.BatchDTO
	if !decodeAndValidate(w, r, &dto) {
		return
	}
	action, err := record.ParseAction(dto.Action)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	report, err := wf.DecideBatch(r.Context(), dto.ToItems(), action, dto.ToActor())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, batchStatus(report), report)
}

// batchStatus answers 200 unless nothing succeeded.
func batchStatus(report *services.BatchReport) int {
	if report.Summary == services.SummaryAllFailed && report.Total > 0 {
		return http.StatusUnprocessableEntity
	}
	return http.StatusOK
}

type validatable interface {
	Ok() (map[string]string, bool)
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dto validatable) bool {
	if err := httpapi.DecodeJSON(r.Body, dto); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_PAYLOAD", "invalid JSON body: "+err.Error(), nil)
		return false
	}
	if errs, ok := dto.Ok(); !ok {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_FAILED", "request validation failed", errs)
		return false
	}
	return true
}

func queryInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

var statusByCode = map[string]int{
	record.ErrInvalidTransition.Code: http.StatusUnprocessableEntity,
	record.ErrStaleProposal.Code:     http.StatusConflict,
	record.ErrVersionConflict.Code:   http.StatusConflict,
	record.ErrNotFound.Code:          http.StatusNotFound,
	record.ErrStorageFailure.Code:    http.StatusServiceUnavailable,
	record.ErrNoChanges.Code:         http.StatusUnprocessableEntity,
	record.ErrInvalidPayload.Code:    http.StatusBadRequest,
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := composables.UseLogger(r.Context()).WithError(err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("workflow request interrupted")
		writeError(w, r, http.StatusServiceUnavailable, record.ErrStorageFailure.Code, err.Error(), map[string]string{"retryable": "true"})
		return
	}
	code := serrors.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		logger.Error("unexpected workflow error")
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal server error", nil)
		return
	}
	meta := map[string]string{}
	if serrors.IsRetryable(err) {
		meta["retryable"] = "true"
		logger.Warn("workflow storage failure")
	}
	writeError(w, r, status, code, err.Error(), meta)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, meta map[string]string) {
	if meta == nil {
		meta = map[string]string{}
	}
	if id, ok := composables.UseRequestID(r.Context()); ok && id != "" {
		meta["request_id"] = id
	}
	if len(meta) == 0 {
		meta = nil
	}
	_ = httpapi.WriteError(w, status, code, message, meta)
}
