package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	tekio "github.com/tekio-be/leads"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

type IntakeService interface {
	CreateLead(ctx context.Context, newLead tekio.NewLead) (tekio.Lead, error)
}

type AdminService interface {
	List(ctx context.Context, filter tekio.LeadFilter) ([]tekio.Lead, error)
	Get(ctx context.Context, id string) (tekio.Lead, error)
	UpdateStatus(ctx context.Context, id string, status tekio.Status) (tekio.Lead, error)
	UpdateNotes(ctx context.Context, id string, notes string) (tekio.Lead, error)
	UpdateAISuggestion(ctx context.Context, id string, suggestion string) (tekio.Lead, error)
	GenerateReply(ctx context.Context, id string) (string, error)
}

type LeadHandler struct {
	intake IntakeService
	admin  AdminService
	log    *otelzap.SugaredLogger
}

func NewLeadHandler(intake IntakeService, admin AdminService, log *otelzap.SugaredLogger) *LeadHandler {
	return &LeadHandler{
		intake: intake,
		admin:  admin,
		log:    log,
	}
}

// Create takes a public form submission. Any status in the body is ignored.
func (lh LeadHandler) Create(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var newLead tekio.NewLead
	if err := decode(r, &newLead); err != nil {
		lh.log.Ctx(ctx).Errorw("Create", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	lead, err := lh.intake.CreateLead(ctx, newLead)
	if err != nil {
		lh.log.Ctx(ctx).Errorw("Create", "error", err.Error())
		respondStoreErr(ctx, rw, err)
		return
	}

	respond(ctx, rw, http.StatusCreated, lead)
}

func (lh LeadHandler) List(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filter tekio.LeadFilter
	if s := r.URL.Query().Get("status"); s != "" && s != "all" {
		status := tekio.Status(s)
		filter.Status = &status
	}

	leads, err := lh.admin.List(ctx, filter)
	if err != nil {
		lh.log.Ctx(ctx).Errorw("List", "error", err.Error())
		respondStoreErr(ctx, rw, err)
		return
	}

	respond(ctx, rw, http.StatusOK, leads)
}

func (lh LeadHandler) GetByID(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := lh.leadID(rw, r, "GetByID")
	if !ok {
		return
	}

	lead, err := lh.admin.Get(ctx, id)
	if err != nil {
		lh.log.Ctx(ctx).Errorw("GetByID", "lead_id", id, "error", err.Error())
		respondStoreErr(ctx, rw, err)
		return
	}

	respond(ctx, rw, http.StatusOK, lead)
}

type statusRequest struct {
	Status tekio.Status `json:"status"`
}

func (lh LeadHandler) UpdateStatus(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := lh.leadID(rw, r, "UpdateStatus")
	if !ok {
		return
	}

	var req statusRequest
	if err := decode(r, &req); err != nil {
		lh.log.Ctx(ctx).Errorw("UpdateStatus", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	lh.respondUpdate(rw, r, "UpdateStatus", id, func() (tekio.Lead, error) {
		return lh.admin.UpdateStatus(ctx, id, req.Status)
	})
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (lh LeadHandler) UpdateNotes(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := lh.leadID(rw, r, "UpdateNotes")
	if !ok {
		return
	}

	var req notesRequest
	if err := decode(r, &req); err != nil {
		lh.log.Ctx(ctx).Errorw("UpdateNotes", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	lh.respondUpdate(rw, r, "UpdateNotes", id, func() (tekio.Lead, error) {
		return lh.admin.UpdateNotes(ctx, id, req.Notes)
	})
}

type suggestionRequest struct {
	AISuggestion string `json:"ai_suggestion"`
}

func (lh LeadHandler) UpdateAISuggestion(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := lh.leadID(rw, r, "UpdateAISuggestion")
	if !ok {
		return
	}

	var req suggestionRequest
	if err := decode(r, &req); err != nil {
		lh.log.Ctx(ctx).Errorw("UpdateAISuggestion", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	lh.respondUpdate(rw, r, "UpdateAISuggestion", id, func() (tekio.Lead, error) {
		return lh.admin.UpdateAISuggestion(ctx, id, req.AISuggestion)
	})
}

// GenerateReply drafts a reply for a stored lead without saving it.
func (lh LeadHandler) GenerateReply(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := lh.leadID(rw, r, "GenerateReply")
	if !ok {
		return
	}

	reply, err := lh.admin.GenerateReply(ctx, id)
	if err != nil {
		lh.log.Ctx(ctx).Errorw("GenerateReply", "lead_id", id, "error", err.Error())
		respondGenerationErr(ctx, rw, err)
		return
	}

	respond(ctx, rw, http.StatusOK, replyResponse{Reply: reply})
}

func (lh LeadHandler) respondUpdate(rw http.ResponseWriter, r *http.Request, op, id string, update func() (tekio.Lead, error)) {
	ctx := r.Context()

	lead, err := update()
	if err != nil {
		lh.log.Ctx(ctx).Errorw(op, "lead_id", id, "error", err.Error())
		respondStoreErr(ctx, rw, err)
		return
	}

	lh.log.Ctx(ctx).Infow(op, "status", "lead updated", "lead_id", id)
	respond(ctx, rw, http.StatusOK, lead)
}

func (lh LeadHandler) leadID(rw http.ResponseWriter, r *http.Request, op string) (string, bool) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		lh.log.Ctx(ctx).Errorw(op, "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, errBadID)
		return "", false
	}
	return id.String(), true
}
