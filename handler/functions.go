package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	tekio "github.com/tekio-be/leads"
	"github.com/tekio-be/leads/ai"
	"github.com/tekio-be/leads/mail"
	"github.com/tekio-be/leads/notify"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

type NotificationSender interface {
	Send(ctx context.Context, lead mail.LeadNotification) error
}

type ReplyGenerator interface {
	GenerateReply(ctx context.Context, lead tekio.Lead) (string, error)
}

type PayloadDispatcher interface {
	Go(payload notify.Payload)
}

// FunctionHandler serves the standalone functions the site calls directly.
type FunctionHandler struct {
	notifier   NotificationSender
	generator  ReplyGenerator
	dispatcher PayloadDispatcher
	log        *otelzap.SugaredLogger
}

func NewFunctionHandler(notifier NotificationSender, generator ReplyGenerator, dispatcher PayloadDispatcher, log *otelzap.SugaredLogger) *FunctionHandler {
	return &FunctionHandler{
		notifier:   notifier,
		generator:  generator,
		dispatcher: dispatcher,
		log:        log,
	}
}

type successResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SendLeadNotification mails the operators. Every failure is a 500.
func (fh FunctionHandler) SendLeadNotification(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var lead mail.LeadNotification
	if err := decode(r, &lead); err != nil {
		fh.log.Ctx(ctx).Errorw("SendLeadNotification", "error", err.Error())
		respond(ctx, rw, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	if err := fh.notifier.Send(ctx, lead); err != nil {
		fh.log.Ctx(ctx).Errorw("SendLeadNotification", "email", lead.Email, "error", err.Error())
		respond(ctx, rw, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	respond(ctx, rw, http.StatusOK, successResponse{Success: true})
}

type replyRequest struct {
	Lead *tekio.Lead `json:"lead"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

// GenerateLeadReply drafts a reply for the lead given in the body.
func (fh FunctionHandler) GenerateLeadReply(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req replyRequest
	if err := decode(r, &req); err != nil {
		fh.log.Ctx(ctx).Errorw("GenerateLeadReply", "error", err.Error())
		respond(ctx, rw, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if req.Lead == nil {
		respond(ctx, rw, http.StatusInternalServerError, errorResponse{Error: "lead is required"})
		return
	}

	reply, err := fh.generator.GenerateReply(ctx, *req.Lead)
	if err != nil {
		fh.log.Ctx(ctx).Errorw("GenerateLeadReply", "lead_id", req.Lead.ID, "error", err.Error())
		respondGenerationErr(ctx, rw, err)
		return
	}

	respond(ctx, rw, http.StatusOK, replyResponse{Reply: reply})
}

// SubmitCTA relays a call-to-action click to the webhook without storing a lead.
func (fh FunctionHandler) SubmitCTA(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	leadType, ok := notify.ParseLeadType(chi.URLParam(r, "type"))
	if !ok {
		respondErr(ctx, rw, http.StatusNotFound, errors.New("unknown call to action"))
		return
	}

	// A bare button click posts no body.
	var data notify.Payload
	if err := decode(r, &data); err != nil && !errors.Is(err, errEmptyBody) {
		fh.log.Ctx(ctx).Errorw("SubmitCTA", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	source := data.Source
	if source == "" {
		source = "cta_" + string(leadType)
	}

	fh.dispatcher.Go(notify.CTAPayload(leadType, source, data))
	respond(ctx, rw, http.StatusAccepted, nil)
}

func respondGenerationErr(ctx context.Context, rw http.ResponseWriter, err error) {
	var aerr *ai.Error
	if !errors.As(err, &aerr) {
		respondStoreErr(ctx, rw, err)
		return
	}

	status := http.StatusInternalServerError
	switch aerr.Kind {
	case ai.KindRateLimited:
		status = http.StatusTooManyRequests
	case ai.KindQuotaExhausted:
		status = http.StatusPaymentRequired
	}
	respond(ctx, rw, status, errorResponse{Error: aerr.Error()})
}
