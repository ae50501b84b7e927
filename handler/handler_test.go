package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	tekio "github.com/tekio-be/leads"
	"github.com/tekio-be/leads/ai"
	"github.com/tekio-be/leads/mail"
	"github.com/tekio-be/leads/notify"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const leadID = "0b7f3d9a-7a0e-4c55-a0c4-2d0f8f8b1e01"

type MockIntake struct{ mock.Mock }

func (m *MockIntake) CreateLead(ctx context.Context, newLead tekio.NewLead) (tekio.Lead, error) {
	args := m.Called(ctx, newLead)
	return args.Get(0).(tekio.Lead), args.Error(1)
}

type MockAdmin struct{ mock.Mock }

func (m *MockAdmin) List(ctx context.Context, filter tekio.LeadFilter) ([]tekio.Lead, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]tekio.Lead), args.Error(1)
}

func (m *MockAdmin) Get(ctx context.Context, id string) (tekio.Lead, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(tekio.Lead), args.Error(1)
}

func (m *MockAdmin) UpdateStatus(ctx context.Context, id string, status tekio.Status) (tekio.Lead, error) {
	args := m.Called(ctx, id, status)
	return args.Get(0).(tekio.Lead), args.Error(1)
}

func (m *MockAdmin) UpdateNotes(ctx context.Context, id string, notes string) (tekio.Lead, error) {
	args := m.Called(ctx, id, notes)
	return args.Get(0).(tekio.Lead), args.Error(1)
}

func (m *MockAdmin) UpdateAISuggestion(ctx context.Context, id string, suggestion string) (tekio.Lead, error) {
	args := m.Called(ctx, id, suggestion)
	return args.Get(0).(tekio.Lead), args.Error(1)
}

func (m *MockAdmin) GenerateReply(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) Send(ctx context.Context, lead mail.LeadNotification) error {
	return m.Called(ctx, lead).Error(0)
}

type MockGenerator struct{ mock.Mock }

func (m *MockGenerator) GenerateReply(ctx context.Context, lead tekio.Lead) (string, error) {
	args := m.Called(ctx, lead)
	return args.String(0), args.Error(1)
}

type MockDispatcher struct{ mock.Mock }

func (m *MockDispatcher) Go(payload notify.Payload) {
	m.Called(payload)
}

type fixture struct {
	intake     *MockIntake
	admin      *MockAdmin
	notifier   *MockNotifier
	generator  *MockGenerator
	dispatcher *MockDispatcher
	router     chi.Router
}

func newFixture() *fixture {
	f := &fixture{
		intake:     new(MockIntake),
		admin:      new(MockAdmin),
		notifier:   new(MockNotifier),
		generator:  new(MockGenerator),
		dispatcher: new(MockDispatcher),
	}

	log := otelzap.New(zap.NewNop()).Sugar()
	f.router = chi.NewRouter()
	Register(f.router,
		NewLeadHandler(f.intake, f.admin, log),
		NewFunctionHandler(f.notifier, f.generator, f.dispatcher, log),
	)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func sampleLead() tekio.Lead {
	now := time.Date(2026, 5, 4, 8, 15, 0, 0, time.UTC)
	return tekio.Lead{
		ID:        leadID,
		Email:     "a@b.be",
		Source:    "audit_page",
		Language:  tekio.LanguageFR,
		Status:    tekio.StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreate_IgnoresStatusAndReturnsCreated(t *testing.T) {
	f := newFixture()
	f.intake.On("CreateLead", mock.Anything, mock.MatchedBy(func(nl tekio.NewLead) bool {
		return nl.Email == "a@b.be" && nl.Source == "audit_page" && nl.CompanyName == nil
	})).Return(sampleLead(), nil)

	rec := f.do(http.MethodPost, "/leads",
		`{"email":"a@b.be","language":"FR","source":"audit_page","status":"won"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "new", body["status"])
	assert.Contains(t, body, "company_name")
	assert.Nil(t, body["company_name"])
}

func TestCreate_ValidationError(t *testing.T) {
	f := newFixture()
	f.intake.On("CreateLead", mock.Anything, mock.Anything).
		Return(tekio.Lead{}, tekio.NewValidationError("email", "is invalid"))

	rec := f.do(http.MethodPost, "/leads", `{"email":"nope","language":"FR","source":"home"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"email"`)
}

func TestCreate_StoreError(t *testing.T) {
	f := newFixture()
	f.intake.On("CreateLead", mock.Anything, mock.Anything).
		Return(tekio.Lead{}, &tekio.StoreError{Op: "create", Err: errors.New("connection refused")})

	rec := f.do(http.MethodPost, "/leads", `{"email":"a@b.be","language":"FR","source":"home"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestCreate_MalformedBody(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/leads", `{"email":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.intake.AssertNotCalled(t, "CreateLead", mock.Anything, mock.Anything)
}

func TestList_StatusFilter(t *testing.T) {
	f := newFixture()
	f.admin.On("List", mock.Anything, mock.MatchedBy(func(filter tekio.LeadFilter) bool {
		return filter.Status != nil && *filter.Status == tekio.StatusWon
	})).Return([]tekio.Lead{}, nil)
	f.admin.On("List", mock.Anything, tekio.LeadFilter{}).Return([]tekio.Lead{sampleLead()}, nil)

	rec := f.do(http.MethodGet, "/admin/leads?status=won", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = f.do(http.MethodGet, "/admin/leads?status=all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), leadID)
}

func TestGetByID(t *testing.T) {
	f := newFixture()
	f.admin.On("Get", mock.Anything, leadID).Return(sampleLead(), nil)
	missing := "9d2c1c6e-3d43-4b8e-9bb4-7a0f5b7e0c11"
	f.admin.On("Get", mock.Anything, missing).
		Return(tekio.Lead{}, &tekio.StoreError{Op: "querybyid", Err: tekio.ErrLeadNotFound})

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/admin/leads/"+leadID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/admin/leads/"+missing, "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/admin/leads/not-a-uuid", "").Code)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture()
	won := sampleLead()
	won.Status = tekio.StatusWon
	f.admin.On("UpdateStatus", mock.Anything, leadID, tekio.StatusWon).Return(won, nil)
	f.admin.On("UpdateStatus", mock.Anything, leadID, tekio.Status("archived")).
		Return(tekio.Lead{}, tekio.NewValidationError("status", `unknown status "archived"`))

	rec := f.do(http.MethodPatch, "/admin/leads/"+leadID+"/status", `{"status":"won"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"won"`)

	rec = f.do(http.MethodPatch, "/admin/leads/"+leadID+"/status", `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateNotesAndSuggestion(t *testing.T) {
	f := newFixture()
	f.admin.On("UpdateNotes", mock.Anything, leadID, "call back monday").Return(sampleLead(), nil)
	f.admin.On("UpdateAISuggestion", mock.Anything, leadID, "Dear ...").
		Return(tekio.Lead{}, &tekio.StoreError{Op: "update", Err: tekio.ErrInvalidLead})

	rec := f.do(http.MethodPatch, "/admin/leads/"+leadID+"/notes", `{"notes":"call back monday"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPatch, "/admin/leads/"+leadID+"/ai-suggestion", `{"ai_suggestion":"Dear ..."}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminGenerateReply(t *testing.T) {
	f := newFixture()
	f.admin.On("GenerateReply", mock.Anything, leadID).Return("Summary: ...", nil)

	rec := f.do(http.MethodPost, "/admin/leads/"+leadID+"/reply", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"Summary: ..."}`, rec.Body.String())
}

func TestGenerateLeadReply_MapsFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"rate limited", &ai.Error{Kind: ai.KindRateLimited, Message: "Rate limit exceeded. Please try again later."},
			http.StatusTooManyRequests, `{"error":"Rate limit exceeded. Please try again later."}`},
		{"quota exhausted", &ai.Error{Kind: ai.KindQuotaExhausted, Message: "AI credits exhausted. Please add credits to continue."},
			http.StatusPaymentRequired, `{"error":"AI credits exhausted. Please add credits to continue."}`},
		{"generic", &ai.Error{Kind: ai.KindGeneric, Message: "AI gateway error: 500"},
			http.StatusInternalServerError, `{"error":"AI gateway error: 500"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.generator.On("GenerateReply", mock.Anything, mock.Anything).Return("", tt.err)

			rec := f.do(http.MethodPost, "/functions/generate-lead-reply",
				`{"lead":{"email":"a@b.be","source":"home","language":"EN"}}`)

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestGenerateLeadReply_Success(t *testing.T) {
	f := newFixture()
	f.generator.On("GenerateReply", mock.Anything, mock.MatchedBy(func(l tekio.Lead) bool {
		return l.Email == "a@b.be" && l.Language == tekio.LanguageEN
	})).Return("Dear ...", nil)

	rec := f.do(http.MethodPost, "/functions/generate-lead-reply",
		`{"lead":{"email":"a@b.be","source":"home","language":"EN"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"Dear ..."}`, rec.Body.String())
}

func TestSendLeadNotification(t *testing.T) {
	f := newFixture()
	f.notifier.On("Send", mock.Anything, mock.MatchedBy(func(n mail.LeadNotification) bool {
		return n.Email == "a@b.be"
	})).Return(nil)
	f.notifier.On("Send", mock.Anything, mock.MatchedBy(func(n mail.LeadNotification) bool {
		return n.Email == "down@b.be"
	})).Return(mail.ErrNotConfigured)

	rec := f.do(http.MethodPost, "/functions/send-lead-notification", `{"email":"a@b.be","source":"home","language":"FR"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/functions/send-lead-notification", `{"email":"down@b.be","source":"home","language":"FR"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"SMTP is not configured"}`, rec.Body.String())
}

func TestSubmitCTA(t *testing.T) {
	f := newFixture()
	f.dispatcher.On("Go", mock.MatchedBy(func(p notify.Payload) bool {
		return p.Type == notify.TypeAudit && p.Source == "home_hero" &&
			p.Message != nil && *p.Message == "Audit gratuit demandé depuis le CTA"
	})).Return()

	rec := f.do(http.MethodPost, "/cta/audit", `{"source":"home_hero","email":"a@b.be"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	f.dispatcher.AssertNumberOfCalls(t, "Go", 1)

	rec = f.do(http.MethodPost, "/cta/newsletter", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	f.dispatcher.AssertNumberOfCalls(t, "Go", 1)
}

func TestSubmitCTA_EmptyBodyUsesDefaults(t *testing.T) {
	f := newFixture()
	f.dispatcher.On("Go", mock.MatchedBy(func(p notify.Payload) bool {
		return p.Type == notify.TypeAudit && p.Source == "cta_audit" &&
			p.Message != nil && *p.Message == "Audit gratuit demandé depuis le CTA"
	})).Return()
	f.dispatcher.On("Go", mock.MatchedBy(func(p notify.Payload) bool {
		return p.Type == notify.TypeExpert && p.Source == "cta_expert" &&
			p.Message != nil && *p.Message == "Demande pour parler à un expert Tekio"
	})).Return()

	rec := f.do(http.MethodPost, "/cta/audit", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(http.MethodPost, "/cta/expert", "  \n")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	f.dispatcher.AssertNumberOfCalls(t, "Go", 2)
}

func TestSubmitCTA_MalformedBody(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/cta/audit", `{"source":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	f.dispatcher.AssertNotCalled(t, "Go", mock.Anything)
}

func TestCreate_EmptyBody(t *testing.T) {
	f := newFixture()

	rec := f.do(http.MethodPost, "/leads", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body is empty")
	f.intake.AssertNotCalled(t, "CreateLead", mock.Anything, mock.Anything)
}

func TestReadiness(t *testing.T) {
	log := otelzap.New(zap.NewNop()).Sugar()

	ok := NewHealthHandler(func(context.Context) error { return nil }, log)
	rec := httptest.NewRecorder()
	ok.Readiness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := NewHealthHandler(func(context.Context) error { return errors.New("dial tcp: refused") }, log)
	rec = httptest.NewRecorder()
	down.Readiness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
