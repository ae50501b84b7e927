package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tekio "github.com/tekio-be/leads"
	"go.uber.org/zap"
)

func testLead() tekio.Lead {
	company := "Acme SRL"
	return tekio.Lead{
		ID:          "0b7f3d9a-7a0e-4c55-a0c4-2d0f8f8b1e01",
		Email:       "a@b.be",
		Source:      "audit_page",
		Language:    tekio.LanguageNL,
		CompanyName: &company,
		Status:      tekio.StatusNew,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, zap.NewNop().Sugar())
}

func TestGenerateReply_Success(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Summary: ..."}}]}`))
	})

	reply, err := client.GenerateReply(context.Background(), testLead())

	require.NoError(t, err)
	assert.Equal(t, "Summary: ...", reply)
	assert.Equal(t, DefaultModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Silver (€49/user/month)")
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Contains(t, got.Messages[1].Content, "email reply in Dutch")
	assert.Contains(t, got.Messages[1].Content, "- Company: Acme SRL")
	assert.Contains(t, got.Messages[1].Content, "- Contact: Not provided")
	assert.Contains(t, got.Messages[1].Content, "- Message: No message provided")
}

func TestGenerateReply_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   Kind
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, KindRateLimited},
		{"quota exhausted", http.StatusPaymentRequired, `{"error":"no credits"}`, KindQuotaExhausted},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, KindGeneric},
		{"empty content", http.StatusOK, `{"choices":[]}`, KindGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			reply, err := client.GenerateReply(context.Background(), testLead())

			require.Error(t, err)
			assert.Empty(t, reply)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestGenerateReply_RateLimitMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.GenerateReply(context.Background(), testLead())

	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Rate limit exceeded. Please try again later.", aerr.Error())
}

func TestGenerateReply_MissingAPIKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, zap.NewNop().Sugar())
	_, err := client.GenerateReply(context.Background(), testLead())

	assert.Equal(t, KindGeneric, KindOf(err))
	assert.False(t, called)
}

func TestGenerateReply_Unreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, zap.NewNop().Sugar())
	_, err := client.GenerateReply(context.Background(), testLead())

	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KindGeneric, aerr.Kind)
	assert.NotNil(t, aerr.Unwrap())
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "French", LanguageName(tekio.LanguageFR))
	assert.Equal(t, "Dutch", LanguageName(tekio.LanguageNL))
	assert.Equal(t, "English", LanguageName(tekio.LanguageEN))
	assert.Equal(t, "French", LanguageName("DE"))
}
