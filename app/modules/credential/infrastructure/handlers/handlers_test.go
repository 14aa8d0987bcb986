package credentialhandlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	credentialservice "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/application"
	credentialdb "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/infrastructure/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialHandlers_HandleAuthorize(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("redirects to provider", func(t *testing.T) {
		svc := &FakeService{AuthorizeURLFunc: func(ctx context.Context) (string, error) {
			return "https://provider.example/oauth/authorize?state=s", nil
		}}
		rec := httptest.NewRecorder()
		NewCredentialHandlers(svc, logger).HandleAuthorize(rec, httptest.NewRequest(http.MethodGet, "/auth/authorize", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://provider.example/oauth/authorize?state=s", rec.Header().Get("Location"))
	})

	t.Run("service error", func(t *testing.T) {
		svc := &FakeService{AuthorizeURLFunc: func(ctx context.Context) (string, error) {
			return "", errors.New("boom")
		}}
		rec := httptest.NewRecorder()
		NewCredentialHandlers(svc, logger).HandleAuthorize(rec, httptest.NewRequest(http.MethodGet, "/auth/authorize", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestCredentialHandlers_HandleCallback(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		target     string
		err        error
		wantStatus int
		wantCalled bool
	}{
		{name: "success", target: "/auth/callback?state=s&code=c", wantStatus: http.StatusOK, wantCalled: true},
		{name: "athlete declined", target: "/auth/callback?error=access_denied&state=s", wantStatus: http.StatusBadRequest},
		{name: "bad state", target: "/auth/callback?state=x&code=c", err: fmt.Errorf("op: %w", credentialservice.ErrInvalidState), wantStatus: http.StatusBadRequest, wantCalled: true},
		{name: "missing code", target: "/auth/callback?state=s", err: credentialservice.ErrMissingCode, wantStatus: http.StatusBadRequest, wantCalled: true},
		{name: "exchange failed", target: "/auth/callback?state=s&code=c", err: credentialservice.ErrExchangeFailed, wantStatus: http.StatusBadGateway, wantCalled: true},
		{name: "storage failed", target: "/auth/callback?state=s&code=c", err: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &FakeService{CompleteAuthorizationFunc: func(ctx context.Context, state, code string) (*credentialdb.Credential, error) {
				called = true
				if tt.err != nil {
					return nil, tt.err
				}
				assert.Equal(t, "s", state)
				assert.Equal(t, "c", code)
				return &credentialdb.Credential{AthleteID: 42, AthleteName: "Ada Lovelace"}, nil
			}}

			rec := httptest.NewRecorder()
			NewCredentialHandlers(svc, logger).HandleCallback(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalled, called)
			if tt.wantStatus == http.StatusOK {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "ok", body["status"])
				assert.Equal(t, float64(42), body["athlete_id"])
				assert.Equal(t, "Ada Lovelace", body["athlete_name"])
			}
		})
	}
}
