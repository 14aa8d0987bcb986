package credentialhandlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	credentialservice "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/application"
)

// CredentialHandlers implements Handlers.
type CredentialHandlers struct {
	service credentialservice.Service
	logger  *slog.Logger
}

// NewCredentialHandlers creates the onboarding handlers.
func NewCredentialHandlers(service credentialservice.Service, logger *slog.Logger) Handlers {
	return &CredentialHandlers{service: service, logger: logger}
}

// HandleAuthorize redirects the athlete to the provider consent page.
func (h *CredentialHandlers) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authURL, err := h.service.AuthorizeURL(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to build authorize URL", slog.Any("error", err))
		http.Error(w, "authorization unavailable", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback completes the code exchange and stores the credential.
func (h *CredentialHandlers) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if denied := q.Get("error"); denied != "" {
		h.logger.WarnContext(ctx, "Athlete declined authorization", slog.String("reason", denied))
		http.Error(w, "authorization was not granted", http.StatusBadRequest)
		return
	}

	cred, err := h.service.CompleteAuthorization(ctx, q.Get("state"), q.Get("code"))
	if err != nil {
		switch {
		case credentialservice.IsClientError(err):
			h.logger.WarnContext(ctx, "Rejected OAuth callback", slog.Any("error", err))
			http.Error(w, "invalid authorization callback", http.StatusBadRequest)
		case errors.Is(err, credentialservice.ErrExchangeFailed), errors.Is(err, credentialservice.ErrMissingAthlete):
			h.logger.ErrorContext(ctx, "Token exchange failed", slog.Any("error", err))
			http.Error(w, "token exchange failed", http.StatusBadGateway)
		default:
			h.logger.ErrorContext(ctx, "Failed to store credential", slog.Any("error", err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	h.logger.InfoContext(ctx, "Athlete authorized",
		slog.Int64("athlete_id", cred.AthleteID),
		slog.String("athlete_name", cred.AthleteName),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":       "ok",
		"athlete_id":   cred.AthleteID,
		"athlete_name": cred.AthleteName,
	})
}
