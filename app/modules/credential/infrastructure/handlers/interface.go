package credentialhandlers

import "net/http"

// Handlers serves the OAuth onboarding endpoints.
type Handlers interface {
	HandleAuthorize(w http.ResponseWriter, r *http.Request)
	HandleCallback(w http.ResponseWriter, r *http.Request)
}
