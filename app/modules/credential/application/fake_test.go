package credentialservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	credentialdb "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/infrastructure/repositories"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
	"golang.org/x/oauth2"
)

// FakeRepository is a programmable credentialdb.Repository.
type FakeRepository struct {
	ListAllFunc        func(ctx context.Context, db bun.IDB) ([]credentialdb.Credential, error)
	GetByAthleteIDFunc func(ctx context.Context, db bun.IDB, athleteID int64) (*credentialdb.Credential, error)
	UpdateTokensFunc   func(ctx context.Context, db bun.IDB, athleteID int64, accessToken, refreshToken string, expiresAt int64) error
	UpsertFunc         func(ctx context.Context, db bun.IDB, cred *credentialdb.Credential) error

	mu    sync.Mutex
	trace []string
}

func (f *FakeRepository) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeRepository) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trace...)
}

func (f *FakeRepository) ListAll(ctx context.Context, db bun.IDB) ([]credentialdb.Credential, error) {
	f.record("ListAll")
	if f.ListAllFunc != nil {
		return f.ListAllFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeRepository) GetByAthleteID(ctx context.Context, db bun.IDB, athleteID int64) (*credentialdb.Credential, error) {
	f.record("GetByAthleteID")
	if f.GetByAthleteIDFunc != nil {
		return f.GetByAthleteIDFunc(ctx, db, athleteID)
	}
	return nil, credentialdb.ErrNotFound
}

func (f *FakeRepository) UpdateTokens(ctx context.Context, db bun.IDB, athleteID int64, accessToken, refreshToken string, expiresAt int64) error {
	f.record("UpdateTokens")
	if f.UpdateTokensFunc != nil {
		return f.UpdateTokensFunc(ctx, db, athleteID, accessToken, refreshToken, expiresAt)
	}
	return nil
}

func (f *FakeRepository) Upsert(ctx context.Context, db bun.IDB, cred *credentialdb.Credential) error {
	f.record("Upsert")
	if f.UpsertFunc != nil {
		return f.UpsertFunc(ctx, db, cred)
	}
	return nil
}

// FakeStateProvider is a programmable credentialstate.Provider.
type FakeStateProvider struct {
	IssueFunc  func() (string, error)
	VerifyFunc func(token string) error
}

func (f *FakeStateProvider) Issue() (string, error) {
	if f.IssueFunc != nil {
		return f.IssueFunc()
	}
	return "state-token", nil
}

func (f *FakeStateProvider) Verify(token string) error {
	if f.VerifyFunc != nil {
		return f.VerifyFunc(token)
	}
	return nil
}

// fakeTokenServer serves the provider token endpoint with a canned handler.
type fakeTokenServer struct {
	*httptest.Server
	mu    sync.Mutex
	forms []map[string]string
}

func newFakeTokenServer(t *testing.T, respond func(w http.ResponseWriter, form map[string]string)) *fakeTokenServer {
	t.Helper()
	fts := &fakeTokenServer{}
	r := chi.NewRouter()
	r.Post("/oauth/token", func(w http.ResponseWriter, req *http.Request) {
		if err := req.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		form := map[string]string{}
		for k := range req.PostForm {
			form[k] = req.PostForm.Get(k)
		}
		fts.mu.Lock()
		fts.forms = append(fts.forms, form)
		fts.mu.Unlock()
		respond(w, form)
	})
	fts.Server = httptest.NewServer(r)
	t.Cleanup(fts.Close)
	return fts
}

func (f *fakeTokenServer) Forms() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.forms...)
}

func (f *fakeTokenServer) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost/auth/callback",
		Scopes:       []string{"activity:read_all"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.URL + "/oauth/authorize",
			TokenURL:  f.URL + "/oauth/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
