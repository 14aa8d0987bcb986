package ingestservice

import (
	"context"
	"sync"

	credentialdb "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/infrastructure/repositories"
	effortdb "github.com/Black-And-White-Club/segment-ctf/app/modules/effort/infrastructure/repositories"
	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	stravaclient "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/infrastructure/strava"
	"github.com/uptrace/bun"
)

// FakeStravaAPI records every call in order.
type FakeStravaAPI struct {
	ListActivitiesFunc func(ctx context.Context, token string, q stravaclient.ActivityQuery) ([]stravaclient.Activity, error)
	GetActivityFunc    func(ctx context.Context, token string, activityID int64) (*stravaclient.Activity, error)
	GetSegmentFunc     func(ctx context.Context, token string, segmentID int64) (*stravaclient.Segment, error)

	mu    sync.Mutex
	trace []string
	pages []int
}

func (f *FakeStravaAPI) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeStravaAPI) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trace...)
}

// Pages returns the page numbers requested from the activity list.
func (f *FakeStravaAPI) Pages() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.pages...)
}

func (f *FakeStravaAPI) ListActivities(ctx context.Context, token string, q stravaclient.ActivityQuery) ([]stravaclient.Activity, error) {
	f.record("ListActivities")
	f.mu.Lock()
	f.pages = append(f.pages, q.Page)
	f.mu.Unlock()
	if f.ListActivitiesFunc != nil {
		return f.ListActivitiesFunc(ctx, token, q)
	}
	return nil, nil
}

func (f *FakeStravaAPI) GetActivity(ctx context.Context, token string, activityID int64) (*stravaclient.Activity, error) {
	f.record("GetActivity")
	if f.GetActivityFunc != nil {
		return f.GetActivityFunc(ctx, token, activityID)
	}
	return &stravaclient.Activity{ID: activityID}, nil
}

func (f *FakeStravaAPI) GetSegment(ctx context.Context, token string, segmentID int64) (*stravaclient.Segment, error) {
	f.record("GetSegment")
	if f.GetSegmentFunc != nil {
		return f.GetSegmentFunc(ctx, token, segmentID)
	}
	return &stravaclient.Segment{ID: segmentID}, nil
}

// FakeEffortRepository keeps inserted efforts in memory keyed like the real table.
type FakeEffortRepository struct {
	InsertIgnoreFunc func(ctx context.Context, db bun.IDB, efforts []effortdb.SegmentEffort) (int64, error)

	mu      sync.Mutex
	stored  []effortdb.SegmentEffort
	keys    map[[3]int64]struct{}
	inserts int
}

func (f *FakeEffortRepository) InsertIgnore(ctx context.Context, db bun.IDB, efforts []effortdb.SegmentEffort) (int64, error) {
	f.mu.Lock()
	f.inserts++
	f.mu.Unlock()
	if f.InsertIgnoreFunc != nil {
		return f.InsertIgnoreFunc(ctx, db, efforts)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys == nil {
		f.keys = make(map[[3]int64]struct{})
	}
	var n int64
	for _, e := range efforts {
		key := [3]int64{e.AthleteID, e.SegmentID, e.ActivityID}
		if _, ok := f.keys[key]; ok {
			continue
		}
		f.keys[key] = struct{}{}
		f.stored = append(f.stored, e)
		n++
	}
	return n, nil
}

func (f *FakeEffortRepository) Stored() []effortdb.SegmentEffort {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]effortdb.SegmentEffort(nil), f.stored...)
}

func (f *FakeEffortRepository) Inserts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts
}

func (f *FakeEffortRepository) ListAll(ctx context.Context, db bun.IDB) ([]effortdb.SegmentEffort, error) {
	return f.Stored(), nil
}

func (f *FakeEffortRepository) ListSegments(ctx context.Context, db bun.IDB) ([]effortdb.SegmentSummary, error) {
	return nil, nil
}

func (f *FakeEffortRepository) BestEfforts(ctx context.Context, db bun.IDB, segmentID int64) ([]effortdb.BestEffort, error) {
	return nil, nil
}

func (f *FakeEffortRepository) Count(ctx context.Context, db bun.IDB) (int, error) {
	return len(f.Stored()), nil
}

// FakeCredentialRepository serves a fixed credential list.
type FakeCredentialRepository struct {
	ListAllFunc func(ctx context.Context, db bun.IDB) ([]credentialdb.Credential, error)
}

func (f *FakeCredentialRepository) ListAll(ctx context.Context, db bun.IDB) ([]credentialdb.Credential, error) {
	if f.ListAllFunc != nil {
		return f.ListAllFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeCredentialRepository) GetByAthleteID(ctx context.Context, db bun.IDB, athleteID int64) (*credentialdb.Credential, error) {
	return nil, credentialdb.ErrNotFound
}

func (f *FakeCredentialRepository) UpdateTokens(ctx context.Context, db bun.IDB, athleteID int64, accessToken, refreshToken string, expiresAt int64) error {
	return nil
}

func (f *FakeCredentialRepository) Upsert(ctx context.Context, db bun.IDB, cred *credentialdb.Credential) error {
	return nil
}

// FakeRefresher returns a token derived from the athlete unless overridden.
type FakeRefresher struct {
	EnsureFreshFunc func(ctx context.Context, db bun.IDB, cred credentialdb.Credential) (string, error)
}

func (f *FakeRefresher) EnsureFresh(ctx context.Context, db bun.IDB, cred credentialdb.Credential) (string, error) {
	if f.EnsureFreshFunc != nil {
		return f.EnsureFreshFunc(ctx, db, cred)
	}
	return cred.AccessToken, nil
}

// FakeFetcher records the athletes it was asked to fetch.
type FakeFetcher struct {
	FetchAndStoreFunc func(ctx context.Context, db bun.IDB, token string, athlete ingestdomain.Athlete, window ingestdomain.Window, cache *ingestdomain.SegmentCache) (ingestdomain.FetchResult, error)

	mu     sync.Mutex
	caches []*ingestdomain.SegmentCache
	calls  []int64
}

func (f *FakeFetcher) FetchAndStore(ctx context.Context, db bun.IDB, token string, athlete ingestdomain.Athlete, window ingestdomain.Window, cache *ingestdomain.SegmentCache) (ingestdomain.FetchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, athlete.ID)
	f.caches = append(f.caches, cache)
	f.mu.Unlock()
	if f.FetchAndStoreFunc != nil {
		return f.FetchAndStoreFunc(ctx, db, token, athlete, window, cache)
	}
	return ingestdomain.FetchResult{}, nil
}

func (f *FakeFetcher) Calls() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.calls...)
}

// FakePublisher captures published summaries.
type FakePublisher struct {
	PublishRunCompletedFunc func(ctx context.Context, summary ingestdomain.RunSummary) error

	mu        sync.Mutex
	published []ingestdomain.RunSummary
}

func (f *FakePublisher) PublishRunCompleted(ctx context.Context, summary ingestdomain.RunSummary) error {
	f.mu.Lock()
	f.published = append(f.published, summary)
	f.mu.Unlock()
	if f.PublishRunCompletedFunc != nil {
		return f.PublishRunCompletedFunc(ctx, summary)
	}
	return nil
}

func (f *FakePublisher) Published() []ingestdomain.RunSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ingestdomain.RunSummary(nil), f.published...)
}
