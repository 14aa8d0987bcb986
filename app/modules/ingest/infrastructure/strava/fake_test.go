package stravaclient

import (
	"context"
	"sync"
)

type FakeMetrics struct {
	mu          sync.Mutex
	requests    []string
	statuses    []int
	rateLimited []string
}

func (f *FakeMetrics) RecordExternalRequest(_ context.Context, endpoint string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, endpoint)
	f.statuses = append(f.statuses, status)
}

func (f *FakeMetrics) RecordRateLimited(_ context.Context, endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rateLimited = append(f.rateLimited, endpoint)
}
