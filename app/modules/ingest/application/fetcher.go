package ingestservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	effortdb "github.com/Black-And-White-Club/segment-ctf/app/modules/effort/infrastructure/repositories"
	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	stravaclient "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/infrastructure/strava"
	"github.com/Black-And-White-Club/segment-ctf/app/shared/clock"
	"github.com/uptrace/bun"
)

var _ EffortFetcher = (*Fetcher)(nil)

// FetcherConfig paces calls to the provider.
type FetcherConfig struct {
	PageSize            int
	RequestDelay        time.Duration
	RateLimitCooldown   time.Duration
	MaxRateLimitRetries int
}

// Fetcher pages an athlete's activities, keeps efforts on segments valid at
// each activity's start time and stores them with insert-if-absent semantics.
type Fetcher struct {
	api    StravaAPI
	repo   effortdb.Repository
	roster *ingestdomain.Roster
	cfg    FetcherConfig
	clock  clock.Clock
	logger *slog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(
	api StravaAPI,
	repo effortdb.Repository,
	roster *ingestdomain.Roster,
	cfg FetcherConfig,
	clk clock.Clock,
	logger *slog.Logger,
) *Fetcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{api: api, repo: repo, roster: roster, cfg: cfg, clock: clk, logger: logger}
}

type effortKey struct {
	segmentID  int64
	activityID int64
}

// FetchAndStore buffers the athlete's matching efforts and writes them once
// all pages were read. Transient failures return an error wrapping
// ErrFetchAborted with nothing written. Storage errors and cancellation are
// returned unwrapped.
func (f *Fetcher) FetchAndStore(
	ctx context.Context,
	db bun.IDB,
	token string,
	athlete ingestdomain.Athlete,
	window ingestdomain.Window,
	cache *ingestdomain.SegmentCache,
) (ingestdomain.FetchResult, error) {
	var result ingestdomain.FetchResult
	var buffer []effortdb.SegmentEffort
	seen := make(map[effortKey]struct{})

	for page := 1; ; page++ {
		var activities []stravaclient.Activity
		err := f.call(ctx, stravaclient.EndpointActivities, func(ctx context.Context) error {
			var err error
			activities, err = f.api.ListActivities(ctx, token, stravaclient.ActivityQuery{
				After:             window.After,
				Before:            window.Before,
				Page:              page,
				PerPage:           f.cfg.PageSize,
				IncludeAllEfforts: true,
			})
			return err
		})
		if err != nil {
			return result, f.abort(ctx, athlete, fmt.Sprintf("list activities page %d", page), err)
		}
		result.Pages++

		for _, activity := range activities {
			result.Activities++

			efforts := activity.SegmentEfforts
			if len(efforts) == 0 {
				detail, err := f.activityDetail(ctx, token, activity.ID)
				if err != nil {
					return result, f.abort(ctx, athlete, fmt.Sprintf("activity %d detail", activity.ID), err)
				}
				result.DetailFetches++
				efforts = detail.SegmentEfforts
			}
			if len(efforts) == 0 {
				continue
			}

			started, err := activity.StartTime()
			if err != nil {
				return result, f.abort(ctx, athlete, "parse activity", err)
			}
			valid := f.roster.Resolve(started.Unix())

			for _, effort := range efforts {
				if !valid.Contains(effort.Segment.ID) {
					continue
				}
				key := effortKey{segmentID: effort.Segment.ID, activityID: activity.ID}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}

				effortStart, err := effort.StartTime(started)
				if err != nil {
					return result, f.abort(ctx, athlete, "parse effort", err)
				}

				name := effort.Segment.Name
				if name == "" {
					name, err = f.segmentName(ctx, token, effort.Segment.ID, cache)
					if err != nil {
						return result, err
					}
				} else {
					cache.Store(effort.Segment.ID, name)
				}

				buffer = append(buffer, effortdb.SegmentEffort{
					AthleteID:      athlete.ID,
					AthleteName:    athlete.Name,
					SegmentID:      effort.Segment.ID,
					SegmentName:    name,
					ActivityID:     activity.ID,
					ElapsedTime:    effort.ElapsedTime,
					StartDateLocal: effortStart,
				})
			}
		}

		if len(activities) < f.cfg.PageSize {
			break
		}
	}

	result.MatchedEfforts = len(buffer)
	inserted, err := f.repo.InsertIgnore(ctx, db, buffer)
	if err != nil {
		return result, fmt.Errorf("failed to store efforts for athlete %d: %w", athlete.ID, err)
	}
	result.Inserted = inserted

	f.logger.InfoContext(ctx, "Athlete feed ingested",
		slog.Int64("athlete_id", athlete.ID),
		slog.String("athlete_name", athlete.Name),
		slog.Int("pages", result.Pages),
		slog.Int("activities", result.Activities),
		slog.Int("matched", result.MatchedEfforts),
		slog.Int64("inserted", result.Inserted),
	)
	return result, nil
}

func (f *Fetcher) activityDetail(ctx context.Context, token string, activityID int64) (*stravaclient.Activity, error) {
	var detail *stravaclient.Activity
	err := f.call(ctx, stravaclient.EndpointActivity, func(ctx context.Context) error {
		var err error
		detail, err = f.api.GetActivity(ctx, token, activityID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return &stravaclient.Activity{ID: activityID}, nil
	}
	return detail, nil
}

// segmentName resolves a name through the run cache. Lookup failures leave
// the name empty; only cancellation is returned.
func (f *Fetcher) segmentName(ctx context.Context, token string, segmentID int64, cache *ingestdomain.SegmentCache) (string, error) {
	if name, seen := cache.Lookup(segmentID); seen {
		return name, nil
	}

	var segment *stravaclient.Segment
	err := f.call(ctx, stravaclient.EndpointSegment, func(ctx context.Context) error {
		var err error
		segment, err = f.api.GetSegment(ctx, token, segmentID)
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		f.logger.WarnContext(ctx, "Segment lookup failed",
			slog.Int64("segment_id", segmentID),
			slog.Any("error", err),
		)
		cache.MarkMissing(segmentID)
		return "", nil
	}
	if segment == nil {
		cache.MarkMissing(segmentID)
		return "", nil
	}
	cache.Store(segmentID, segment.Name)
	return segment.Name, nil
}

// call runs one provider request, waits the request delay after it and
// retries the same request after a cooldown while it is rate limited.
func (f *Fetcher) call(ctx context.Context, endpoint string, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if sleepErr := clock.Sleep(ctx, f.clock, f.cfg.RequestDelay); sleepErr != nil {
			return sleepErr
		}
		if err == nil {
			return nil
		}
		if !errors.Is(err, stravaclient.ErrRateLimited) {
			return err
		}
		if attempt >= f.cfg.MaxRateLimitRetries {
			return fmt.Errorf("%w: %s after %d retries", ErrRateLimitExhausted, endpoint, attempt)
		}

		f.logger.WarnContext(ctx, "Rate limited, cooling down",
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt+1),
			slog.Duration("cooldown", f.cfg.RateLimitCooldown),
		)
		if err := clock.Sleep(ctx, f.clock, f.cfg.RateLimitCooldown); err != nil {
			return err
		}
	}
}

func (f *Fetcher) abort(ctx context.Context, athlete ingestdomain.Athlete, stage string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: athlete %d: %s: %w", ErrFetchAborted, athlete.ID, stage, err)
}
