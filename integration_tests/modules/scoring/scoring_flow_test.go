package scoringintegrationtests

import (
	"context"
	"testing"
	"time"

	"github.com/Black-And-White-Club/segment-ctf/app/eventbus"
	effortdb "github.com/Black-And-White-Club/segment-ctf/app/modules/effort/infrastructure/repositories"
	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	scoringservice "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/application"
	scoringdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/domain"
	scoringhandlers "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/infrastructure/handlers"
	scoringrouter "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/infrastructure/router"
	teamdb "github.com/Black-And-White-Club/segment-ctf/app/modules/team/infrastructure/repositories"
	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/Black-And-White-Club/segment-ctf/app/shared/clock"
	"github.com/Black-And-White-Club/segment-ctf/integration_tests/testutils"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedWorkedExample stores North 4 vs South 2 on South-owned segment 10.
func seedWorkedExample(t *testing.T, env *testutils.TestEnvironment) {
	t.Helper()
	ctx := context.Background()
	gen := testutils.NewTestDataGenerator(3)

	teams := teamdb.NewRepository(env.DB)
	require.NoError(t, teams.UpsertOwners(ctx, nil, []teamdb.SegmentOwner{{SegmentID: 10, OwnerTeam: "South"}}))
	require.NoError(t, teams.AssignAthlete(ctx, nil, 1, "North"))
	require.NoError(t, teams.AssignAthlete(ctx, nil, 2, "South"))
	require.NoError(t, teams.AssignAthlete(ctx, nil, 3, "North"))

	_, err := effortdb.NewRepository(env.DB).InsertIgnore(ctx, nil, []effortdb.SegmentEffort{
		gen.Effort(1, 10, 100),
		gen.Effort(2, 10, 110),
		gen.Effort(3, 10, 120),
		// Unaffiliated athletes take no rank.
		gen.Effort(4, 10, 90),
	})
	require.NoError(t, err)
}

func newService(env *testutils.TestEnvironment, obs observability.Provider) *scoringservice.ScoringService {
	cfg := env.Config()
	return scoringservice.NewScoringService(
		effortdb.NewRepository(env.DB),
		teamdb.NewRepository(env.DB),
		scoringdomain.Rules{Teams: cfg.Scoring.Teams, NeutralOwner: cfg.Scoring.NeutralOwner},
		clock.RealClock{},
		obs.Logger,
		obs.Metrics,
		obs.Tracer,
	)
}

func TestComputeFlags_WorkedExample(t *testing.T) {
	env := testutils.GetEnvironment(t)
	seedWorkedExample(t, env)

	svc := newService(env, testutils.Observability())
	standings, err := svc.Standings(context.Background())
	require.NoError(t, err)

	assert.Equal(t, scoringdomain.FlagsResult{"North": 2, "South": 0, "StPaul": 0}, standings.Flags)
	require.Len(t, standings.Segments, 1)
	assert.Equal(t, map[string]int{"North": 4, "South": 2, "StPaul": 0}, standings.Segments[0].Points)
	assert.Equal(t, scoringdomain.ResultCaptured, standings.Segments[0].Result)
}

func TestComputeFlags_EmptyDatabase(t *testing.T) {
	env := testutils.GetEnvironment(t)

	flags, err := newService(env, testutils.Observability()).ComputeFlags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scoringdomain.FlagsResult{"North": 0, "South": 0, "StPaul": 0}, flags)
}

func TestRunCompletedOverNATS_RefreshesTeamFlags(t *testing.T) {
	env := testutils.GetEnvironment(t)
	seedWorkedExample(t, env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	obs := testutils.Observability()
	bus, err := eventbus.New(ctx, env.Config().NATS, obs.Logger)
	require.NoError(t, err)
	defer bus.Close()

	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(obs.Logger))
	require.NoError(t, err)
	sr := scoringrouter.NewScoringRouter(obs.Logger, router, bus.Subscriber, obs.Tracer, nil)
	require.NoError(t, sr.Configure(ctx, scoringhandlers.NewScoringHandlers(newService(env, obs), obs.Logger)))

	go func() { _ = router.Run(ctx) }()
	defer sr.Close()

	select {
	case <-router.Running():
	case <-ctx.Done():
		t.Fatal("router did not start")
	}

	publisher := eventbus.NewRunCompletedPublisher(bus.Publisher, obs.Logger)
	require.NoError(t, publisher.PublishRunCompleted(ctx, ingestdomain.RunSummary{RunID: "run-1", Inserted: 4}))

	require.Eventually(t, func() bool {
		return teamFlags(t, obs.Registry, "North") == 2
	}, 20*time.Second, 100*time.Millisecond)
	assert.Equal(t, float64(0), teamFlags(t, obs.Registry, "South"))
}

func teamFlags(t *testing.T, registry *prometheus.Registry, team string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "ctf_team_flags" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "team" && label.GetValue() == team {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	return -1
}
