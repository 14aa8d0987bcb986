package teamintegrationtests

import (
	"context"
	"testing"

	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	teamservice "github.com/Black-And-White-Club/segment-ctf/app/modules/team/application"
	teamdb "github.com/Black-And-White-Club/segment-ctf/app/modules/team/infrastructure/repositories"
	"github.com/Black-And-White-Club/segment-ctf/integration_tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(env *testutils.TestEnvironment) (*teamservice.TeamService, teamdb.Repository) {
	cfg := env.Config()
	obs := testutils.Observability()
	repo := teamdb.NewRepository(env.DB)
	return teamservice.NewTeamService(repo, cfg.Scoring.Teams, cfg.Scoring.NeutralOwner, nil, obs.Logger, obs.Metrics, obs.Tracer, env.DB), repo
}

func TestSeedOwnership_WritesRosterOwners(t *testing.T) {
	env := testutils.GetEnvironment(t)
	ctx := context.Background()
	svc, repo := newService(env)

	roster, err := ingestdomain.NewRoster(
		[]ingestdomain.Group{
			{Team: "North", Segments: []int64{1, 2}},
			{Team: "South", Segments: []int64{3}},
		},
		[]ingestdomain.Challenge{
			{SegmentID: 9, Start: 1751864400, End: 1752454800, Owner: "Neutral"},
		},
	)
	require.NoError(t, err)

	n, err := svc.SeedOwnership(ctx, roster)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	owners, err := repo.ListOwners(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "North", 2: "North", 3: "South", 9: "Neutral"}, owners)

	// Seeding again is an upsert.
	n, err = svc.SeedOwnership(ctx, roster)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestAssignAthlete(t *testing.T) {
	env := testutils.GetEnvironment(t)
	ctx := context.Background()
	svc, repo := newService(env)

	require.NoError(t, svc.AssignAthlete(ctx, 77, "North"))
	require.NoError(t, svc.AssignAthlete(ctx, 77, "South"))

	err := svc.AssignAthlete(ctx, 78, "Neutral")
	assert.ErrorIs(t, err, teamservice.ErrUnknownTeam)

	teams, err := repo.ListAthleteTeams(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{77: "South"}, teams)
}
