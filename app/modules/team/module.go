package team

import (
	"log/slog"

	teamservice "github.com/Black-And-White-Club/segment-ctf/app/modules/team/application"
	teamdb "github.com/Black-And-White-Club/segment-ctf/app/modules/team/infrastructure/repositories"
	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/Black-And-White-Club/segment-ctf/config"
	"github.com/uptrace/bun"
)

// Module holds segment ownership and athlete affiliation.
type Module struct {
	Repository teamdb.Repository
	Service    teamservice.Service
}

// NewModule creates the team module. publisher may be nil.
func NewModule(cfg *config.Config, obs observability.Provider, publisher teamservice.StandingsPublisher, db *bun.DB) *Module {
	repo := teamdb.NewRepository(db)
	return &Module{
		Repository: repo,
		Service: teamservice.NewTeamService(
			repo,
			cfg.Scoring.Teams,
			cfg.Scoring.NeutralOwner,
			publisher,
			obs.Logger.With(slog.String("module", "team")),
			obs.Metrics,
			obs.Tracer,
			db,
		),
	}
}
