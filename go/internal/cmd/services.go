package main

import (
	"database/sql"

	"github.com/jonboulle/clockwork"

	"github.com/tableforge/tableforge/go/internal/campaigns"
	"github.com/tableforge/tableforge/go/internal/gamestate"
	"github.com/tableforge/tableforge/go/internal/postgres/db"
	"github.com/tableforge/tableforge/go/internal/session"
	"github.com/tableforge/tableforge/go/internal/users"
)

type Services struct {
	Session *session.Service
	Handler *session.Handler
}

func setupServices(database *sql.DB, clock clockwork.Clock, cfg *Config, bridge *session.Bridge) *Services {
	// Database layer → Repository layer → Service layer
	queries := db.New(database)
	userRepo := users.NewRepository(queries)
	campaignRepo := campaigns.NewRepository(queries)
	stateRepo := gamestate.NewRepository(database, clock)

	sessionService := session.NewService(cfg.sessionConfig(), userRepo, campaignRepo, stateRepo, bridge)

	return &Services{
		Session: sessionService,
		Handler: session.NewHandler(sessionService),
	}
}
