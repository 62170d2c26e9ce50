package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"threadmirror/internal/migrations"
	"threadmirror/internal/modkit"
	"threadmirror/internal/modkit/module"
	"threadmirror/internal/modkit/repokit"
	"threadmirror/internal/platform/config"
	"threadmirror/internal/platform/logger"
	"threadmirror/internal/platform/migrate"
	"threadmirror/internal/platform/store"

	backfillmod "threadmirror/internal/services/backfill/module"
	queuemod "threadmirror/internal/services/queue/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.Config{
		AppName: "threadmirror",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", true),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	repokit.MustGuard(ctx, st)

	if err := migrate.Run(ctx, st.PG, migrations.Files); err != nil {
		l.Fatal().Err(err).Msg("migrations failed")
	}

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		Log: *l,
	}

	bf := backfillmod.New(deps)
	module.Register(bf.Name(), bf.Ports())

	qm := queuemod.New(deps, module.MustPortsOf[backfillmod.Ports](bf).Runner)
	module.Register(qm.Name(), qm.Ports())

	l.Info().Msg("queue worker started")
	worker := module.MustPortsOf[queuemod.Ports](qm).Worker
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		l.Fatal().Err(err).Msg("queue worker stopped")
	}
	l.Info().Msg("queue worker stopped")
}
