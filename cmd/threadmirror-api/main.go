package main

import (
	"context"

	"threadmirror/internal/modkit/repokit"
	"threadmirror/internal/platform/config"
	"threadmirror/internal/platform/logger"
	phttp "threadmirror/internal/platform/net/http"
	"threadmirror/internal/platform/store"

	"threadmirror/internal/services/api"
)

func main() {
	ctx := context.Background()

	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")

	// logging comes up before anything that can fail
	l := logger.Get()

	st, err := store.Open(
		ctx,
		store.Config{
			AppName: "threadmirror",
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", true),
			},
		},
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(ctx); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	repokit.MustGuard(ctx, st)

	// server reads CORE_API_PORT
	srv := phttp.NewServer(apiCfg)

	api.Mount(srv.Router(), api.Options{
		Config: root,
		Store:  st,
		Logger: l,
	})

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
