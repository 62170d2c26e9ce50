// Package api provides the HTTP API for the application
package api

import (
	"threadmirror/internal/platform/config"
	"threadmirror/internal/platform/logger"
	phttp "threadmirror/internal/platform/net/http"
	"threadmirror/internal/platform/store"

	"threadmirror/internal/modkit"
	"threadmirror/internal/modkit/httpkit"
	"threadmirror/internal/modkit/module"

	apibackfill "threadmirror/internal/services/api/backfill/module"
	queuemod "threadmirror/internal/services/queue/module"
)

// Options are the API options
type Options struct {
	Config config.Conf
	Store  *store.Store
	Logger *logger.Logger
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
	}

	// the API only submits and polls; the worker binary owns the
	// backfill runner and the queue drain loop
	queue := queuemod.NewSubmit(deps)
	qports := module.MustPortsOf[queuemod.Ports](queue)

	apiBackfill := apibackfill.New(
		deps,
		modkit.WithPorts(apibackfill.Ports{
			Submitter: qports.Submitter,
			Status:    qports.Status,
		}),
	)

	mods := []module.Module{
		queue,
		apiBackfill,
	}

	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		for _, m := range mods {
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(api)
		}
	})
}
