package modkit

import (
	"threadmirror/internal/modkit/repokit"
	"threadmirror/internal/platform/config"
	"threadmirror/internal/platform/logger"
)

// Deps is the shared dependency bundle handed to every module; pure
// wiring, no behavior of its own
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
}

// ZeroOK signals that a zero Deps is usable in tests; callers still nil
// check optional stores
func (d Deps) ZeroOK() bool { return true }
