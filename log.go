package mwck

import (
	"github.com/btcsuite/btclog"

	"github.com/watchonly/mwck/socket"
)

// log is this package's subsystem logger, following the teacher's
// per-subsystem btclog.Logger convention. It defaults to a no-op logger;
// callers wire up a real backend via UseLogger.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the subsystem logger used by the mwck package and, for
// convenience, its socket subpackage (the address and esplora packages are
// logger-free: their operations either can't fail silently in a way worth
// logging, or their errors are always returned to a caller).
func UseLogger(logger btclog.Logger) {
	log = logger
	socket.UseLogger(logger)
}
