package socket

import "github.com/btcsuite/btclog"

// log is this package's subsystem logger, following the teacher's
// per-package btclog.Logger convention (peerLog, srvrLog, ...). It defaults
// to a no-op logger; callers wire up a real backend via UseLogger.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the subsystem logger used by this package.
func UseLogger(logger btclog.Logger) {
	log = logger
}
