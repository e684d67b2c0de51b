package mwck

import "fmt"

// AssumeFinalDepth is the conventional number of blocks below the tip after
// which a confirmation is treated as immutable. It is advisory only: the
// core never prunes or otherwise treats confirmations below this depth
// specially (spec §6).
const AssumeFinalDepth = 15

// Options configures a Wallet's REST and websocket endpoints.
type Options struct {
	// Hostname is the server host, e.g. "mempool.space".
	Hostname string
	// Secure selects https/wss (true) vs http/ws (false).
	Secure bool
}

func (o Options) apiURL() string {
	scheme := "http"
	if o.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/api", scheme, o.Hostname)
}

func (o Options) wsURL() string {
	scheme := "ws"
	if o.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/api/v1/ws", scheme, o.Hostname)
}
