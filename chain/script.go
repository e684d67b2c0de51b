// Package chain defines the wire-level data model shared by the esplora
// REST client and the websocket event stream: scripts, transactions, and
// the balances derived from them.
package chain

import "encoding/hex"

// Script is an output script (scriptpubkey), identified by value. Two
// Scripts are equal iff their underlying bytes are identical.
type Script []byte

// String renders the script as lowercase hex, matching the wire protocol's
// scriptpubkey representation.
func (s Script) String() string {
	return hex.EncodeToString(s)
}

// Equal reports whether s and other carry identical bytes.
func (s Script) Equal(other Script) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// ScriptFromHex decodes a hex-encoded scriptpubkey as received over the
// wire or from the REST API.
func ScriptFromHex(s string) (Script, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return Script(b), nil
}

// key returns a value usable as a Go map key for the script. Scripts are
// mapped on their raw bytes rather than their hex string to avoid an
// encode/decode round trip on every lookup.
func (s Script) key() string {
	return string(s)
}

// Key is the exported form of key, used by packages outside chain (the
// socket control task's active set, the wallet's address map) that need to
// index collections by script.
func (s Script) Key() string {
	return s.key()
}
