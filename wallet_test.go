package mwck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/watchonly/mwck/chain"
)

func testTxid(b byte) chain.Txid {
	var h chainhash.Hash
	h[0] = b
	return h
}

func confirmedTx(id chain.Txid, height uint32, funded uint64, script chain.Script) chain.Tx {
	h := chainhash.Hash{}
	blockTime := uint64(1)
	return chain.Tx{
		Txid: id,
		Status: chain.TxStatus{
			Confirmed:   true,
			BlockHeight: &height,
			BlockHash:   &h,
			BlockTime:   &blockTime,
		},
		Vout: []chain.Output{{Script: script, Value: funded}},
	}
}

// newJSONTestServer serves txs as a single-page scripthash history response
// for any request, standing in for the esplora REST API. Options.Secure
// defaults to false, so Wallet derives a plain http:// base URL matching
// httptest's default scheme.
func newJSONTestServer(t *testing.T, txs []chain.Tx) *httptest.Server {
	t.Helper()
	if txs == nil {
		txs = []chain.Tx{}
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(txs)
	}))
}

func TestWalletWatchReturnsSyncedState(t *testing.T) {
	script := chain.Script{0xAA, 0xBB}
	txs := []chain.Tx{confirmedTx(testTxid(1), 100, 5000, script)}

	server := newJSONTestServer(t, txs)
	defer server.Close()

	w, err := New(Options{Hostname: server.Listener.Addr().String()})
	require.NoError(t, err)

	states, err := w.Watch(context.Background(), []chain.Script{script})
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.Equal(t, uint64(5000), states[0].Balances.Confirmed.Funded)
}

func TestWalletWatchIsIdempotentForAlreadyWatchedScript(t *testing.T) {
	script := chain.Script{0xAA, 0xBB}
	txs := []chain.Tx{confirmedTx(testTxid(1), 100, 1000, script)}

	server := newJSONTestServer(t, txs)
	defer server.Close()

	w, err := New(Options{Hostname: server.Listener.Addr().String()})
	require.NoError(t, err)

	_, err = w.Watch(context.Background(), []chain.Script{script})
	require.NoError(t, err)

	// A second Watch call for the same script must not error, and must not
	// create a second tracker (GetState should report exactly one entry).
	_, err = w.Watch(context.Background(), []chain.Script{script})
	require.NoError(t, err)

	require.Len(t, w.GetState(), 1)
}

func TestWalletUnwatchRemovesScript(t *testing.T) {
	script := chain.Script{0xAA, 0xBB}
	server := newJSONTestServer(t, nil)
	defer server.Close()

	w, err := New(Options{Hostname: server.Listener.Addr().String()})
	require.NoError(t, err)

	_, err = w.Watch(context.Background(), []chain.Script{script})
	require.NoError(t, err)
	require.Len(t, w.GetState(), 1)

	err = w.Unwatch(context.Background(), []chain.Script{script})
	require.NoError(t, err)
	require.Empty(t, w.GetState())

	_, ok := w.GetAddressState(script)
	require.False(t, ok)
}

func TestWalletUnwatchUnknownScriptIsSilent(t *testing.T) {
	server := newJSONTestServer(t, nil)
	defer server.Close()

	w, err := New(Options{Hostname: server.Listener.Addr().String()})
	require.NoError(t, err)

	err = w.Unwatch(context.Background(), []chain.Script{{0x01}})
	require.NoError(t, err)
}

func TestNewRejectsEmptyHostname(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
