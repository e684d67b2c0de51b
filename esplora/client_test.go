package esplora

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/watchonly/mwck/chain"
)

func txid(b byte) chain.Txid {
	var h chainhash.Hash
	h[0] = b
	return h
}

func confirmedTx(id chain.Txid, height uint32) chain.Tx {
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
	}
}

// pagedServer serves pageSize-sized, newest-first pages from a fixed,
// oldest-first backing list, honoring after_txid the way an esplora-style
// API does.
func pagedServer(t *testing.T, txs []chain.Tx) *httptest.Server {
	t.Helper()

	// Reverse to newest-first for serving, matching the real API.
	newestFirst := make([]chain.Tx, len(txs))
	for i, tx := range txs {
		newestFirst[len(txs)-1-i] = tx
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		after := r.URL.Query().Get("after_txid")

		start := 0
		if after != "" {
			for i, tx := range newestFirst {
				if tx.Txid.String() == after {
					start = i + 1
					break
				}
			}
		}

		end := start + pageSize
		if end > len(newestFirst) {
			end = len(newestFirst)
		}
		page := newestFirst[start:end]
		if page == nil {
			page = []chain.Tx{}
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(page))
	}))
}

func TestFetchAddressHistorySinglePage(t *testing.T) {
	var txs []chain.Tx
	for i := byte(1); i <= 3; i++ {
		txs = append(txs, confirmedTx(txid(i), uint32(i)*10))
	}

	server := pagedServer(t, txs)
	defer server.Close()

	client := New(server.URL)
	script := chain.Script{0x01, 0x02}

	got, err := client.FetchAddressHistory(context.Background(), script, nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// chronological (oldest-first) order
	require.Equal(t, uint32(10), *got[0].Status.BlockHeight)
	require.Equal(t, uint32(30), *got[2].Status.BlockHeight)
}

func TestFetchAddressHistoryMultiPage(t *testing.T) {
	var txs []chain.Tx
	for i := byte(1); i <= 120; i++ {
		txs = append(txs, confirmedTx(txid(i), uint32(i)))
	}

	server := pagedServer(t, txs)
	defer server.Close()

	client := New(server.URL)
	script := chain.Script{0x01}

	got, err := client.FetchAddressHistory(context.Background(), script, nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 120)
	require.Equal(t, uint32(1), *got[0].Status.BlockHeight)
	require.Equal(t, uint32(120), *got[119].Status.BlockHeight)
}

func TestFetchAddressHistoryExactPageBoundary(t *testing.T) {
	// A history of exactly pageSize txs must trigger one more request (the
	// empty page) rather than stopping on the full first page.
	var txs []chain.Tx
	for i := byte(1); i <= pageSize; i++ {
		txs = append(txs, confirmedTx(txid(i), uint32(i)))
	}

	server := pagedServer(t, txs)
	defer server.Close()

	client := New(server.URL)
	got, err := client.FetchAddressHistory(context.Background(), chain.Script{0x01}, nil, nil)
	require.NoError(t, err)
	require.Len(t, got, pageSize)
}

func TestFetchAddressHistoryBoundsShortCircuitPagination(t *testing.T) {
	var txs []chain.Tx
	for i := byte(1); i <= 120; i++ {
		txs = append(txs, confirmedTx(txid(i), uint32(i)))
	}

	var requests int
	inner := pagedServer(t, txs)
	defer inner.Close()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		inner.Config.Handler.ServeHTTP(w, r)
	}))
	defer server.Close()

	client := New(server.URL)

	// Both bounds satisfied on the first newest-first page (120..71):
	// txid(100) appears there and the page's last tx (height 71) is below
	// untilHeight. Exactly one request should be made despite 120 txs.
	untilTxid := txid(100)
	untilHeight := uint32(100)
	got, err := client.FetchAddressHistory(
		context.Background(), chain.Script{0x01}, &untilTxid, &untilHeight)
	require.NoError(t, err)
	require.Equal(t, 1, requests)
	require.Len(t, got, pageSize)
}

func TestFetchAddressHistoryStopsAtUntilHeight(t *testing.T) {
	var txs []chain.Tx
	for i := byte(1); i <= 120; i++ {
		txs = append(txs, confirmedTx(txid(i), uint32(i)))
	}

	server := pagedServer(t, txs)
	defer server.Close()

	client := New(server.URL)
	script := chain.Script{0x01}

	untilHeight := uint32(115)
	got, err := client.FetchAddressHistory(context.Background(), script, nil, &untilHeight)
	require.NoError(t, err)
	// Should stop after the first page (newest-first 120..71) satisfies the
	// height bound, well short of fetching all 120.
	require.Less(t, len(got), 120)
	require.Greater(t, len(got), 0)
}

func TestScripthashTxsPropagatesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.ScripthashTxs(context.Background(), chain.Script{0x01}, nil)
	require.Error(t, err)
}

func TestScripthashTxsBuildsExpectedURL(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, "[]")
	}))
	defer server.Close()

	client := New(server.URL)
	script := chain.Script{0xAA, 0xBB}
	_, err := client.ScripthashTxs(context.Background(), script, nil)
	require.NoError(t, err)
	require.Contains(t, gotPath, "/scripthash/")
	require.Contains(t, gotPath, "/txs")
}
