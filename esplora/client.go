// Package esplora implements the REST history-fetch half of the chain
// observer: a thin client for the scripthash transaction-history endpoint,
// plus the pagination protocol that bounds requests using a tracker's
// confirmed tip (spec §4.6.5, §6).
package esplora

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-errors/errors"

	"github.com/watchonly/mwck/chain"
)

// pageSize is the server-enforced page size for scripthash history
// requests (spec §4.6.5).
const pageSize = 50

// Client fetches transaction history from an esplora-compatible REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a Client against baseURL (e.g. "https://host/api").
// Grounded on the teacher's general preference (chainregistry.go) for
// stdlib net/http over a heavier HTTP framework for REST calls.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

// NewWithHTTPClient constructs a Client using a caller-supplied
// *http.Client, primarily for tests that need custom transports/timeouts.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// ScripthashTxs fetches one page (newest-first, server-capped at pageSize)
// of transaction history for script, optionally continuing after afterTxid.
func (c *Client) ScripthashTxs(ctx context.Context, script chain.Script, afterTxid *chain.Txid) ([]chain.Tx, error) {
	scriptHash := sha256.Sum256(script)
	url := fmt.Sprintf("%s/scripthash/%s/txs?max_txs=%d",
		c.baseURL, hex.EncodeToString(scriptHash[:]), pageSize)
	if afterTxid != nil {
		url += "&after_txid=" + afterTxid.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Errorf("scripthash txs request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("scripthash txs request returned status %d", resp.StatusCode)
	}

	var txs []chain.Tx
	if err := json.NewDecoder(resp.Body).Decode(&txs); err != nil {
		return nil, errors.Errorf("decoding scripthash txs response: %v", err)
	}
	return txs, nil
}

// FetchAddressHistory makes successive ScripthashTxs requests to fetch the
// full transaction history of script, in chronological (oldest-first)
// order, as described in spec §4.6.5.
//
// untilTxid and untilHeight bound the number of requests made: when either
// is non-nil, fetching stops once a page has been seen containing
// untilTxid, and/or once a page's last (oldest on that page) transaction is
// confirmed below untilHeight. Either bound alone is sufficient to
// short-circuit only the bound that was actually given; an unset bound is
// treated as already satisfied.
func (c *Client) FetchAddressHistory(
	ctx context.Context,
	script chain.Script,
	untilTxid *chain.Txid,
	untilHeight *uint32,
) ([]chain.Tx, error) {

	var allTxs []chain.Tx
	foundTxid := untilTxid == nil
	foundHeight := untilHeight == nil
	// Without a bound to satisfy, pagination runs until a short page.
	limitRequests := !foundTxid || !foundHeight
	var lastTxid *chain.Txid

	for {
		txs, err := c.ScripthashTxs(ctx, script, lastTxid)
		if err != nil {
			return nil, err
		}

		if !foundTxid {
			for _, tx := range txs {
				if tx.Txid == *untilTxid {
					foundTxid = true
					break
				}
			}
		}

		if !foundHeight && len(txs) > 0 {
			last := txs[len(txs)-1]
			if last.Status.Confirmed && *last.Status.BlockHeight < *untilHeight {
				foundHeight = true
			}
		}

		allTxs = append(allTxs, txs...)

		if len(txs) < pageSize {
			break
		}
		last := txs[len(txs)-1]
		lastTxid = &last.Txid

		if limitRequests && foundTxid && foundHeight {
			break
		}
	}

	reverse(allTxs)
	return allTxs, nil
}

func reverse(txs []chain.Tx) {
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
}
