package chain

import (
	"encoding/json"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/go-errors/errors"
)

// Txid identifies a transaction regardless of status transitions. Reusing
// chainhash.Hash gives constant-time comparability and the conventional
// display/JSON hex encoding esplora-style APIs use for txids.
type Txid = chainhash.Hash

// TxStatus describes the confirmation state of a transaction version.
type TxStatus struct {
	Confirmed   bool             `json:"confirmed"`
	BlockHeight *uint32          `json:"block_height,omitempty"`
	BlockHash   *chainhash.Hash  `json:"block_hash,omitempty"`
	BlockTime   *uint64          `json:"block_time,omitempty"`
}

// Validate enforces the invariant that a confirmed status must carry its
// full block-location triple.
func (s TxStatus) Validate() error {
	if !s.Confirmed {
		return nil
	}
	if s.BlockHeight == nil || s.BlockHash == nil || s.BlockTime == nil {
		return errors.New("confirmed status missing block_height/block_hash/block_time")
	}
	return nil
}

// Prevout is the output being spent by an Input, when known.
type Prevout struct {
	Script Script `json:"scriptpubkey"`
	Value  uint64 `json:"value"`
}

// Input is one spend of a prior output.
type Input struct {
	Prevout *Prevout `json:"prevout,omitempty"`
}

// Output is one newly created output.
type Output struct {
	Script Script `json:"scriptpubkey"`
	Value  uint64 `json:"value"`
}

// Tx is a transaction as reported by the REST history API or the websocket
// push channel. Txid uniquely identifies a Tx regardless of status: a later
// version (e.g. confirmed after being seen in the mempool) replaces the
// prior one under the same txid.
type Tx struct {
	Txid   Txid     `json:"txid"`
	Status TxStatus `json:"status"`
	Vin    []Input  `json:"vin"`
	Vout   []Output `json:"vout"`
}

// txJSON mirrors Tx but with hex-string fields, matching the wire shape in
// spec §6 ("scriptpubkey": "<hex>", "txid": "<hex>").
type txJSON struct {
	Txid   string       `json:"txid"`
	Status txStatusJSON `json:"status"`
	Vin    []inputJSON  `json:"vin"`
	Vout   []outputJSON `json:"vout"`
}

type txStatusJSON struct {
	Confirmed   bool    `json:"confirmed"`
	BlockHeight *uint32 `json:"block_height,omitempty"`
	BlockHash   *string `json:"block_hash,omitempty"`
	BlockTime   *uint64 `json:"block_time,omitempty"`
}

type prevoutJSON struct {
	Script string `json:"scriptpubkey"`
	Value  uint64 `json:"value"`
}

type inputJSON struct {
	Prevout *prevoutJSON `json:"prevout,omitempty"`
}

type outputJSON struct {
	Script string `json:"scriptpubkey"`
	Value  uint64 `json:"value"`
}

// MarshalJSON renders Tx in the wire's hex-string shape.
func (t Tx) MarshalJSON() ([]byte, error) {
	out := txJSON{
		Txid: t.Txid.String(),
		Status: txStatusJSON{
			Confirmed:   t.Status.Confirmed,
			BlockHeight: t.Status.BlockHeight,
			BlockTime:   t.Status.BlockTime,
		},
	}
	if t.Status.BlockHash != nil {
		s := t.Status.BlockHash.String()
		out.Status.BlockHash = &s
	}
	for _, in := range t.Vin {
		var ij inputJSON
		if in.Prevout != nil {
			ij.Prevout = &prevoutJSON{
				Script: in.Prevout.Script.String(),
				Value:  in.Prevout.Value,
			}
		}
		out.Vin = append(out.Vin, ij)
	}
	for _, o := range t.Vout {
		out.Vout = append(out.Vout, outputJSON{
			Script: o.Script.String(),
			Value:  o.Value,
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the wire's hex-string shape into a Tx, validating
// the confirmed-status invariant.
func (t *Tx) UnmarshalJSON(data []byte) error {
	var in txJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	txid, err := chainhash.NewHashFromStr(in.Txid)
	if err != nil {
		return errors.Errorf("invalid txid %q: %v", in.Txid, err)
	}

	status := TxStatus{
		Confirmed:   in.Status.Confirmed,
		BlockHeight: in.Status.BlockHeight,
		BlockTime:   in.Status.BlockTime,
	}
	if in.Status.BlockHash != nil {
		h, err := chainhash.NewHashFromStr(*in.Status.BlockHash)
		if err != nil {
			return errors.Errorf("invalid block_hash %q: %v", *in.Status.BlockHash, err)
		}
		status.BlockHash = h
	}
	if err := status.Validate(); err != nil {
		return err
	}

	vin := make([]Input, 0, len(in.Vin))
	for _, ij := range in.Vin {
		var input Input
		if ij.Prevout != nil {
			spk, err := ScriptFromHex(ij.Prevout.Script)
			if err != nil {
				return err
			}
			input.Prevout = &Prevout{Script: spk, Value: ij.Prevout.Value}
		}
		vin = append(vin, input)
	}

	vout := make([]Output, 0, len(in.Vout))
	for _, oj := range in.Vout {
		spk, err := ScriptFromHex(oj.Script)
		if err != nil {
			return err
		}
		vout = append(vout, Output{Script: spk, Value: oj.Value})
	}

	t.Txid = *txid
	t.Status = status
	t.Vin = vin
	t.Vout = vout
	return nil
}

// Less implements the rendered transaction order from spec §3: confirmed
// transactions precede unconfirmed ones; among confirmed, ascending
// block_height; ties (including two unconfirmed transactions) broken by
// ascending txid. Grounded on original_source's cmp_tx_time, made total
// (rather than partial) since sort.Slice requires a strict weak order.
func Less(a, b Tx) bool {
	if a.Status.Confirmed != b.Status.Confirmed {
		return a.Status.Confirmed
	}
	if a.Status.Confirmed && *a.Status.BlockHeight != *b.Status.BlockHeight {
		return *a.Status.BlockHeight < *b.Status.BlockHeight
	}
	return lessTxid(a.Txid, b.Txid)
}

func lessTxid(a, b Txid) bool {
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// SortTransactions sorts txs in place according to Less.
func SortTransactions(txs []Tx) {
	sort.Slice(txs, func(i, j int) bool {
		return Less(txs[i], txs[j])
	})
}
