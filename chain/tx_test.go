package chain

import (
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

func hashFromByte(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

func confirmedTx(txid chainhash.Hash, height uint32) Tx {
	h := chainhash.Hash{}
	blockTime := uint64(1)
	return Tx{
		Txid: txid,
		Status: TxStatus{
			Confirmed:   true,
			BlockHeight: &height,
			BlockHash:   &h,
			BlockTime:   &blockTime,
		},
	}
}

func mempoolTx(txid chainhash.Hash) Tx {
	return Tx{Txid: txid, Status: TxStatus{Confirmed: false}}
}

func TestLessConfirmedBeforeMempool(t *testing.T) {
	confirmed := confirmedTx(hashFromByte(1), 100)
	mempool := mempoolTx(hashFromByte(2))

	require.True(t, Less(confirmed, mempool))
	require.False(t, Less(mempool, confirmed))
}

func TestLessAscendingHeight(t *testing.T) {
	lower := confirmedTx(hashFromByte(1), 100)
	higher := confirmedTx(hashFromByte(2), 200)

	require.True(t, Less(lower, higher))
	require.False(t, Less(higher, lower))
}

func TestLessTieBreaksOnTxid(t *testing.T) {
	a := confirmedTx(hashFromByte(1), 100)
	b := confirmedTx(hashFromByte(2), 100)

	require.True(t, Less(a, b))
	require.False(t, Less(b, a))
}

func TestSortTransactionsTotalOrder(t *testing.T) {
	txs := []Tx{
		mempoolTx(hashFromByte(5)),
		confirmedTx(hashFromByte(3), 200),
		confirmedTx(hashFromByte(1), 100),
		mempoolTx(hashFromByte(2)),
	}
	SortTransactions(txs)

	require.True(t, txs[0].Status.Confirmed)
	require.Equal(t, uint32(100), *txs[0].Status.BlockHeight)
	require.True(t, txs[1].Status.Confirmed)
	require.Equal(t, uint32(200), *txs[1].Status.BlockHeight)
	require.False(t, txs[2].Status.Confirmed)
	require.False(t, txs[3].Status.Confirmed)
}

func TestTxJSONRoundTrip(t *testing.T) {
	script, err := ScriptFromHex("76a914000000000000000000000000000000000000000088ac")
	require.NoError(t, err)

	original := confirmedTx(hashFromByte(7), 42)
	original.Vin = []Input{{Prevout: &Prevout{Script: script, Value: 1000}}}
	original.Vout = []Output{{Script: script, Value: 500}}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Tx
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Equal(t, original.Txid, decoded.Txid)
	require.Equal(t, original.Status.Confirmed, decoded.Status.Confirmed)
	require.Equal(t, *original.Status.BlockHeight, *decoded.Status.BlockHeight)
	require.True(t, decoded.Vin[0].Prevout.Script.Equal(script))
	require.True(t, decoded.Vout[0].Script.Equal(script))
}

func TestTxStatusValidateRequiresBlockFields(t *testing.T) {
	status := TxStatus{Confirmed: true}
	require.Error(t, status.Validate())

	height := uint32(1)
	hash := chainhash.Hash{}
	blockTime := uint64(1)
	status = TxStatus{Confirmed: true, BlockHeight: &height, BlockHash: &hash, BlockTime: &blockTime}
	require.NoError(t, status.Validate())
}

func TestTxUnmarshalRejectsIncompleteConfirmedStatus(t *testing.T) {
	data := []byte(`{"txid":"` + hashFromByte(1).String() + `","status":{"confirmed":true},"vin":[],"vout":[]}`)
	var tx Tx
	require.Error(t, json.Unmarshal(data, &tx))
}
