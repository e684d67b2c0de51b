package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBalanceNet(t *testing.T) {
	require.Equal(t, int64(5), Balance{Funded: 10, Spent: 5}.Net())
	require.Equal(t, int64(-5), Balance{Funded: 5, Spent: 10}.Net())
	require.Equal(t, int64(0), Balance{}.Net())
}

func TestBalancesTotal(t *testing.T) {
	b := Balances{
		Mempool:   Balance{Funded: 10, Spent: 2},
		Confirmed: Balance{Funded: 100, Spent: 20},
	}
	total := b.Total()
	require.Equal(t, uint64(110), total.Funded)
	require.Equal(t, uint64(22), total.Spent)
}
