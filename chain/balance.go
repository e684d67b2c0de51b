package chain

// Balance tracks funds moving in (Funded) and out (Spent) of a script on
// one side (mempool or confirmed) of the chain state.
type Balance struct {
	Funded uint64 `json:"funded"`
	Spent  uint64 `json:"spent"`
}

// Net returns the signed balance funded-minus-spent, widened to int64 to
// avoid the unsigned underflow a direct subtraction would risk.
func (b Balance) Net() int64 {
	if b.Funded >= b.Spent {
		return int64(b.Funded - b.Spent)
	}
	return -int64(b.Spent - b.Funded)
}

// Balances splits Balance across the mempool and confirmed chain states.
type Balances struct {
	Mempool   Balance `json:"mempool"`
	Confirmed Balance `json:"confirmed"`
}

// Total returns the componentwise sum of the mempool and confirmed sides.
func (b Balances) Total() Balance {
	return Balance{
		Funded: b.Mempool.Funded + b.Confirmed.Funded,
		Spent:  b.Mempool.Spent + b.Confirmed.Spent,
	}
}
