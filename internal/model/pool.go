package model

// FeeDenominator is the parts-per-million scale used for pool fees.
const FeeDenominator = 1_000_000

// Pool is a pair deployed by an AMM factory, as written to the pools file.
type Pool struct {
	Address        string    `json:"address"`
	Protocol       string    `json:"protocol"`
	Tokens         [2]string `json:"tokens"`
	Factory        string    `json:"factory"`
	Fee            *uint32   `json:"fee"`
	CreatedInBlock uint64    `json:"createdInBlock"`
	CreatedInTx    string    `json:"createdInTx"`
	Index          uint64    `json:"index"`
}

// HasFee reports whether the fee has been inferred.
func (p Pool) HasFee() bool {
	return p.Fee != nil
}
