package model

// FactoryFee is the inference outcome for one factory.
type FactoryFee struct {
	Factory  string  `json:"factory"`
	Protocol string  `json:"protocol"`
	Pool     string  `json:"pool,omitempty"`
	Fee      *uint32 `json:"fee"`
	Block    uint64  `json:"block,omitempty"`
	TxHash   string  `json:"txHash,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// FeeReport is the fee-inference phase output.
type FeeReport struct {
	Fees    map[string]*uint32 `json:"fees"`
	Details []FactoryFee       `json:"details"`
}

// NewFeeReport returns an empty report.
func NewFeeReport() FeeReport {
	return FeeReport{Fees: make(map[string]*uint32)}
}

// Add records a factory outcome.
func (r *FeeReport) Add(entry FactoryFee) {
	if r.Fees == nil {
		r.Fees = make(map[string]*uint32)
	}
	r.Fees[entry.Factory] = entry.Fee
	r.Details = append(r.Details, entry)
}
