package model

import "math/big"

// SwapEvent is a decoded constant-product Swap log.
type SwapEvent struct {
	PairAddress string   `json:"pairAddress"`
	BlockNumber uint64   `json:"blockNumber"`
	TxHash      string   `json:"txHash"`
	LogIndex    uint64   `json:"logIndex"`
	Amount0In   *big.Int `json:"amount0In"`
	Amount1In   *big.Int `json:"amount1In"`
	Amount0Out  *big.Int `json:"amount0Out"`
	Amount1Out  *big.Int `json:"amount1Out"`
}

// ReserveSnapshot holds a pool's reserves as of the end of a block.
type ReserveSnapshot struct {
	Pool        string   `json:"pool"`
	BlockNumber uint64   `json:"blockNumber"`
	Reserve0    *big.Int `json:"reserve0"`
	Reserve1    *big.Int `json:"reserve1"`
}
