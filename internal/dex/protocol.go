package dex

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"feeScope/internal/amm"
	"feeScope/internal/model"
)

// Protocol is the capability set every AMM family provides to the pipeline:
// decode its factory and trade logs, and invert its pricing curve for a fee.
type Protocol interface {
	Name() string
	PoolCreatedTopic() common.Hash
	SwapTopic() common.Hash
	DecodePoolCreated(log model.LogRecord) (model.Pool, error)
	DecodeSwap(log model.LogRecord) (model.SwapEvent, error)
	EstimateFee(before, after model.ReserveSnapshot, swap model.SwapEvent) (uint32, error)
}

// V2Protocol is a constant-product (x*y=k) protocol with a proportional
// input fee. Forks differ only by name.
type V2Protocol struct {
	*V2Decoder
	name      string
	estimator amm.Estimator
}

// NewV2Protocol builds a constant-product protocol variant.
func NewV2Protocol(name string, estimator amm.Estimator) (*V2Protocol, error) {
	decoder, err := NewV2Decoder()
	if err != nil {
		return nil, err
	}
	return &V2Protocol{V2Decoder: decoder, name: name, estimator: estimator}, nil
}

func (p *V2Protocol) Name() string {
	return p.name
}

// DecodePoolCreated tags the pool with the protocol name.
func (p *V2Protocol) DecodePoolCreated(log model.LogRecord) (model.Pool, error) {
	pool, err := p.V2Decoder.DecodePoolCreated(log)
	if err != nil {
		return model.Pool{}, err
	}
	pool.Protocol = p.name
	return pool, nil
}

func (p *V2Protocol) EstimateFee(before, after model.ReserveSnapshot, swap model.SwapEvent) (uint32, error) {
	return p.estimator.EstimateFee(before, after, swap)
}

var constantProductProtocols = map[string]struct{}{
	"uniswap-v2":     {},
	"sushiswap":      {},
	"pancakeswap-v2": {},
}

// KnownProtocols lists the protocol names accepted by LookupProtocol.
func KnownProtocols() []string {
	names := make([]string, 0, len(constantProductProtocols))
	for name := range constantProductProtocols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupProtocol returns the named protocol variant.
func LookupProtocol(name string, estimator amm.Estimator) (Protocol, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if _, ok := constantProductProtocols[key]; !ok {
		return nil, fmt.Errorf("unsupported protocol %q (known: %s)", name, strings.Join(KnownProtocols(), ", "))
	}
	return NewV2Protocol(key, estimator)
}
