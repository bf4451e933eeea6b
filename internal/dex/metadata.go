package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"feeScope/internal/model"
)

// ContractCaller executes eth_call at a historical block (nil means latest).
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// FetchReserves reads getReserves() on a pair as of the end of blockNumber.
func FetchReserves(ctx context.Context, caller ContractCaller, pair common.Address, blockNumber uint64) (model.ReserveSnapshot, error) {
	parsed, err := V2ABI()
	if err != nil {
		return model.ReserveSnapshot{}, fmt.Errorf("parse v2 abi: %w", err)
	}

	values, err := callMethod(ctx, caller, pair, parsed, "getReserves", new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return model.ReserveSnapshot{}, err
	}
	if len(values) < 2 {
		return model.ReserveSnapshot{}, fmt.Errorf("getReserves return size %d", len(values))
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return model.ReserveSnapshot{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return model.ReserveSnapshot{}, fmt.Errorf("reserve1: %w", err)
	}

	return model.ReserveSnapshot{
		Pool:        CanonicalAddress(pair),
		BlockNumber: blockNumber,
		Reserve0:    reserve0,
		Reserve1:    reserve1,
	}, nil
}

// FetchPairName reads the pair's ERC-20 name(), falling back to the bytes32 variant.
// A zero blockNumber reads at the latest block.
func FetchPairName(ctx context.Context, caller ContractCaller, pair common.Address, blockNumber uint64, logger *zap.Logger) (string, error) {
	stringABI, err := erc20NameStringInstance()
	if err != nil {
		return "", fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20NameBytes32Instance()
	if err != nil {
		return "", fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	var block *big.Int
	if blockNumber > 0 {
		block = new(big.Int).SetUint64(blockNumber)
	}

	values, err := callMethod(ctx, caller, pair, stringABI, "name", block)
	if err == nil {
		if name, ok := values[0].(string); ok {
			return strings.TrimSpace(name), nil
		}
	}
	if logger != nil {
		logger.Debug("string name call failed", zap.String("pair", pair.Hex()), zap.Error(err))
	}

	values, err = callMethod(ctx, caller, pair, bytes32ABI, "name", block)
	if err != nil {
		return "", err
	}
	name, ok := bytes32ToString(values[0])
	if !ok {
		return "", fmt.Errorf("name unexpected type %T", values[0])
	}
	return strings.TrimSpace(name), nil
}

func callMethod(ctx context.Context, caller ContractCaller, contract common.Address, parsed abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	if caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &contract, Data: data}
	resp, err := caller.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return values, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
