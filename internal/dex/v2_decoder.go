package dex

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"feeScope/internal/model"
)

const (
	EventPairCreated = "PairCreated"
	EventSwap        = "Swap"
)

// V2Decoder decodes factory PairCreated and pair Swap logs of the
// Uniswap V2 family.
type V2Decoder struct {
	abi         abi.ABI
	topicToName map[string]string
}

// NewV2Decoder builds a V2 decoder.
func NewV2Decoder() (*V2Decoder, error) {
	parsed, err := V2ABI()
	if err != nil {
		return nil, fmt.Errorf("parse v2 abi: %w", err)
	}

	return &V2Decoder{
		abi: parsed,
		topicToName: map[string]string{
			strings.ToLower(parsed.Events[EventPairCreated].ID.Hex()): EventPairCreated,
			strings.ToLower(parsed.Events[EventSwap].ID.Hex()):        EventSwap,
		},
	}, nil
}

// PoolCreatedTopic is topic0 of PairCreated(address,address,address,uint256).
func (d *V2Decoder) PoolCreatedTopic() common.Hash {
	return d.abi.Events[EventPairCreated].ID
}

// SwapTopic is topic0 of Swap(address,uint256,uint256,uint256,uint256,address).
func (d *V2Decoder) SwapTopic() common.Hash {
	return d.abi.Events[EventSwap].ID
}

// EventName returns the event a topic0 belongs to, or "" if unsupported.
func (d *V2Decoder) EventName(topic0 string) string {
	return d.topicToName[strings.ToLower(topic0)]
}

// DecodePoolCreated converts a PairCreated log into a Pool. Tokens are
// sorted so the pair identity does not depend on on-chain token order.
// Protocol is left empty for the caller to fill in.
func (d *V2Decoder) DecodePoolCreated(log model.LogRecord) (model.Pool, error) {
	event := d.abi.Events[EventPairCreated]
	if err := d.checkTopic0(log, EventPairCreated); err != nil {
		return model.Pool{}, err
	}
	if !common.IsHexAddress(log.Address) {
		return model.Pool{}, decodeErr(EventPairCreated, log, fmt.Errorf("invalid factory address: %s", log.Address))
	}

	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.Pool{}, decodeErr(EventPairCreated, log, err)
	}

	var indexed struct {
		Token0 common.Address
		Token1 common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.Pool{}, decodeErr(EventPairCreated, log, fmt.Errorf("parse topics: %w", err))
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.Pool{}, decodeErr(EventPairCreated, log, err)
	}
	if len(values) != 2 {
		return model.Pool{}, decodeErr(EventPairCreated, log, fmt.Errorf("unexpected pair created values: %d", len(values)))
	}

	pair, err := asAddress(values[0])
	if err != nil {
		return model.Pool{}, decodeErr(EventPairCreated, log, err)
	}
	index, err := asBigInt(values[1])
	if err != nil {
		return model.Pool{}, decodeErr(EventPairCreated, log, err)
	}
	if !index.IsUint64() {
		return model.Pool{}, decodeErr(EventPairCreated, log, fmt.Errorf("pair index overflows uint64: %s", index))
	}

	tokens := []string{CanonicalAddress(indexed.Token0), CanonicalAddress(indexed.Token1)}
	sort.Strings(tokens)

	return model.Pool{
		Address:        CanonicalAddress(pair),
		Tokens:         [2]string{tokens[0], tokens[1]},
		Factory:        CanonicalAddress(common.HexToAddress(log.Address)),
		CreatedInBlock: log.BlockNumber,
		CreatedInTx:    strings.ToLower(log.TxHash),
		Index:          index.Uint64(),
	}, nil
}

// DecodeSwap converts a pair Swap log into a SwapEvent.
func (d *V2Decoder) DecodeSwap(log model.LogRecord) (model.SwapEvent, error) {
	event := d.abi.Events[EventSwap]
	if err := d.checkTopic0(log, EventSwap); err != nil {
		return model.SwapEvent{}, err
	}
	if !common.IsHexAddress(log.Address) {
		return model.SwapEvent{}, decodeErr(EventSwap, log, fmt.Errorf("invalid pair address: %s", log.Address))
	}
	if _, err := parseIndexedTopics(event, log.Topics); err != nil {
		return model.SwapEvent{}, decodeErr(EventSwap, log, err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.SwapEvent{}, decodeErr(EventSwap, log, err)
	}
	if len(values) != 4 {
		return model.SwapEvent{}, decodeErr(EventSwap, log, fmt.Errorf("unexpected swap values: %d", len(values)))
	}

	amounts := make([]*big.Int, 0, 4)
	for _, value := range values {
		amount, err := asBigInt(value)
		if err != nil {
			return model.SwapEvent{}, decodeErr(EventSwap, log, err)
		}
		amounts = append(amounts, amount)
	}

	return model.SwapEvent{
		PairAddress: CanonicalAddress(common.HexToAddress(log.Address)),
		BlockNumber: log.BlockNumber,
		TxHash:      strings.ToLower(log.TxHash),
		LogIndex:    log.LogIndex,
		Amount0In:   amounts[0],
		Amount1In:   amounts[1],
		Amount0Out:  amounts[2],
		Amount1Out:  amounts[3],
	}, nil
}

func (d *V2Decoder) checkTopic0(log model.LogRecord, want string) error {
	if len(log.Topics) == 0 {
		return decodeErr(want, log, fmt.Errorf("missing topics"))
	}
	if name := d.EventName(log.Topics[0]); name != want {
		return decodeErr(want, log, fmt.Errorf("unexpected topic0: %s", log.Topics[0]))
	}
	return nil
}

// CanonicalAddress is the lower-case hex form used for all equality and lookup.
func CanonicalAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
