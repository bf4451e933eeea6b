package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFilterQuery(t *testing.T) {
	factory := common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	topic := common.HexToHash("0x0d3648bd0f6ba80134a33ba9275ac585d9d315f0ad8355cddefde31afa28d0e9")

	query := BuildFilterQuery(10000835, 10002835, []common.Address{factory}, []common.Hash{topic})

	assert.Equal(t, int64(10000835), query.FromBlock.Int64())
	assert.Equal(t, int64(10002835), query.ToBlock.Int64())
	assert.Equal(t, []common.Address{factory}, query.Addresses)
	require.Len(t, query.Topics, 1)
	assert.Equal(t, []common.Hash{topic}, query.Topics[0])
}

func TestBuildFilterQueryWithoutTopics(t *testing.T) {
	query := BuildFilterQuery(1, 2, nil, nil)
	assert.Nil(t, query.Topics)
	assert.Nil(t, query.Addresses)
}
