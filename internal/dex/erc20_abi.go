package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Some early tokens return bytes32 instead of string from name().
const erc20NameStringJSON = `[
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const erc20NameBytes32JSON = `[
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc20NameString      abi.ABI
	erc20NameStringOnce  sync.Once
	erc20NameStringErr   error
	erc20NameBytes32     abi.ABI
	erc20NameBytes32Once sync.Once
	erc20NameBytes32Err  error
)

func erc20NameStringInstance() (abi.ABI, error) {
	erc20NameStringOnce.Do(func() {
		erc20NameString, erc20NameStringErr = abi.JSON(strings.NewReader(erc20NameStringJSON))
	})
	return erc20NameString, erc20NameStringErr
}

func erc20NameBytes32Instance() (abi.ABI, error) {
	erc20NameBytes32Once.Do(func() {
		erc20NameBytes32, erc20NameBytes32Err = abi.JSON(strings.NewReader(erc20NameBytes32JSON))
	})
	return erc20NameBytes32, erc20NameBytes32Err
}
