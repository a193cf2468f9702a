package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token captures ERC20 metadata for a tradable asset.
type Token struct {
	ChainID  uint64 `json:"chain_id"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// Addr returns the token address as a common.Address.
func (t Token) Addr() common.Address {
	return common.HexToAddress(t.Address)
}

// Equal reports whether both tokens share an address, ignoring checksum case.
func (t Token) Equal(other Token) bool {
	return strings.EqualFold(t.Address, other.Address)
}
