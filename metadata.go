package appchain

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// MetaData is the node's getMetaData response.
type MetaData struct {
	ChainID          uint32    `json:"chainId"`
	ChainIDV1        string    `json:"chainIdV1,omitempty"`
	ChainName        string    `json:"chainName"`
	Operator         string    `json:"operator"`
	Website          string    `json:"website"`
	GenesisTimestamp uint64    `json:"genesisTimestamp"`
	Validators       []Address `json:"validators"`
	BlockInterval    uint64    `json:"blockInterval"`
	TokenName        string    `json:"tokenName"`
	TokenSymbol      string    `json:"tokenSymbol"`
	TokenAvatar      string    `json:"tokenAvatar"`
	Version          uint32    `json:"version"`
	EconomicalModel  uint32    `json:"economicalModel"`
}

// ChainIDValue prefers chainIdV1 and falls back to the version 0 chainId.
func (m *MetaData) ChainIDValue() (id *big.Int, err error) {
	v1 := strings.TrimSpace(m.ChainIDV1)
	if v1 == "" {
		return new(big.Int).SetUint64(uint64(m.ChainID)), nil
	}

	digits := TrimHexPrefix(v1)
	if digits == "" {
		return new(big.Int), nil
	}

	id, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		err = errors.Errorf("invalid chainIdV1 '%s'", m.ChainIDV1)
		return
	}
	return
}

// AbiBlockTag is the block tag abi lookups must use. From version 1 the latest
// block cannot see state written by the transaction just mined, so pending is
// required.
func (m *MetaData) AbiBlockTag() string {
	if m.Version >= 1 {
		return BlockTagPending
	}
	return BlockTagLatest
}

const (
	BlockTagLatest   = "latest"
	BlockTagPending  = "pending"
	BlockTagEarliest = "earliest"
)
