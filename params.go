package appchain

import (
	"math/big"

	"github.com/google/uuid"
)

// TxParams carries the caller supplied transaction fields. Nil and zero values
// are filled in by the client before signing.
type TxParams struct {
	PrivateKey      string
	From            string
	Nonce           string
	Quota           uint64
	ChainID         *big.Int
	Version         *uint32
	ValidUntilBlock *uint64
	Value           *big.Int
}

// copy returns a shallow copy so filled in defaults never leak back to the
// caller.
func (p *TxParams) copy() *TxParams {
	if p == nil {
		return &TxParams{}
	}
	c := *p
	return &c
}

func (p *TxParams) nonce() string {
	if p.Nonce != "" {
		return p.Nonce
	}
	return uuid.NewString()
}

func (p *TxParams) value() *big.Int {
	if p.Value != nil {
		return p.Value
	}
	return new(big.Int)
}

func Uint64(v uint64) *uint64 { return &v }

func Uint32(v uint32) *uint32 { return &v }
