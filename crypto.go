package appchain

import "github.com/pkg/errors"

const (
	CryptoSecp256k1 CryptoType = "secp256k1"
	CryptoEd25519   CryptoType = "ed25519"
)

// CryptoType selects the key, hash and signature scheme a chain was built
// with. Nodes only accept transactions signed with their own scheme.
type CryptoType string

func (c CryptoType) Valid() bool {
	return c == CryptoSecp256k1 || c == CryptoEd25519
}

func (c CryptoType) Validate() (err error) {
	if !c.Valid() {
		err = errors.Wrapf(ErrUnsupportedCrypto, "'%s'", c)
	}
	return
}

func (c CryptoType) SignatureLength() int {
	switch c {
	case CryptoSecp256k1:
		return 65
	case CryptoEd25519:
		return 96
	}
	return 0
}
