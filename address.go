package appchain

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

const AddressLength = 20

// AbiAddress is the reserved system contract that stores contract abis. The
// payload sent to it is the contract address followed by the abi bytes.
var AbiAddress = MustParseAddress("ffffffffffffffffffffffffffffffffff010001")

type Address [AddressLength]byte

// String returns the lowercase hex form without a 0x prefix, which is the form
// the node expects inside abi payloads.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) Hex() string {
	return "0x" + a.String()
}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.Hex() + `"`), nil
}

func (a *Address) UnmarshalJSON(data []byte) (err error) {
	var s string
	if err = json.Unmarshal(data, &s); err != nil {
		return errors.WithStack(err)
	}

	parsed, err := ParseAddress(s)
	if err != nil {
		return
	}

	*a = parsed
	return
}

// ParseAddress accepts 40 hex characters with or without a 0x prefix, in any
// case.
func ParseAddress(s string) (addr Address, err error) {
	trimmed := strings.ToLower(TrimHexPrefix(strings.TrimSpace(s)))

	if len(trimmed) != AddressLength*2 {
		err = errors.Wrapf(ErrInvalidAddress, "expected %d hex characters, got %d in '%s'", AddressLength*2, len(trimmed), s)
		return
	}

	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		err = errors.Wrapf(ErrInvalidAddress, "'%s': %v", s, err)
		return
	}

	copy(addr[:], decoded)
	return
}

func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

func BytesToAddress(b []byte) (addr Address) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(addr[AddressLength-len(b):], b)
	return
}

// AddressFromPrivateKey derives the account address for a hex encoded private
// key under the given crypto scheme.
func AddressFromPrivateKey(privateKey string, crypto CryptoType) (addr Address, err error) {
	signer, err := NewSigner(privateKey, crypto)
	if err != nil {
		return
	}
	return signer.Address(), nil
}
