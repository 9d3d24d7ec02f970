package appchain

import (
	"encoding/hex"
	"math/big"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Protobuf field numbers of the node's Transaction and UnverifiedTransaction
// messages.
const (
	fieldTo              protowire.Number = 1
	fieldNonce           protowire.Number = 2
	fieldQuota           protowire.Number = 3
	fieldValidUntilBlock protowire.Number = 4
	fieldData            protowire.Number = 5
	fieldValue           protowire.Number = 6
	fieldChainID         protowire.Number = 7
	fieldVersion         protowire.Number = 8
	fieldToV1            protowire.Number = 9
	fieldChainIDV1       protowire.Number = 10

	fieldUnverifiedTransaction protowire.Number = 1
	fieldUnverifiedSignature   protowire.Number = 2
	fieldUnverifiedCrypto      protowire.Number = 3
)

const uint256Length = 32

// Transaction is the unsigned transaction body. A nil To is a contract
// deployment.
type Transaction struct {
	To              *Address
	Nonce           string
	Quota           uint64
	ValidUntilBlock uint64
	Data            []byte
	Value           *big.Int
	ChainID         *big.Int
	Version         uint32
}

// Marshal encodes the transaction. Version 0 carries the recipient as a hex
// string and a uint32 chain id; later versions use the raw 20 byte address and
// a 32 byte chain id.
func (t *Transaction) Marshal() (out []byte, err error) {
	value, err := uint256Bytes(t.Value)
	if err != nil {
		err = errors.Wrap(err, "invalid value")
		return
	}

	if t.Version == 0 && t.To != nil {
		out = appendString(out, fieldTo, t.To.String())
	}
	out = appendString(out, fieldNonce, t.Nonce)
	out = appendVarint(out, fieldQuota, t.Quota)
	out = appendVarint(out, fieldValidUntilBlock, t.ValidUntilBlock)
	out = appendBytes(out, fieldData, t.Data)
	out = appendBytes(out, fieldValue, value)

	if t.Version == 0 {
		chainID := uint64(0)
		if t.ChainID != nil {
			if !t.ChainID.IsUint64() || t.ChainID.Uint64() > 0xffffffff {
				err = errors.Errorf("chain id %s does not fit version 0 transaction", t.ChainID)
				return
			}
			chainID = t.ChainID.Uint64()
		}
		out = appendVarint(out, fieldChainID, chainID)
		return
	}

	out = appendVarint(out, fieldVersion, uint64(t.Version))
	if t.To != nil {
		out = appendBytes(out, fieldToV1, t.To.Bytes())
	}

	chainID, err := uint256Bytes(t.ChainID)
	if err != nil {
		err = errors.Wrap(err, "invalid chain id")
		return
	}
	out = appendBytes(out, fieldChainIDV1, chainID)

	return
}

func (t *Transaction) Unmarshal(data []byte) (err error) {
	*t = Transaction{}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return errors.WithStack(protowire.ParseError(n))
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return errors.WithStack(protowire.ParseError(m))
			}
			data = data[m:]

			switch num {
			case fieldQuota:
				t.Quota = v
			case fieldValidUntilBlock:
				t.ValidUntilBlock = v
			case fieldChainID:
				t.ChainID = new(big.Int).SetUint64(v)
			case fieldVersion:
				t.Version = uint32(v)
			}
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return errors.WithStack(protowire.ParseError(m))
			}
			data = data[m:]

			switch num {
			case fieldTo:
				addr, err2 := ParseAddress(string(v))
				if err2 != nil {
					return err2
				}
				t.To = &addr
			case fieldNonce:
				t.Nonce = string(v)
			case fieldData:
				t.Data = append([]byte{}, v...)
			case fieldValue:
				t.Value = new(big.Int).SetBytes(v)
			case fieldToV1:
				addr := BytesToAddress(v)
				t.To = &addr
			case fieldChainIDV1:
				t.ChainID = new(big.Int).SetBytes(v)
			}
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return errors.WithStack(protowire.ParseError(m))
			}
			data = data[m:]
		}
	}

	if t.Value == nil {
		t.Value = new(big.Int)
	}

	return
}

type SignedTransaction struct {
	Transaction *Transaction
	Hash        HexBytes
	Signature   HexBytes
	Raw         HexBytes
}

// Sign hashes the encoded body with the signer's hash function, signs the hash
// and wraps both into an UnverifiedTransaction.
func (t *Transaction) Sign(signer Signer) (signed *SignedTransaction, err error) {
	body, err := t.Marshal()
	if err != nil {
		return
	}

	hash := signer.Hash(body)

	sig, err := signer.Sign(hash)
	if err != nil {
		err = errors.Wrap(err, "failed to sign transaction")
		return
	}

	var raw []byte
	raw = protowire.AppendTag(raw, fieldUnverifiedTransaction, protowire.BytesType)
	raw = protowire.AppendBytes(raw, body)
	raw = appendBytes(raw, fieldUnverifiedSignature, sig)
	// crypto is always DEFAULT (0), which proto3 omits
	raw = appendVarint(raw, fieldUnverifiedCrypto, 0)

	signed = &SignedTransaction{
		Transaction: t,
		Hash:        hash,
		Signature:   sig,
		Raw:         raw,
	}
	return
}

// ParseUnverifiedTransaction splits a raw signed transaction into its body and
// signature.
func ParseUnverifiedTransaction(raw []byte) (tx *Transaction, sig []byte, err error) {
	var body []byte

	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			err = errors.WithStack(protowire.ParseError(n))
			return
		}
		raw = raw[n:]

		m := protowire.ConsumeFieldValue(num, typ, raw)
		if m < 0 {
			err = errors.WithStack(protowire.ParseError(m))
			return
		}

		if typ == protowire.BytesType {
			v, _ := protowire.ConsumeBytes(raw)
			switch num {
			case fieldUnverifiedTransaction:
				body = v
			case fieldUnverifiedSignature:
				sig = append([]byte{}, v...)
			}
		}
		raw = raw[m:]
	}

	tx = &Transaction{}
	err = tx.Unmarshal(body)
	return
}

func (s *SignedTransaction) RawHex() string {
	return "0x" + hex.EncodeToString(s.Raw)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func uint256Bytes(v *big.Int) (out []byte, err error) {
	out = make([]byte, uint256Length)
	if v == nil {
		return
	}
	if v.Sign() < 0 || v.BitLen() > uint256Length*8 {
		err = errors.Errorf("%s is not a uint256", v)
		return
	}
	v.FillBytes(out)
	return
}
