package appchain

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	"filippo.io/edwards25519"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

type Signer interface {
	Crypto() CryptoType
	Address() Address
	Hash(data []byte) []byte
	Sign(hash []byte) ([]byte, error)
}

func NewSigner(privateKey string, typ CryptoType) (signer Signer, err error) {
	if err = typ.Validate(); err != nil {
		return
	}

	key, err := hex.DecodeString(TrimHexPrefix(strings.TrimSpace(privateKey)))
	if err != nil {
		err = errors.Wrap(ErrInvalidPrivateKey, "private key is not hex")
		return
	}

	switch typ {
	case CryptoSecp256k1:
		return NewSecp256k1Signer(key)
	case CryptoEd25519:
		return NewEd25519Signer(key)
	}

	return
}

type Secp256k1Signer struct {
	key     *ecdsa.PrivateKey
	address Address
}

var _ Signer = &Secp256k1Signer{}

func NewSecp256k1Signer(key []byte) (signer *Secp256k1Signer, err error) {
	private, err := crypto.ToECDSA(key)
	if err != nil {
		err = errors.Wrap(ErrInvalidPrivateKey, err.Error())
		return
	}

	signer = &Secp256k1Signer{
		key:     private,
		address: Address(crypto.PubkeyToAddress(private.PublicKey)),
	}
	return
}

func (s *Secp256k1Signer) Crypto() CryptoType { return CryptoSecp256k1 }

func (s *Secp256k1Signer) Address() Address { return s.address }

func (s *Secp256k1Signer) PublicKey() []byte {
	return crypto.FromECDSAPub(&s.key.PublicKey)[1:]
}

func (s *Secp256k1Signer) Hash(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// Sign returns r || s || v with v in {0, 1}.
func (s *Secp256k1Signer) Sign(hash []byte) (sig []byte, err error) {
	sig, err = crypto.Sign(hash, s.key)
	err = errors.WithStack(err)
	return
}

type Ed25519Signer struct {
	key     ed25519.PrivateKey
	address Address
}

var _ Signer = &Ed25519Signer{}

// NewEd25519Signer accepts either a 32 byte seed or a 64 byte seed || public
// key. For the latter the public half must match the one derived from the seed.
func NewEd25519Signer(key []byte) (signer *Ed25519Signer, err error) {
	var private ed25519.PrivateKey

	switch len(key) {
	case ed25519.SeedSize:
		private = ed25519.NewKeyFromSeed(key)
	case ed25519.PrivateKeySize:
		derived, err2 := derivePublicKey(key[:ed25519.SeedSize])
		if err2 != nil {
			err = err2
			return
		}
		if string(derived) != string(key[ed25519.SeedSize:]) {
			err = errors.Wrap(ErrInvalidPrivateKey, "ed25519 public key does not match seed")
			return
		}
		private = ed25519.PrivateKey(append([]byte{}, key...))
	default:
		err = errors.Wrapf(ErrInvalidPrivateKey, "ed25519 key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(key))
		return
	}

	pub := private.Public().(ed25519.PublicKey)
	hash := blake2b.Sum256(pub)

	signer = &Ed25519Signer{
		key:     private,
		address: BytesToAddress(hash[:]),
	}
	return
}

func derivePublicKey(seed []byte) (pub []byte, err error) {
	h := sha512.Sum512(seed)

	var scalar edwards25519.Scalar
	if _, err = scalar.SetBytesWithClamping(h[:32]); err != nil {
		err = errors.Wrap(ErrInvalidPrivateKey, err.Error())
		return
	}

	var p edwards25519.Point
	p.ScalarBaseMult(&scalar)
	return p.Bytes(), nil
}

func (s *Ed25519Signer) Crypto() CryptoType { return CryptoEd25519 }

func (s *Ed25519Signer) Address() Address { return s.address }

func (s *Ed25519Signer) PublicKey() []byte {
	return s.key.Public().(ed25519.PublicKey)
}

func (s *Ed25519Signer) Hash(data []byte) []byte {
	h := blake2b.Sum256(data)
	return h[:]
}

// Sign returns the 64 byte signature followed by the 32 byte public key.
func (s *Ed25519Signer) Sign(hash []byte) ([]byte, error) {
	sig := ed25519.Sign(s.key, hash)
	return append(sig, s.PublicKey()...), nil
}
