package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"

	"github.com/alexdcox/appchain-go"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

var log = appchain.Log()

func generateKey(typ appchain.CryptoType) (key []byte, err error) {
	switch typ {
	case appchain.CryptoSecp256k1:
		pk, err2 := ethcrypto.GenerateKey()
		if err2 != nil {
			return nil, errors.Wrap(err2, "failed to generate secp256k1 key")
		}
		return ethcrypto.FromECDSA(pk), nil
	case appchain.CryptoEd25519:
		key = make([]byte, ed25519.SeedSize)
		if _, err = rand.Read(key); err != nil {
			return nil, errors.Wrap(err, "failed to generate random seed")
		}
		return
	}
	return nil, typ.Validate()
}

func main() {
	cryptoFlag := flag.String("crypto", string(appchain.CryptoSecp256k1), "key type (secp256k1|ed25519)")
	flag.Parse()

	typ := appchain.CryptoType(*cryptoFlag)

	key, err := generateKey(typ)
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	signer, err := appchain.NewSigner(hex.EncodeToString(key), typ)
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	fmt.Println("")
	fmt.Println("Generated new appchain account:")
	fmt.Println("")
	fmt.Printf("key type:       %s\n", typ)
	fmt.Printf("private:        0x%x\n", key)
	if pub, ok := signer.(interface{ PublicKey() []byte }); ok {
		fmt.Printf("public:         0x%x\n", pub.PublicKey())
	}
	fmt.Printf("address:        %s\n", signer.Address().Hex())
}
