package appchain

import (
	"encoding/hex"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// ParseConstructorArgs converts textual arguments into the go values the abi
// encoder expects for the constructor inputs of contractAbi. Integers accept
// decimal or 0x hex, bytes are hex. Arrays and tuples are not supported.
func ParseConstructorArgs(contractAbi any, args []string) (out []any, err error) {
	if len(args) == 0 {
		return
	}

	compact, err := CompactAbi(contractAbi)
	if err != nil {
		return
	}

	parsed, err := abi.JSON(strings.NewReader(compact))
	if err != nil {
		err = errors.Wrap(ErrInvalidAbi, err.Error())
		return
	}

	inputs := parsed.Constructor.Inputs
	if len(inputs) != len(args) {
		err = errors.Errorf("constructor takes %d arguments, got %d", len(inputs), len(args))
		return
	}

	out = make([]any, len(args))
	for i, input := range inputs {
		out[i], err = parseArg(input.Type, strings.TrimSpace(args[i]))
		if err != nil {
			err = errors.Wrapf(err, "argument %d (%s %s)", i, input.Name, input.Type.String())
			return
		}
	}

	return
}

func parseArg(typ abi.Type, s string) (v any, err error) {
	switch typ.T {
	case abi.UintTy, abi.IntTy:
		return parseInteger(typ, s)
	case abi.BoolTy:
		v, err = strconv.ParseBool(s)
		err = errors.WithStack(err)
		return
	case abi.StringTy:
		return s, nil
	case abi.AddressTy:
		addr, err2 := ParseAddress(s)
		if err2 != nil {
			return nil, err2
		}
		return common.Address(addr), nil
	case abi.BytesTy:
		b, err2 := hex.DecodeString(TrimHexPrefix(s))
		if err2 != nil {
			return nil, errors.WithStack(err2)
		}
		return b, nil
	case abi.FixedBytesTy:
		b, err2 := hex.DecodeString(TrimHexPrefix(s))
		if err2 != nil {
			return nil, errors.WithStack(err2)
		}
		if len(b) > typ.Size {
			return nil, errors.Errorf("%d bytes do not fit bytes%d", len(b), typ.Size)
		}
		arr := reflect.New(typ.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	}

	return nil, errors.Errorf("unsupported argument type %s", typ.String())
}

func parseInteger(typ abi.Type, s string) (v any, err error) {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		err = errors.Errorf("'%s' is not an integer", s)
		return
	}

	if typ.T == abi.UintTy && n.Sign() < 0 {
		err = errors.Errorf("%s is negative", s)
		return
	}

	goType := typ.GetType()
	if goType == reflect.TypeOf(&big.Int{}) {
		if !fitsBigInt(typ, n) {
			err = errors.Errorf("%s overflows %s", s, typ.String())
		}
		return n, err
	}

	rv := reflect.New(goType).Elem()
	if typ.T == abi.UintTy {
		if !n.IsUint64() || rv.OverflowUint(n.Uint64()) {
			return nil, errors.Errorf("%s overflows %s", s, typ.String())
		}
		rv.SetUint(n.Uint64())
	} else {
		if !n.IsInt64() || rv.OverflowInt(n.Int64()) {
			return nil, errors.Errorf("%s overflows %s", s, typ.String())
		}
		rv.SetInt(n.Int64())
	}

	return rv.Interface(), nil
}

// fitsBigInt checks n against the two's complement range of a signed type or
// the unsigned range otherwise.
func fitsBigInt(typ abi.Type, n *big.Int) bool {
	if typ.T == abi.UintTy {
		return n.BitLen() <= typ.Size
	}
	if n.BitLen() < typ.Size {
		return true
	}
	lowest := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(typ.Size-1)))
	return n.Cmp(lowest) == 0
}
