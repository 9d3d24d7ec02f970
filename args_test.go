package appchain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const argsAbi = `[{"type":"constructor","inputs":[
  {"name":"a","type":"uint8"},
  {"name":"b","type":"int64"},
  {"name":"c","type":"uint256"},
  {"name":"d","type":"bool"},
  {"name":"e","type":"string"},
  {"name":"f","type":"address"},
  {"name":"g","type":"bytes"},
  {"name":"h","type":"bytes4"}
]}]`

func TestParseConstructorArgs(t *testing.T) {
	args, err := ParseConstructorArgs(argsAbi, []string{
		"255",
		"-7",
		"0x100",
		"true",
		"hello",
		"0x" + testAddress,
		"0xdead",
		"0x01020304",
	})
	require.NoError(t, err)
	require.Len(t, args, 8)

	assert.Equal(t, uint8(255), args[0])
	assert.Equal(t, int64(-7), args[1])
	assert.Equal(t, big.NewInt(256), args[2])
	assert.Equal(t, true, args[3])
	assert.Equal(t, "hello", args[4])
	assert.Equal(t, common.HexToAddress(testAddress), args[5])
	assert.Equal(t, []byte{0xde, 0xad}, args[6])
	assert.Equal(t, [4]byte{1, 2, 3, 4}, args[7])

	data, err := constructorData(testBytecode, argsAbi, args)
	require.NoError(t, err)
	assert.Greater(t, len(data), len(testBytecode))
}

func TestParseConstructorArgsErrors(t *testing.T) {
	_, err := ParseConstructorArgs(argsAbi, []string{"1"})
	assert.Error(t, err)

	valid := []string{"1", "1", "1", "true", "s", testAddress, "0x", "0x"}

	for i, bad := range []string{"256", "x", "-1", "maybe", "", "0x12", "zz", "0x0102030405"} {
		if i == 4 {
			// any string is a valid string argument
			continue
		}
		args := append([]string{}, valid...)
		args[i] = bad
		_, err = ParseConstructorArgs(argsAbi, args)
		assert.Error(t, err, "argument %d = %q", i, bad)
	}

	none, err := ParseConstructorArgs(argsAbi, nil)
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestParseConstructorArgsSignedRange(t *testing.T) {
	const int128Abi = `[{"type":"constructor","inputs":[{"name":"v","type":"int128"}]}]`

	limit := new(big.Int).Lsh(big.NewInt(1), 127)
	highest := new(big.Int).Sub(limit, big.NewInt(1))
	lowest := new(big.Int).Neg(limit)

	for _, ok := range []*big.Int{highest, lowest, big.NewInt(-1), big.NewInt(0)} {
		args, err := ParseConstructorArgs(int128Abi, []string{ok.String()})
		require.NoError(t, err, ok.String())
		assert.Equal(t, ok, args[0])
	}

	for _, bad := range []*big.Int{limit, new(big.Int).Sub(lowest, big.NewInt(1))} {
		_, err := ParseConstructorArgs(int128Abi, []string{bad.String()})
		assert.Error(t, err, bad.String())
	}

	const uint128Abi = `[{"type":"constructor","inputs":[{"name":"v","type":"uint128"}]}]`
	_, err := ParseConstructorArgs(uint128Abi, []string{limit.String()})
	assert.NoError(t, err)
	_, err = ParseConstructorArgs(uint128Abi, []string{new(big.Int).Lsh(limit, 1).String()})
	assert.Error(t, err)
}
