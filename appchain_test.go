package appchain

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAbi = `[
  {"inputs": [{"name": "initial", "type": "uint256"}], "stateMutability": "nonpayable", "type": "constructor"},
  {"inputs": [], "name": "get", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var testBytecode = []byte{0x60, 0x80, 0x60, 0x40, 0x52}

func newTestClient(t *testing.T, node *fakeNode, store Database) *Client {
	client, err := NewClient(context.Background(), &ClientOptions{
		NodeURL:      node.URL(),
		PollInterval: 5 * time.Millisecond,
		Store:        store,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestClient_CurrentValidUntilBlock(t *testing.T) {
	node := newFakeNode(t, 1)
	client := newTestClient(t, node, nil)

	number, err := client.CurrentValidUntilBlock(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), number, "zero offset is the current height")

	number, err = client.DefaultValidUntilBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(188), number)

	number, err = client.CurrentValidUntilBlock(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, uint64(112), number)

	node.failMethod = "blockNumber"
	_, err = client.CurrentValidUntilBlock(context.Background(), 0)
	assert.ErrorIs(t, err, ErrRpcFailed)
	assert.Contains(t, err.Error(), "currentValidUntilBlock failed")
}

func TestClient_FetchedChainID(t *testing.T) {
	node := newFakeNode(t, 1)
	client := newTestClient(t, node, nil)

	id, err := client.FetchedChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id.Int64())

	node.meta["chainIdV1"] = ""
	node.meta["chainId"] = 7
	id, err = client.FetchedChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), id.Int64())
}

func TestClient_DeployContract(t *testing.T) {
	node := newFakeNode(t, 2)
	client := newTestClient(t, node, nil)

	params := &TxParams{PrivateKey: testPrivateKey, Version: Uint32(0)}

	result, err := client.DeployContract(context.Background(), testBytecode, testAbi, []any{big.NewInt(42)}, params)
	require.NoError(t, err)
	assert.Equal(t, "OK", result.Status)

	require.Len(t, node.sent, 1)
	tx := node.sent[0]

	assert.Nil(t, tx.To)
	assert.Equal(t, uint32(2), tx.Version, "version must follow node metadata")
	assert.Equal(t, uint64(188), tx.ValidUntilBlock)
	assert.Equal(t, DefaultQuota, tx.Quota)
	assert.Equal(t, int64(1), tx.ChainID.Int64())
	assert.NotEmpty(t, tx.Nonce)
	assert.Equal(t, testBytecode, tx.Data[:len(testBytecode)])
	assert.Equal(t, big.NewInt(42).FillBytes(make([]byte, 32)), tx.Data[len(testBytecode):])

	assert.Equal(t, uint32(0), *params.Version, "caller params must not be modified")
	assert.Nil(t, params.ValidUntilBlock)
}

func TestClient_DeployContractKeepsValidUntilBlock(t *testing.T) {
	node := newFakeNode(t, 1)
	client := newTestClient(t, node, nil)

	_, err := client.DeployContract(context.Background(), testBytecode, nil, nil, &TxParams{
		PrivateKey:      testPrivateKey,
		ValidUntilBlock: Uint64(500),
		Quota:           99,
		Nonce:           "fixed",
	})
	require.NoError(t, err)

	require.Len(t, node.sent, 1)
	assert.Equal(t, uint64(500), node.sent[0].ValidUntilBlock)
	assert.Equal(t, uint64(99), node.sent[0].Quota)
	assert.Equal(t, "fixed", node.sent[0].Nonce)
	assert.Equal(t, testBytecode, node.sent[0].Data)
	assert.Equal(t, 0, node.calls["blockNumber"])
}

func TestClient_DeployContractErrors(t *testing.T) {
	node := newFakeNode(t, 1)
	client := newTestClient(t, node, nil)

	_, err := client.DeployContract(context.Background(), testBytecode, nil, []any{big.NewInt(1)}, &TxParams{PrivateKey: testPrivateKey})
	assert.ErrorIs(t, err, ErrInvalidAbi)

	_, err = client.DeployContract(context.Background(), testBytecode, nil, nil, &TxParams{PrivateKey: "zz"})
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, err = client.DeployContract(context.Background(), testBytecode, nil, nil, &TxParams{
		PrivateKey: testPrivateKey,
		From:       "0x0000000000000000000000000000000000000001",
	})
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	node.failMethod = "sendRawTransaction"
	_, err = client.DeployContract(context.Background(), testBytecode, nil, nil, &TxParams{PrivateKey: testPrivateKey})
	assert.ErrorIs(t, err, ErrRpcFailed)
	assert.Contains(t, err.Error(), "sendDeployContract failed")

	assert.Empty(t, node.sent)
}

func TestClient_StoreAbi(t *testing.T) {
	node := newFakeNode(t, 0)
	client := newTestClient(t, node, nil)

	contract := "0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD"

	_, err := client.StoreAbi(context.Background(), contract, testAbi, &TxParams{PrivateKey: testPrivateKey, From: testAddress})
	require.NoError(t, err)

	require.Len(t, node.sent, 1)
	tx := node.sent[0]

	require.NotNil(t, tx.To)
	assert.Equal(t, AbiAddress, *tx.To)
	assert.Equal(t, uint32(0), tx.Version)

	compact, err := CompactAbi(testAbi)
	require.NoError(t, err)

	expected, err := decodeHexPayload("abcdefabcdefabcdefabcdefabcdefabcdefabcd" + FromUtf8(compact))
	require.NoError(t, err)
	assert.Equal(t, expected, tx.Data)
}

func TestClient_StoreAbiCheck(t *testing.T) {
	for _, version := range []uint32{0, 1} {
		node := newFakeNode(t, version)
		node.receiptDelay = 2
		client := newTestClient(t, node, nil)

		contract := "abcdefabcdefabcdefabcdefabcdefabcdefabcd"

		receipt, err := client.StoreAbiCheck(context.Background(), contract, testAbi, &TxParams{PrivateKey: testPrivateKey})
		require.NoError(t, err)
		assert.False(t, receipt.Failed())

		expectedTag := BlockTagLatest
		if version >= 1 {
			expectedTag = BlockTagPending
		}
		assert.Equal(t, []string{expectedTag}, node.abiTags)
		assert.Equal(t, 3, node.receiptPolls)
	}
}

func TestClient_StoreAbiCheckFailures(t *testing.T) {
	contract := "abcdefabcdefabcdefabcdefabcdefabcdefabcd"

	node := newFakeNode(t, 1)
	node.dropAbi = true
	client := newTestClient(t, node, nil)

	_, err := client.StoreAbiCheck(context.Background(), contract, testAbi, &TxParams{PrivateKey: testPrivateKey})
	assert.ErrorIs(t, err, ErrStoreAbiFailed)

	node = newFakeNode(t, 1)
	message := "Reverted."
	node.errorMessage = &message
	client = newTestClient(t, node, nil)

	_, err = client.StoreAbiCheck(context.Background(), contract, testAbi, &TxParams{PrivateKey: testPrivateKey})
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Contains(t, err.Error(), "Reverted.")
	assert.Empty(t, node.abiTags)

	_, err = client.StoreAbiCheck(context.Background(), "not-an-address", testAbi, &TxParams{PrivateKey: testPrivateKey})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = client.StoreAbiCheck(context.Background(), contract, "{not json", &TxParams{PrivateKey: testPrivateKey})
	assert.ErrorIs(t, err, ErrInvalidAbi)
}

func TestClient_PollReceipt(t *testing.T) {
	node := newFakeNode(t, 1)
	node.receiptDelay = -1
	client := newTestClient(t, node, nil)

	_, err := client.PollReceipt(context.Background(), "0x01")
	assert.ErrorIs(t, err, ErrReceiptTimeout)
	assert.Equal(t, int(DefaultPollRetries)+1, node.receiptPolls)

	node.failMethod = "getTransactionReceipt"
	node.receiptPolls = 0
	_, err = client.PollReceipt(context.Background(), "0x01")
	assert.ErrorIs(t, err, ErrRpcFailed)
	assert.Equal(t, 0, node.receiptPolls, "rpc errors must stop polling")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.PollReceipt(ctx, "0x01")
	assert.Error(t, err)
}

func TestClient_PollReceiptCachesAndBroadcasts(t *testing.T) {
	node := newFakeNode(t, 1)
	node.receiptDelay = 1
	store := NewInMemoryDatabase()
	client := newTestClient(t, node, store)

	result, err := client.DeployContract(context.Background(), testBytecode, nil, nil, &TxParams{PrivateKey: testPrivateKey})
	require.NoError(t, err)

	receipt, err := client.PollReceipt(context.Background(), result.Hash.String())
	require.NoError(t, err)
	require.NotNil(t, receipt.ContractAddress)
	assert.Equal(t, 2, node.receiptPolls)

	_, err = client.PollReceipt(context.Background(), result.Hash.String())
	require.NoError(t, err)
	assert.Equal(t, 2, node.receiptPolls, "found receipts are served from cache")

	require.NoError(t, client.receipts.drain(time.Second))

	ref, err := store.GetReceipt(result.Hash.String())
	require.NoError(t, err)
	assert.Equal(t, receipt.ContractAddress.String(), ref.ContractAddress)
	assert.Equal(t, uint64(101), ref.BlockNumber)
}

func TestClient_DeployAndStoreAbi(t *testing.T) {
	node := newFakeNode(t, 1)
	store := NewInMemoryDatabase()
	client := newTestClient(t, node, store)

	deployment, err := client.DeployAndStoreAbi(context.Background(), testBytecode, testAbi, []any{big.NewInt(7)}, &TxParams{
		PrivateKey: testPrivateKey,
		Nonce:      "deploy-nonce",
	})
	require.NoError(t, err)

	assert.True(t, deployment.AbiStored)
	assert.Equal(t, testAddress, deployment.Deployer)
	assert.Equal(t, uint64(101), deployment.BlockNumber)

	require.Len(t, node.sent, 2)
	assert.Nil(t, node.sent[0].To)
	assert.Equal(t, AbiAddress, *node.sent[1].To)
	assert.Equal(t, "deploy-nonce", node.sent[0].Nonce)
	assert.NotEqual(t, "deploy-nonce", node.sent[1].Nonce)

	stored, err := store.GetDeployment(deployment.Address)
	require.NoError(t, err)
	assert.True(t, stored.AbiStored)
	assert.Equal(t, deployment.AbiTxHash, stored.AbiTxHash)
	assert.Equal(t, deployment.TxHash, stored.TxHash)
}

func TestClient_DeployAndStoreAbiFailedDeploy(t *testing.T) {
	node := newFakeNode(t, 1)
	message := "Out of quota."
	node.errorMessage = &message
	client := newTestClient(t, node, nil)

	_, err := client.DeployAndStoreAbi(context.Background(), testBytecode, testAbi, nil, &TxParams{PrivateKey: testPrivateKey})
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Len(t, node.sent, 1)
}

func TestClient_SendTransactionAndQueries(t *testing.T) {
	node := newFakeNode(t, 1)
	client := newTestClient(t, node, nil)
	ctx := context.Background()

	signer, err := NewSigner(testPrivateKey, CryptoSecp256k1)
	require.NoError(t, err)

	to := MustParseAddress("0x" + testAddress)
	tx := &Transaction{
		To:              &to,
		Nonce:           "send-test",
		Quota:           21000,
		ValidUntilBlock: 150,
		Value:           big.NewInt(7),
		ChainID:         big.NewInt(1),
		Version:         1,
	}

	signed, err := tx.Sign(signer)
	require.NoError(t, err)

	result, err := client.SendTransaction(ctx, tx, signer)
	require.NoError(t, err)
	assert.Equal(t, "OK", result.Status)
	assert.Equal(t, signed.Hash.String(), result.Hash.String())

	require.Len(t, node.sent, 1)
	assert.Equal(t, "send-test", node.sent[0].Nonce)
	assert.Equal(t, int64(7), node.sent[0].Value.Int64())

	count, err := client.TransactionCount(ctx, to, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	code, err := client.Code(ctx, to, BlockTagLatest)
	require.NoError(t, err)
	assert.Equal(t, HexBytes{0x60, 0x80}, code)

	number, err := client.BlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), number)
}

func TestClient_OnReceiptFor(t *testing.T) {
	node := newFakeNode(t, 1)
	client := newTestClient(t, node, nil)
	ctx := context.Background()

	first, err := client.DeployContract(ctx, testBytecode, nil, nil, &TxParams{PrivateKey: testPrivateKey})
	require.NoError(t, err)
	second, err := client.DeployContract(ctx, testBytecode, nil, nil, &TxParams{PrivateKey: testPrivateKey})
	require.NoError(t, err)

	var seen []string
	var all int
	cleanup := client.OnReceiptFor(first.Hash.String(), func(r *Receipt) {
		seen = append(seen, r.TransactionHash.String())
	})
	defer cleanup()
	client.OnReceipt(func(*Receipt) { all++ })

	_, err = client.PollReceipt(ctx, first.Hash.String())
	require.NoError(t, err)
	_, err = client.PollReceipt(ctx, second.Hash.String())
	require.NoError(t, err)

	// cached receipts are not delivered again
	_, err = client.PollReceipt(ctx, first.Hash.String())
	require.NoError(t, err)
	_, err = client.TransactionReceipt(ctx, first.Hash.String())
	require.NoError(t, err)

	require.NoError(t, client.receipts.drain(time.Second))
	assert.Equal(t, []string{first.Hash.String()}, seen)
	assert.Equal(t, 2, all)
}
