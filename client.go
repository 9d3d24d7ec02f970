package appchain

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

func NewClient(ctx context.Context, options *ClientOptions) (client *Client, err error) {
	if options == nil {
		options = &ClientOptions{}
	}
	options.setDefaults()

	if err = options.Crypto.Validate(); err != nil {
		return
	}

	receiptCache, err := lru.New[string, *Receipt](options.ReceiptCacheSize)
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	log.Info().Msgf("dialing node %s", options.NodeURL)

	rpcClient, err := rpc.DialContext(ctx, options.NodeURL)
	if err != nil {
		err = errors.Wrapf(err, "failed to dial node %s", options.NodeURL)
		return
	}

	client = &Client{
		options:  options,
		rpc:      rpcClient,
		log:      ComponentLogger("client", map[string]any{"node": options.NodeURL}),
		receipts: newReceiptFeed(),
		cache:    receiptCache,
		store:    options.Store,
	}

	if client.store != nil {
		client.OnReceipt(client.recordReceipt)
	}

	return
}

type Client struct {
	options  *ClientOptions
	rpc      *rpc.Client
	log      *zerolog.Logger
	receipts *receiptFeed
	cache    *lru.Cache[string, *Receipt]
	store    Database
}

func (c *Client) Options() ClientOptions {
	return *c.options
}

// OnReceipt registers a callback for every receipt the client fetches from
// the node.
func (c *Client) OnReceipt(cb func(receipt *Receipt)) (cleanup func()) {
	return c.receipts.subscribe("", cb)
}

// OnReceiptFor registers a callback for the receipt of a single transaction.
func (c *Client) OnReceiptFor(hash string, cb func(receipt *Receipt)) (cleanup func()) {
	return c.receipts.subscribe(hash, cb)
}

func (c *Client) recordReceipt(receipt *Receipt) {
	if err := c.store.AddReceipt(receipt.Ref()); err != nil {
		c.log.Error().Msgf("failed to record receipt %s: %+v", receipt.TransactionHash, err)
	}
}

func (c *Client) Close() {
	c.log.Info().Msg("closing client")
	if err := c.receipts.drain(c.options.PollInterval); err != nil {
		c.log.Warn().Msgf("%v", err)
	}
	c.receipts.close()
	c.rpc.Close()
}

func (c *Client) call(ctx context.Context, result any, method string, args ...any) (err error) {
	c.log.Trace().Msgf("rpc %s %v", method, args)

	err = c.rpc.CallContext(ctx, result, method, args...)
	if err == nil {
		return
	}

	metricRpcErrors.WithLabelValues(method).Inc()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.WithStack(err)
	}

	return errors.Wrapf(ErrRpcFailed, "%s: %v", method, err)
}

func (c *Client) BlockNumber(ctx context.Context) (number uint64, err error) {
	var out hexutil.Uint64
	if err = c.call(ctx, &out, "blockNumber"); err != nil {
		return
	}
	return uint64(out), nil
}

func (c *Client) MetaData(ctx context.Context, tag string) (meta *MetaData, err error) {
	if tag == "" {
		tag = BlockTagLatest
	}
	meta = &MetaData{}
	err = c.call(ctx, meta, "getMetaData", tag)
	return
}

// TransactionReceipt returns nil while the transaction is pending. A receipt
// is published to subscribers the first time it is fetched from the node.
func (c *Client) TransactionReceipt(ctx context.Context, hash string) (receipt *Receipt, err error) {
	hash = normaliseHash(hash)

	if cached, ok := c.cache.Get(hash); ok {
		return cached, nil
	}

	if err = c.call(ctx, &receipt, "getTransactionReceipt", hash); err != nil {
		return
	}

	if receipt != nil {
		c.cache.Add(hash, receipt)
		c.receipts.publish(receipt)
	}

	return
}

// Abi returns the hex encoded abi stored for the address, "0x" when none is.
func (c *Client) Abi(ctx context.Context, address Address, tag string) (abi string, err error) {
	if tag == "" {
		tag = BlockTagLatest
	}
	err = c.call(ctx, &abi, "getAbi", address.Hex(), tag)
	return
}

func (c *Client) Code(ctx context.Context, address Address, tag string) (code HexBytes, err error) {
	if tag == "" {
		tag = BlockTagLatest
	}
	err = c.call(ctx, &code, "getCode", address.Hex(), tag)
	return
}

func (c *Client) TransactionCount(ctx context.Context, address Address, tag string) (count uint64, err error) {
	if tag == "" {
		tag = BlockTagLatest
	}
	var out hexutil.Uint64
	if err = c.call(ctx, &out, "getTransactionCount", address.Hex(), tag); err != nil {
		return
	}
	return uint64(out), nil
}

func (c *Client) SendRawTransaction(ctx context.Context, raw string) (result *SendTransactionResult, err error) {
	result = &SendTransactionResult{}
	err = c.call(ctx, result, "sendRawTransaction", raw)
	return
}

// SendTransaction signs tx and submits it.
func (c *Client) SendTransaction(ctx context.Context, tx *Transaction, signer Signer) (result *SendTransactionResult, err error) {
	return c.sendTransaction(ctx, tx, signer, txKindOther)
}

func (c *Client) sendTransaction(ctx context.Context, tx *Transaction, signer Signer, kind string) (result *SendTransactionResult, err error) {
	signed, err := tx.Sign(signer)
	if err != nil {
		return
	}

	c.log.Debug().Msgf(
		"sending %s transaction %s from %s (version %d, quota %d, valid until block %d)",
		kind,
		signed.Hash,
		signer.Address().Hex(),
		tx.Version,
		tx.Quota,
		tx.ValidUntilBlock,
	)

	result, err = c.SendRawTransaction(ctx, signed.RawHex())
	if err != nil {
		return
	}

	metricTransactionsSent.WithLabelValues(kind).Inc()
	c.log.Info().Msgf("sent %s transaction %s, status: %s", kind, result.Hash, result.Status)

	return
}

// FetchedChainID returns chainIdV1 when the node reports one, otherwise the
// version 0 chainId.
func (c *Client) FetchedChainID(ctx context.Context) (id *big.Int, err error) {
	meta, err := c.MetaData(ctx, BlockTagLatest)
	if err != nil {
		return
	}
	return meta.ChainIDValue()
}

func normaliseHash(hash string) string {
	return "0x" + strings.ToLower(TrimHexPrefix(strings.TrimSpace(hash)))
}

func decodeHexPayload(payload string) (data []byte, err error) {
	data, err = hex.DecodeString(TrimHexPrefix(payload))
	err = errors.WithStack(err)
	return
}
