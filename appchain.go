package appchain

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

// CurrentValidUntilBlock returns the current block number plus add.
func (c *Client) CurrentValidUntilBlock(ctx context.Context, add uint64) (number uint64, err error) {
	current, err := c.BlockNumber(ctx)
	if err != nil {
		err = errors.Wrap(err, "currentValidUntilBlock failed")
		return
	}

	return current + add, nil
}

// DefaultValidUntilBlock is CurrentValidUntilBlock with the client's
// configured offset.
func (c *Client) DefaultValidUntilBlock(ctx context.Context) (number uint64, err error) {
	return c.CurrentValidUntilBlock(ctx, c.options.ValidUntilBlockOffset)
}

// prepare resolves every unset transaction field. meta may be nil, in which
// case it is only fetched if the version or chain id are unknown.
func (c *Client) prepare(ctx context.Context, params *TxParams, meta *MetaData, to *Address, data []byte) (tx *Transaction, signer Signer, err error) {
	signer, err = NewSigner(params.PrivateKey, c.options.Crypto)
	if err != nil {
		return
	}

	if params.From != "" {
		from, err2 := ParseAddress(params.From)
		if err2 != nil {
			err = errors.Wrap(err2, "invalid from address")
			return
		}
		if from != signer.Address() {
			err = errors.Wrapf(ErrInvalidPrivateKey, "key address %s does not match from %s", signer.Address(), from)
			return
		}
	}

	if meta == nil && (params.Version == nil || params.ChainID == nil) {
		meta, err = c.MetaData(ctx, BlockTagLatest)
		if err != nil {
			return
		}
	}

	if params.Version == nil {
		params.Version = Uint32(meta.Version)
	}

	if params.ChainID == nil {
		params.ChainID, err = meta.ChainIDValue()
		if err != nil {
			return
		}
	}

	if params.ValidUntilBlock == nil {
		validUntil, err2 := c.DefaultValidUntilBlock(ctx)
		if err2 != nil {
			err = err2
			return
		}
		params.ValidUntilBlock = &validUntil
	}

	if params.Quota == 0 {
		params.Quota = c.options.Quota
	}

	tx = &Transaction{
		To:              to,
		Nonce:           params.nonce(),
		Quota:           params.Quota,
		ValidUntilBlock: *params.ValidUntilBlock,
		Data:            data,
		Value:           params.value(),
		ChainID:         params.ChainID,
		Version:         *params.Version,
	}

	return
}

// DeployContract sends a contract creation transaction. The transaction
// version always follows the node's metadata. When args are given they are
// abi encoded against the constructor in contractAbi and appended to the
// bytecode.
func (c *Client) DeployContract(ctx context.Context, bytecode []byte, contractAbi any, args []any, params *TxParams) (result *SendTransactionResult, err error) {
	p := params.copy()

	meta, err := c.MetaData(ctx, BlockTagLatest)
	if err != nil {
		return
	}
	p.Version = Uint32(meta.Version)

	data, err := constructorData(bytecode, contractAbi, args)
	if err != nil {
		return
	}

	tx, signer, err := c.prepare(ctx, p, meta, nil, data)
	if err != nil {
		return
	}

	result, err = c.sendTransaction(ctx, tx, signer, txKindDeploy)
	if err != nil {
		err = errors.Wrap(err, "sendDeployContract failed")
		return
	}

	return
}

func constructorData(bytecode []byte, contractAbi any, args []any) (data []byte, err error) {
	data = append([]byte{}, bytecode...)

	if len(args) == 0 {
		return
	}

	if contractAbi == nil {
		err = errors.Wrap(ErrInvalidAbi, "constructor arguments given without an abi")
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

	packed, err := parsed.Pack("", args...)
	if err != nil {
		err = errors.Wrap(err, "failed to pack constructor arguments")
		return
	}

	return append(data, packed...), nil
}

// AbiPayload builds the data sent to AbiAddress: the contract address followed
// by the utf-8 bytes of the compact abi json.
func AbiPayload(contractAddress string, contractAbi any) (payload []byte, err error) {
	addr, err := ParseAddress(contractAddress)
	if err != nil {
		return
	}

	compact, err := CompactAbi(contractAbi)
	if err != nil {
		return
	}

	return decodeHexPayload(addr.String() + FromUtf8(compact))
}

// StoreAbi publishes the abi of contractAddress to the abi system contract.
func (c *Client) StoreAbi(ctx context.Context, contractAddress string, contractAbi any, params *TxParams) (result *SendTransactionResult, err error) {
	data, err := AbiPayload(contractAddress, contractAbi)
	if err != nil {
		return
	}

	to := AbiAddress
	tx, signer, err := c.prepare(ctx, params.copy(), nil, &to, data)
	if err != nil {
		return
	}

	c.log.Debug().Msgf("storing abi for %s", contractAddress)

	return c.sendTransaction(ctx, tx, signer, txKindStoreAbi)
}

// StoreAbiCheck stores the abi, waits for the receipt and reads the abi back
// from the node to confirm it landed.
func (c *Client) StoreAbiCheck(ctx context.Context, contractAddress string, contractAbi any, params *TxParams) (receipt *Receipt, err error) {
	addr, err := ParseAddress(contractAddress)
	if err != nil {
		return
	}

	result, err := c.StoreAbi(ctx, contractAddress, contractAbi, params)
	if err != nil {
		return
	}

	receipt, err = c.PollReceipt(ctx, result.Hash.String())
	if err != nil {
		return
	}

	if receipt.Failed() {
		err = errors.Wrap(ErrTransactionFailed, *receipt.ErrorMessage)
		return
	}

	meta, err := c.MetaData(ctx, BlockTagLatest)
	if err != nil {
		return
	}

	stored, err := c.Abi(ctx, addr, meta.AbiBlockTag())
	if err != nil {
		return
	}

	if TrimHexPrefix(stored) == "" {
		c.log.Error().Msgf("store abi failure for %s", addr)
		err = errors.Wrapf(ErrStoreAbiFailed, "no abi at %s after tx %s", addr, result.Hash)
		return
	}

	c.log.Info().Msgf("store abi success for %s", addr)

	if c.store != nil {
		if err2 := c.store.SetAbiStored(addr.String(), result.Hash.String()); err2 != nil {
			c.log.Error().Msgf("failed to record stored abi for %s: %+v", addr, err2)
		}
	}

	return
}

// DeployAndWait deploys the contract and waits for the receipt to report its
// address.
func (c *Client) DeployAndWait(ctx context.Context, bytecode []byte, contractAbi any, args []any, params *TxParams) (deployment *Deployment, err error) {
	result, err := c.DeployContract(ctx, bytecode, contractAbi, args, params)
	if err != nil {
		return
	}

	receipt, err := c.PollReceipt(ctx, result.Hash.String())
	if err != nil {
		return
	}

	if receipt.Failed() {
		err = errors.Wrap(ErrTransactionFailed, *receipt.ErrorMessage)
		return
	}

	if receipt.ContractAddress == nil || receipt.ContractAddress.IsZero() {
		err = errors.Wrapf(ErrNoContractAddress, "deploy tx %s", result.Hash)
		return
	}

	signer, err := NewSigner(params.PrivateKey, c.options.Crypto)
	if err != nil {
		return
	}

	deployment = &Deployment{
		Address:     receipt.ContractAddress.String(),
		TxHash:      result.Hash.String(),
		BlockNumber: uint64(receipt.BlockNumber),
		Deployer:    signer.Address().String(),
	}

	if contractAbi != nil {
		if deployment.Abi, err = CompactAbi(contractAbi); err != nil {
			return
		}
	}

	c.log.Info().Msgf("contract deployed at %s in block %d", deployment.Address, deployment.BlockNumber)

	if c.store != nil {
		err = c.store.AddDeployment(*deployment)
	}

	return
}

// DeployAndStoreAbi deploys the contract, waits for its address and, when an
// abi is given, publishes it with a fresh nonce.
func (c *Client) DeployAndStoreAbi(ctx context.Context, bytecode []byte, contractAbi any, args []any, params *TxParams) (deployment *Deployment, err error) {
	deployment, err = c.DeployAndWait(ctx, bytecode, contractAbi, args, params)
	if err != nil || contractAbi == nil {
		return
	}

	abiParams := params.copy()
	abiParams.Nonce = ""

	abiReceipt, err := c.StoreAbiCheck(ctx, deployment.Address, contractAbi, abiParams)
	if err != nil {
		return
	}

	deployment.AbiStored = true
	deployment.AbiTxHash = abiReceipt.TransactionHash.String()

	return
}
