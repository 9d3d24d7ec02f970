package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	. "github.com/alexdcox/appchain-go"
	"github.com/alexdcox/appchain-go/rpcclient"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tidwall/gjson"
	"go.uber.org/multierr"
)

func NewHttpRpcServer(config *_config, db Database, client *Client) (server *HttpRpcServer, err error) {
	server = &HttpRpcServer{
		config: config,
		client: client,
		db:     db,
	}

	server.app = server.routes()

	return
}

type HttpRpcServer struct {
	app    *fiber.App
	client *Client
	config *_config
	db     Database
}

func (s *HttpRpcServer) routes() *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          s.txTimeout(),
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(func(c *fiber.Ctx) error {
		rsp := c.Next()
		log.Info().Msgf("http response: [%d] %s - %s %s", c.Response().StatusCode(), c.IP(), c.Method(), c.Path())
		return rsp
	})

	app.Get("/height", s.getHeight)
	app.Get("/metadata", s.getMetaData)
	app.Get("/chain-id", s.getChainID)
	app.Get("/receipt/:hash", s.getReceipt)
	app.Post("/contract/deploy", s.postContractDeploy)
	app.Get("/contract/:address/abi", s.getContractAbi)
	app.Post("/contract/:address/abi", s.postContractAbi)
	app.Get("/contract/:address", s.getContract)
	app.Post("/tools/address", s.postAddress)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

func (s *HttpRpcServer) Start() (err error) {
	log.Info().Msgf("http/rpc server listening on %s", s.config.RpcHostPort)
	return errors.WithStack(s.app.Listen(s.config.RpcHostPort))
}

func (s *HttpRpcServer) Stop() (err error) {
	err = multierr.Append(err, errors.WithStack(s.app.Shutdown()))
	s.client.Close()
	err = multierr.Append(err, s.db.Close())
	return
}

// txTimeout bounds requests that send a transaction and wait on up to two
// receipts.
func (s *HttpRpcServer) txTimeout() time.Duration {
	options := s.client.Options()
	poll := time.Duration(options.PollRetries+1) * options.PollInterval
	return 2*poll + 30*time.Second
}

func (s *HttpRpcServer) context(c *fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), timeout)
}

func (s *HttpRpcServer) errorResponse(c *fiber.Ctx, err error) error {
	statusCode := http.StatusInternalServerError

	reportedErr := err

	for _, match := range []error{
		ErrReceiptNotFound,
		ErrDeploymentNotFound,
		ErrAbiNotFound,
	} {
		if errors.Is(err, match) {
			reportedErr = match
			statusCode = http.StatusNotFound
			break
		}
	}

	for _, match := range []error{
		ErrInvalidAddress,
		ErrInvalidAbi,
		ErrInvalidPrivateKey,
		ErrUnsupportedCrypto,
	} {
		if errors.Is(err, match) {
			reportedErr = match
			statusCode = http.StatusBadRequest
			break
		}
	}

	for _, match := range []error{
		ErrReceiptTimeout,
		ErrTransactionFailed,
		ErrStoreAbiFailed,
		ErrRpcFailed,
	} {
		if errors.Is(err, match) {
			reportedErr = match
			break
		}
	}

	return c.Status(statusCode).JSON(map[string]any{
		"error":   reportedErr.Error(),
		"details": fmt.Sprintf("%+v", err),
	})
}

func (s *HttpRpcServer) txParams(quota, validUntilBlock uint64) *TxParams {
	params := &TxParams{
		PrivateKey: s.config.PrivateKey,
		Quota:      quota,
	}
	if validUntilBlock > 0 {
		params.ValidUntilBlock = Uint64(validUntilBlock)
	}
	return params
}

func (s *HttpRpcServer) getHeight(c *fiber.Ctx) error {
	ctx, cancel := s.context(c, 10*time.Second)
	defer cancel()

	height, err := s.client.BlockNumber(ctx)
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(rpcclient.GetHeightOut{Height: height})
}

func (s *HttpRpcServer) getMetaData(c *fiber.Ctx) error {
	ctx, cancel := s.context(c, 10*time.Second)
	defer cancel()

	meta, err := s.client.MetaData(ctx, c.Query("tag", BlockTagLatest))
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(meta)
}

func (s *HttpRpcServer) getChainID(c *fiber.Ctx) error {
	ctx, cancel := s.context(c, 10*time.Second)
	defer cancel()

	id, err := s.client.FetchedChainID(ctx)
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(rpcclient.GetChainIDOut{ChainID: fmt.Sprintf("0x%x", id)})
}

func (s *HttpRpcServer) getReceipt(c *fiber.Ctx) error {
	ctx, cancel := s.context(c, 10*time.Second)
	defer cancel()

	hash := c.Params("hash")

	receipt, err := s.client.TransactionReceipt(ctx, hash)
	if err != nil {
		return s.errorResponse(c, err)
	}

	if receipt == nil {
		return s.errorResponse(c, errors.Wrapf(ErrReceiptNotFound, "no receipt for %s", hash))
	}

	return c.JSON(receipt)
}

func (s *HttpRpcServer) postContractDeploy(c *fiber.Ctx) error {
	body := c.Body()
	if !gjson.ValidBytes(body) {
		return c.Status(http.StatusBadRequest).JSON(map[string]any{"error": "invalid json body"})
	}

	bytecode, err := hex.DecodeString(TrimHexPrefix(gjson.GetBytes(body, "bytecode").String()))
	if err != nil || len(bytecode) == 0 {
		return c.Status(http.StatusBadRequest).JSON(map[string]any{"error": "bytecode must be non-empty hex"})
	}

	var contractAbi any
	if raw := gjson.GetBytes(body, "abi"); raw.Exists() && raw.Type != gjson.Null {
		contractAbi = json.RawMessage(raw.Raw)
	}

	var textArgs []string
	for _, arg := range gjson.GetBytes(body, "args").Array() {
		textArgs = append(textArgs, arg.String())
	}

	var args []any
	if len(textArgs) > 0 {
		if contractAbi == nil {
			return s.errorResponse(c, errors.Wrap(ErrInvalidAbi, "constructor arguments given without an abi"))
		}
		if args, err = ParseConstructorArgs(contractAbi, textArgs); err != nil {
			return s.errorResponse(c, errors.Wrap(ErrInvalidAbi, err.Error()))
		}
	}

	params := s.txParams(
		gjson.GetBytes(body, "quota").Uint(),
		gjson.GetBytes(body, "validUntilBlock").Uint(),
	)

	ctx, cancel := s.context(c, s.txTimeout())
	defer cancel()

	var deployment *Deployment
	if gjson.GetBytes(body, "storeAbi").Bool() {
		deployment, err = s.client.DeployAndStoreAbi(ctx, bytecode, contractAbi, args, params)
	} else {
		deployment, err = s.client.DeployAndWait(ctx, bytecode, contractAbi, args, params)
	}
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(deployment)
}

func (s *HttpRpcServer) postContractAbi(c *fiber.Ctx) error {
	address, err := ParseAddress(c.Params("address"))
	if err != nil {
		return s.errorResponse(c, err)
	}

	raw := gjson.GetBytes(c.Body(), "abi")
	if !raw.Exists() || raw.Type == gjson.Null {
		return s.errorResponse(c, errors.Wrap(ErrInvalidAbi, "missing abi"))
	}

	ctx, cancel := s.context(c, s.txTimeout())
	defer cancel()

	receipt, err := s.client.StoreAbiCheck(ctx, address.String(), json.RawMessage(raw.Raw), s.txParams(0, 0))
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(rpcclient.StoreAbiOut{
		Address: address.String(),
		TxHash:  receipt.TransactionHash.String(),
		Block:   uint64(receipt.BlockNumber),
	})
}

func (s *HttpRpcServer) getContractAbi(c *fiber.Ctx) error {
	address, err := ParseAddress(c.Params("address"))
	if err != nil {
		return s.errorResponse(c, err)
	}

	ctx, cancel := s.context(c, 10*time.Second)
	defer cancel()

	meta, err := s.client.MetaData(ctx, BlockTagLatest)
	if err != nil {
		return s.errorResponse(c, err)
	}

	stored, err := s.client.Abi(ctx, address, meta.AbiBlockTag())
	if err != nil {
		return s.errorResponse(c, err)
	}

	abi, err := ToUtf8(stored)
	if err != nil {
		return s.errorResponse(c, err)
	}

	if abi == "" {
		return s.errorResponse(c, errors.Wrapf(ErrAbiNotFound, "no abi stored for %s", address))
	}

	if !gjson.Valid(abi) {
		return s.errorResponse(c, errors.Wrapf(ErrInvalidAbi, "abi stored for %s is not json", address))
	}

	return c.JSON(rpcclient.GetAbiOut{
		Address: address.String(),
		Abi:     json.RawMessage(abi),
	})
}

func (s *HttpRpcServer) getContract(c *fiber.Ctx) error {
	address, err := ParseAddress(c.Params("address"))
	if err != nil {
		return s.errorResponse(c, err)
	}

	deployment, err := s.db.GetDeployment(address.String())
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(deployment)
}

func (s *HttpRpcServer) postAddress(c *fiber.Ctx) error {
	in := &rpcclient.AddressIn{}
	if err := c.BodyParser(in); err != nil {
		return s.errorResponse(c, errors.Wrap(ErrInvalidPrivateKey, err.Error()))
	}

	if in.Crypto == "" {
		in.Crypto = CryptoType(s.config.Crypto)
	}

	address, err := AddressFromPrivateKey(in.PrivateKey, in.Crypto)
	if err != nil {
		return s.errorResponse(c, err)
	}

	return c.JSON(rpcclient.AddressOut{Address: address.String()})
}
