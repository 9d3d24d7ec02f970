package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	. "github.com/alexdcox/appchain-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	flagTag             string
	flagBytecode        string
	flagAbi             string
	flagArgs            []string
	flagStoreAbi        bool
	flagQuota           uint64
	flagValidUntilBlock uint64
	flagWait            bool
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the account address for the configured private key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		addr, err := AddressFromPrivateKey(viper.GetString(flagPrivateKey), crypto())
		if err != nil {
			return
		}
		fmt.Println(addr.Hex())
		return
	},
}

var blockNumberCmd = &cobra.Command{
	Use:   "block-number",
	Short: "Print the node's current block number",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, cancel := commandContext()
		defer cancel()

		client, err := newClient(ctx)
		if err != nil {
			return
		}
		defer client.Close()

		number, err := client.BlockNumber(ctx)
		if err != nil {
			return
		}
		fmt.Println(number)
		return
	},
}

var chainIDCmd = &cobra.Command{
	Use:   "chain-id",
	Short: "Print the chain id, preferring chainIdV1",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, cancel := commandContext()
		defer cancel()

		client, err := newClient(ctx)
		if err != nil {
			return
		}
		defer client.Close()

		id, err := client.FetchedChainID(ctx)
		if err != nil {
			return
		}
		fmt.Printf("0x%x\n", id)
		return
	},
}

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Print the node's metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, cancel := commandContext()
		defer cancel()

		client, err := newClient(ctx)
		if err != nil {
			return
		}
		defer client.Close()

		meta, err := client.MetaData(ctx, flagTag)
		if err != nil {
			return
		}
		return printJSON(meta)
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a contract and wait for its address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		bytecodeText, err := readInput(flagBytecode)
		if err != nil {
			return
		}
		bytecode, err := hex.DecodeString(TrimHexPrefix(strings.TrimSpace(string(bytecodeText))))
		if err != nil || len(bytecode) == 0 {
			return errors.New("bytecode must be non-empty hex")
		}

		var contractAbi any
		if flagAbi != "" {
			var raw []byte
			if raw, err = readInput(flagAbi); err != nil {
				return
			}
			contractAbi = json.RawMessage(raw)
		}

		var ctorArgs []any
		if len(flagArgs) > 0 {
			if contractAbi == nil {
				return errors.Wrap(ErrInvalidAbi, "--args needs --abi")
			}
			if ctorArgs, err = ParseConstructorArgs(contractAbi, flagArgs); err != nil {
				return
			}
		}

		params, err := txParams()
		if err != nil {
			return
		}
		params.Quota = flagQuota
		if flagValidUntilBlock > 0 {
			params.ValidUntilBlock = Uint64(flagValidUntilBlock)
		}

		ctx, cancel := commandContext()
		defer cancel()

		client, err := newClient(ctx)
		if err != nil {
			return
		}
		defer client.Close()

		var deployment *Deployment
		if flagStoreAbi {
			deployment, err = client.DeployAndStoreAbi(ctx, bytecode, contractAbi, ctorArgs, params)
		} else {
			deployment, err = client.DeployAndWait(ctx, bytecode, contractAbi, ctorArgs, params)
		}
		if err != nil {
			return
		}
		return printJSON(deployment)
	},
}

var storeAbiCmd = &cobra.Command{
	Use:   "store-abi <contract-address>",
	Short: "Store a contract's abi on chain and confirm it can be read back",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		raw, err := readInput(flagAbi)
		if err != nil {
			return
		}

		params, err := txParams()
		if err != nil {
			return
		}
		params.Quota = flagQuota

		ctx, cancel := commandContext()
		defer cancel()

		client, err := newClient(ctx)
		if err != nil {
			return
		}
		defer client.Close()

		receipt, err := client.StoreAbiCheck(ctx, args[0], json.RawMessage(raw), params)
		if err != nil {
			return
		}
		return printJSON(receipt)
	},
}

var receiptCmd = &cobra.Command{
	Use:   "receipt <tx-hash>",
	Short: "Print a transaction receipt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, cancel := commandContext()
		defer cancel()

		client, err := newClient(ctx)
		if err != nil {
			return
		}
		defer client.Close()

		var receipt *Receipt
		if flagWait {
			receipt, err = client.PollReceipt(ctx, args[0])
		} else {
			receipt, err = client.TransactionReceipt(ctx, args[0])
		}
		if err != nil {
			return
		}
		if receipt == nil {
			return errors.Wrapf(ErrReceiptNotFound, "no receipt for %s", args[0])
		}
		return printJSON(receipt)
	},
}

func init() {
	metadataCmd.Flags().StringVar(&flagTag, "tag", BlockTagLatest, "block tag (latest|pending|earliest|0x<height>)")

	deployCmd.Flags().StringVar(&flagBytecode, "bytecode", "", "contract bytecode as hex, or @file")
	deployCmd.Flags().StringVar(&flagAbi, "abi", "", "contract abi as json, or @file")
	deployCmd.Flags().StringSliceVar(&flagArgs, "args", nil, "constructor arguments")
	deployCmd.Flags().BoolVar(&flagStoreAbi, "store-abi", false, "store the abi on chain after deploying")
	deployCmd.Flags().Uint64Var(&flagQuota, "quota", 0, "transaction quota, zero for the default")
	deployCmd.Flags().Uint64Var(&flagValidUntilBlock, "valid-until-block", 0, "absolute valid until block, zero for current height plus the offset")
	_ = deployCmd.MarkFlagRequired("bytecode")

	storeAbiCmd.Flags().StringVar(&flagAbi, "abi", "", "contract abi as json, or @file")
	storeAbiCmd.Flags().Uint64Var(&flagQuota, "quota", 0, "transaction quota, zero for the default")
	_ = storeAbiCmd.MarkFlagRequired("abi")

	receiptCmd.Flags().BoolVar(&flagWait, "wait", false, "poll until the receipt appears or the retries run out")

	rootCmd.AddCommand(
		addressCmd,
		blockNumberCmd,
		chainIDCmd,
		metadataCmd,
		deployCmd,
		storeAbiCmd,
		receiptCmd,
	)
}
