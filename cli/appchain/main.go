package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	. "github.com/alexdcox/appchain-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagNodeURL      = "node-url"
	flagCrypto       = "crypto"
	flagPrivateKey   = "private-key"
	flagLogLevel     = "log-level"
	flagPollInterval = "poll-interval"
	flagPollRetries  = "poll-retries"
	flagTimeout      = "timeout"
)

var log = Log()

var rootCmd = &cobra.Command{
	Use:           "appchain",
	Short:         "Operator tooling for an appchain (CITA) node",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := SetLogLevel(viper.GetString(flagLogLevel))
		return err
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Msgf("%+v", err)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String(flagNodeURL, "http://localhost:1337", "node json-rpc url")
	flags.String(flagCrypto, string(CryptoSecp256k1), "chain crypto (secp256k1|ed25519)")
	flags.String(flagPrivateKey, "", "hex private key used to sign transactions, prefer APPCHAIN_PRIVATE_KEY")
	flags.String(flagLogLevel, "", "log level (trace|debug|info|warn|error|fatal)")
	flags.Duration(flagPollInterval, DefaultPollInterval, "interval between receipt polls")
	flags.Uint64(flagPollRetries, DefaultPollRetries, "receipt polls after the first before giving up")
	flags.Duration(flagTimeout, 2*time.Minute, "overall command timeout")

	cobra.OnInitialize(initConfig)

	if err := viper.BindPFlags(flags); err != nil {
		log.Fatal().Msgf("%+v", errors.WithStack(err))
	}
}

func initConfig() {
	viper.SetEnvPrefix("APPCHAIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func crypto() CryptoType {
	return CryptoType(viper.GetString(flagCrypto))
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), viper.GetDuration(flagTimeout))
}

func newClient(ctx context.Context) (client *Client, err error) {
	return NewClient(ctx, &ClientOptions{
		NodeURL:      viper.GetString(flagNodeURL),
		Crypto:       crypto(),
		PollInterval: viper.GetDuration(flagPollInterval),
		PollRetries:  viper.GetUint64(flagPollRetries),
	})
}

func txParams() (params *TxParams, err error) {
	key := viper.GetString(flagPrivateKey)
	if key == "" {
		err = errors.Wrap(ErrInvalidPrivateKey, "set --private-key or APPCHAIN_PRIVATE_KEY")
		return
	}
	return &TxParams{PrivateKey: key}, nil
}

// readInput returns the value itself, or the contents of the named file when
// the value starts with '@'.
func readInput(value string) (data []byte, err error) {
	if path, ok := strings.CutPrefix(value, "@"); ok {
		data, err = os.ReadFile(path)
		if err != nil {
			err = errors.Wrapf(err, "failed to read file: %s", path)
		}
		return
	}
	return []byte(value), nil
}

func printJSON(v any) (err error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	fmt.Println(string(out))
	return
}
