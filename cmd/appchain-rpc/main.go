package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	. "github.com/alexdcox/appchain-go"
	"github.com/pkg/errors"
)

type _config struct {
	DatabasePath          string        `json:"databasepath"`
	NodeURL               string        `json:"nodeurl"`
	RpcHostPort           string        `json:"rpchostport"`
	Crypto                string        `json:"crypto"`
	PrivateKey            string        `json:"-"`
	LogLevel              string        `json:"loglevel"`
	PollInterval          time.Duration `json:"pollinterval"`
	PollRetries           uint64        `json:"pollretries"`
	Quota                 uint64        `json:"quota"`
	ValidUntilBlockOffset uint64        `json:"validuntilblockoffset"`
}

func (c *_config) Load(args []string) (err error) {
	fs := flag.NewFlagSet("appchain-rpc", flag.ContinueOnError)
	fs.StringVar(&c.DatabasePath, "databasepath", "appchain-rpc.db", "Path to the appchain-go sqlite database")
	fs.StringVar(&c.NodeURL, "nodeurl", "http://localhost:1337", "Set the node json-rpc url")
	fs.StringVar(&c.RpcHostPort, "rpchostport", "localhost:3002", "Set host:port for the http/rpc listener")
	fs.StringVar(&c.Crypto, "crypto", string(CryptoSecp256k1), "Set the chain crypto (secp256k1|ed25519)")
	fs.StringVar(&c.LogLevel, "loglevel", "", "Set the log level (trace|debug|info|warn|error|fatal) Can also be set via the APPCHAIN_LOG_LEVEL environment variable")
	fs.DurationVar(&c.PollInterval, "pollinterval", DefaultPollInterval, "Interval between receipt polls")
	fs.Uint64Var(&c.PollRetries, "pollretries", DefaultPollRetries, "Receipt polls after the first before giving up")
	fs.Uint64Var(&c.Quota, "quota", DefaultQuota, "Default transaction quota")
	fs.Uint64Var(&c.ValidUntilBlockOffset, "validuntilblockoffset", DefaultValidUntilBlockOffset, "Blocks past the current height a transaction stays valid for")
	if err = fs.Parse(args); err != nil {
		return errors.WithStack(err)
	}

	// the signing key is only accepted from the environment
	c.PrivateKey = os.Getenv("APPCHAIN_PRIVATE_KEY")

	return
}

var log = ComponentLogger("gateway", nil)

var config *_config

func main() {
	config = &_config{}

	if err := config.Load(os.Args[1:]); err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	logLevel, err := SetLogLevel(config.LogLevel)
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}
	log.Info().Msgf("setting log level to: '%s'", logLevel)

	if config.PrivateKey == "" {
		log.Warn().Msg("APPCHAIN_PRIVATE_KEY not set, transaction endpoints will fail")
	}

	db, err := NewSqlLiteDatabase(config.DatabasePath)
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	client, err := NewClient(ctx, &ClientOptions{
		NodeURL:               config.NodeURL,
		Crypto:                CryptoType(config.Crypto),
		PollInterval:          config.PollInterval,
		PollRetries:           config.PollRetries,
		Quota:                 config.Quota,
		ValidUntilBlockOffset: config.ValidUntilBlockOffset,
		Store:                 db,
	})
	cancel()
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	httpServer, err := NewHttpRpcServer(config, db, client)
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	go func() {
		if err = httpServer.Start(); err != nil {
			log.Fatal().Msgf("%+v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	log.Info().Msg("caught interrupt/terminate signal, attempting graceful shutdown...")

	if err = httpServer.Stop(); err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	log.Info().Msg("graceful shutdown complete")
}
