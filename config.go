package appchain

import (
	"time"
)

const (
	// DefaultValidUntilBlockOffset is how many blocks past the current height a
	// transaction stays valid for when the caller does not pick a bound.
	DefaultValidUntilBlockOffset uint64 = 88
	DefaultQuota                 uint64 = 1_000_000
	DefaultPollInterval                 = time.Second
	DefaultPollRetries           uint64 = 20
	DefaultReceiptCacheSize             = 1024
)

type ClientOptions struct {
	NodeURL               string
	Crypto                CryptoType
	PollInterval          time.Duration
	PollRetries           uint64
	ValidUntilBlockOffset uint64
	Quota                 uint64
	ReceiptCacheSize      int
	Store                 Database
}

func (o *ClientOptions) setDefaults() {
	if o.NodeURL == "" {
		o.NodeURL = defaultClientOptions.NodeURL
	}

	if o.Crypto == "" {
		o.Crypto = defaultClientOptions.Crypto
	}

	if o.PollInterval <= 0 {
		o.PollInterval = defaultClientOptions.PollInterval
	}

	if o.PollRetries == 0 {
		o.PollRetries = defaultClientOptions.PollRetries
	}

	if o.ValidUntilBlockOffset == 0 {
		o.ValidUntilBlockOffset = defaultClientOptions.ValidUntilBlockOffset
	}

	if o.Quota == 0 {
		o.Quota = defaultClientOptions.Quota
	}

	if o.ReceiptCacheSize <= 0 {
		o.ReceiptCacheSize = defaultClientOptions.ReceiptCacheSize
	}
}

var defaultClientOptions = &ClientOptions{
	NodeURL:               "http://localhost:1337",
	Crypto:                CryptoSecp256k1,
	PollInterval:          DefaultPollInterval,
	PollRetries:           DefaultPollRetries,
	ValidUntilBlockOffset: DefaultValidUntilBlockOffset,
	Quota:                 DefaultQuota,
	ReceiptCacheSize:      DefaultReceiptCacheSize,
}
