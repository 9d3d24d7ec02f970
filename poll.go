package appchain

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
)

var errReceiptPending = errors.New("receipt pending")

// PollReceipt fetches the receipt for hash at the configured interval until
// it appears. The first fetch is immediate and up to PollRetries further
// fetches follow. An rpc error ends polling straight away.
func (c *Client) PollReceipt(ctx context.Context, hash string) (receipt *Receipt, err error) {
	start := time.Now()

	backoff := retry.WithMaxRetries(c.options.PollRetries, retry.NewConstant(c.options.PollInterval))

	attempts := 0

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		metricReceiptPolls.Inc()

		r, err2 := c.TransactionReceipt(ctx, hash)
		if err2 != nil {
			return err2
		}

		if r == nil {
			c.log.Trace().Msgf("receipt for %s not yet available (attempt %d)", hash, attempts)
			return retry.RetryableError(errReceiptPending)
		}

		receipt = r
		return nil
	})

	if errors.Is(err, errReceiptPending) {
		metricReceiptWait.WithLabelValues("timeout").Observe(time.Since(start).Seconds())
		err = errors.Wrapf(ErrReceiptTimeout, "tx %s after %d attempts", hash, attempts)
		return
	}

	if err != nil {
		metricReceiptWait.WithLabelValues("error").Observe(time.Since(start).Seconds())
		err = errors.WithStack(err)
		return
	}

	metricReceiptWait.WithLabelValues("found").Observe(time.Since(start).Seconds())
	c.log.Debug().Msgf("receipt for %s found in block %d after %d attempts", hash, receipt.BlockNumber, attempts)

	return
}
