package ticketstore

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/orris-inc/ticketstore/internal/domain/ticket"
	"github.com/orris-inc/ticketstore/internal/shared/errors"
)

// NewOverloadBackoff is exponential backoff starting at base, capped at 64
// times base, with 20% jitter, giving up after maxRetries retries. A Backoff
// is stateful; build a fresh one per call.
func NewOverloadBackoff(base time.Duration, maxRetries uint64) retry.Backoff {
	if base <= 0 {
		base = time.Millisecond
	}
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(64*base, b)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(maxRetries, b)
}

// InsertWithRetry calls Insert and retries only while the store reports
// overload. onOverload, if set, is called once per rejected attempt.
func InsertWithRetry(ctx context.Context, c *Client, draft ticket.TicketDraft, backoff retry.Backoff, onOverload func()) (ticket.TicketID, error) {
	var id ticket.TicketID
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		id, err = c.Insert(ctx, draft)
		if errors.IsOverloadedError(err) {
			if onOverload != nil {
				onOverload()
			}
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}
