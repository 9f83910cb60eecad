package loadgen

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orris-inc/ticketstore/internal/application/ticketstore"
	"github.com/orris-inc/ticketstore/internal/domain/ticket"
	"github.com/orris-inc/ticketstore/internal/shared/config"
	"github.com/orris-inc/ticketstore/internal/shared/logger"
	"github.com/orris-inc/ticketstore/internal/shared/utils"
	"github.com/orris-inc/ticketstore/internal/shared/utils/setutil"
)

// Report summarises one load run.
type Report struct {
	Accepted        int
	OverloadRetries int64
	Stored          int
	Elapsed         time.Duration
}

// Run launches a store, fans out producers against it, verifies the result
// and shuts the store down again.
func Run(ctx context.Context, storeCfg config.StoreConfig, cfg config.LoadgenConfig, log logger.Interface) (*Report, error) {
	if cfg.Producers <= 0 {
		return nil, fmt.Errorf("producers must be positive, got %d", cfg.Producers)
	}
	if cfg.RequestsPerProducer < 0 {
		return nil, fmt.Errorf("requests per producer cannot be negative, got %d", cfg.RequestsPerProducer)
	}
	maxRetries := utils.SafeIntToUint64(cfg.MaxRetries)

	client, err := ticketstore.Launch(ctx, storeCfg, ticketstore.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("failed to launch ticket store: %w", err)
	}
	defer client.Close()

	start := time.Now()
	var overloads atomic.Int64
	ids := make([][]ticket.TicketID, cfg.Producers)

	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < cfg.Producers; p++ {
		producer := client.Clone()
		g.Go(func() error {
			defer producer.Close()
			for i := 0; i < cfg.RequestsPerProducer; i++ {
				draft := ticket.TicketDraft{
					Title:       fmt.Sprintf("load-%d-%d", p, i),
					Description: "generated by loadgen",
				}
				backoff := ticketstore.NewOverloadBackoff(cfg.RetryBase(), maxRetries)
				id, err := ticketstore.InsertWithRetry(gctx, producer, draft, backoff, func() { overloads.Add(1) })
				if err != nil {
					return fmt.Errorf("producer %d insert %d: %w", p, i, err)
				}
				ids[p] = append(ids[p], id)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	accepted, err := verify(ctx, client, ids)
	if err != nil {
		return nil, err
	}
	stored, err := client.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}
	if stored != accepted {
		return nil, fmt.Errorf("store holds %d tickets, %d were accepted", stored, accepted)
	}

	_ = client.Close()
	select {
	case <-client.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &Report{
		Accepted:        accepted,
		OverloadRetries: overloads.Load(),
		Stored:          stored,
		Elapsed:         time.Since(start),
	}, nil
}

// verify checks that ids are distinct and that each reads back with the
// title its producer wrote.
func verify(ctx context.Context, client *ticketstore.Client, ids [][]ticket.TicketID) (int, error) {
	seen := setutil.New[ticket.TicketID](0)
	for p, perProducer := range ids {
		for i, id := range perProducer {
			if !seen.Add(id) {
				return 0, fmt.Errorf("ticket id %s issued twice", id)
			}

			t, err := client.Get(ctx, id)
			if err != nil {
				return 0, fmt.Errorf("failed to read ticket %s: %w", id, err)
			}
			if t == nil {
				return 0, fmt.Errorf("ticket %s is missing", id)
			}
			if want := fmt.Sprintf("load-%d-%d", p, i); t.Title() != want {
				return 0, fmt.Errorf("ticket %s has title %q, want %q", id, t.Title(), want)
			}
		}
	}
	return seen.Len(), nil
}
