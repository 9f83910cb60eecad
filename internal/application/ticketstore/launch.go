// Package ticketstore runs the ticket store actor and hands out clients that
// talk to it over a transport queue.
package ticketstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/orris-inc/ticketstore/internal/domain/ticket"
	"github.com/orris-inc/ticketstore/internal/infrastructure/store"
	"github.com/orris-inc/ticketstore/internal/infrastructure/transport"
	"github.com/orris-inc/ticketstore/internal/shared/config"
	"github.com/orris-inc/ticketstore/internal/shared/errors"
	"github.com/orris-inc/ticketstore/internal/shared/goroutine"
	"github.com/orris-inc/ticketstore/internal/shared/logger"
)

type options struct {
	builder ticket.Builder
	logger  logger.Interface
}

// Option customises Launch.
type Option func(*options)

// WithBuilder replaces the default draft builder.
func WithBuilder(b ticket.Builder) Option {
	return func(o *options) {
		if b != nil {
			o.builder = b
		}
	}
}

func WithLogger(log logger.Interface) Option {
	return func(o *options) {
		if log != nil {
			o.logger = log
		}
	}
}

// Launch starts a ticket store actor and returns the first client for it.
// The actor stops when every client is closed or when ctx is cancelled.
func Launch(ctx context.Context, cfg config.StoreConfig, opts ...Option) (*Client, error) {
	o := options{
		builder: ticket.NewBuilder(),
		logger:  logger.NewLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	policy, err := transport.ParsePolicy(cfg.BackpressurePolicy)
	if err != nil {
		return nil, errors.NewValidationError("invalid store config", err.Error())
	}
	queue, err := transport.New[command](transport.Config{
		Capacity: cfg.TransportCapacity,
		Policy:   policy,
	})
	if err != nil {
		return nil, errors.NewValidationError("invalid store config", err.Error())
	}

	log := o.logger.Named("ticketstore").With("instance_id", uuid.NewString())
	srv := newServer(queue, store.NewTicketStore(o.builder), !cfg.FatalPanics, log)

	done := make(chan struct{})
	goroutine.SafeGo(log, "ticketstore-actor",
		func() { srv.run(ctx) },
		func() {
			queue.Close()
			close(done)
		},
	)

	return newClient(queue, done), nil
}
