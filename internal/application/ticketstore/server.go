package ticketstore

import (
	"context"
	stderrors "errors"

	"github.com/orris-inc/ticketstore/internal/infrastructure/store"
	"github.com/orris-inc/ticketstore/internal/infrastructure/transport"
	"github.com/orris-inc/ticketstore/internal/shared/errors"
	"github.com/orris-inc/ticketstore/internal/shared/goroutine"
	"github.com/orris-inc/ticketstore/internal/shared/logger"
	"github.com/orris-inc/ticketstore/internal/shared/utils/logutil"
)

const maxPanicLogLen = 256

// server is the actor. It alone touches store, one command at a time, in
// the order the queue yields them.
type server struct {
	queue         transport.Queue[command]
	store         *store.TicketStore
	isolatePanics bool
	logger        logger.Interface
}

func newServer(queue transport.Queue[command], s *store.TicketStore, isolatePanics bool, log logger.Interface) *server {
	return &server{
		queue:         queue,
		store:         s,
		isolatePanics: isolatePanics,
		logger:        log,
	}
}

// run drains the queue until every client has closed. Once ctx ends it stops
// before taking another command; callers still queued see Disconnected.
func (s *server) run(ctx context.Context) {
	s.logger.Infow("ticket store started",
		"capacity", s.queue.Cap(),
		"isolate_panics", s.isolatePanics,
	)

	var handled int
	for {
		if err := ctx.Err(); err != nil {
			s.logger.Warnw("ticket store stopped", "handled", handled, "error", err)
			return
		}

		cmd, err := s.queue.Receive(ctx)
		if err != nil {
			if stderrors.Is(err, transport.ErrClosed) {
				s.logger.Infow("ticket store stopped, all clients closed", "handled", handled)
			} else {
				s.logger.Warnw("ticket store stopped", "handled", handled, "error", err)
			}
			return
		}

		s.handle(cmd)
		handled++
	}
}

func (s *server) handle(cmd command) {
	if !s.isolatePanics {
		cmd.execute(s.store)
		return
	}

	err := goroutine.Run(func() { cmd.execute(s.store) })
	if err == nil {
		return
	}

	var pe *goroutine.PanicError
	if stderrors.As(err, &pe) {
		s.logger.Errorw("command panicked",
			"command", cmd.name(),
			"panic", logutil.TruncateForLog(pe.Error(), maxPanicLogLen),
			"stack", string(pe.Stack),
		)
	}
	cmd.fail(errors.NewInternalError("command panicked", cmd.name()))
}
