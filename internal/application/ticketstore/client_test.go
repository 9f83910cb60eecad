package ticketstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/ticketstore/internal/domain/ticket"
	vo "github.com/orris-inc/ticketstore/internal/domain/ticket/valueobjects"
	"github.com/orris-inc/ticketstore/internal/shared/config"
	"github.com/orris-inc/ticketstore/internal/shared/errors"
	"github.com/orris-inc/ticketstore/internal/shared/logger"
)

type mockBuilder struct {
	mock.Mock
}

func (m *mockBuilder) Build(draft ticket.TicketDraft) (*ticket.Ticket, error) {
	args := m.Called(draft)
	t, _ := args.Get(0).(*ticket.Ticket)
	return t, args.Error(1)
}

// gatedBuilder parks the actor inside Build for drafts titled "slow" until
// the gate is opened, then panics if panicOnRelease is set.
type gatedBuilder struct {
	entered        chan struct{}
	gate           chan struct{}
	once           sync.Once
	panicOnRelease bool
}

func newGatedBuilder() *gatedBuilder {
	return &gatedBuilder{
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
}

func (g *gatedBuilder) Build(d ticket.TicketDraft) (*ticket.Ticket, error) {
	if d.Title == "slow" {
		g.entered <- struct{}{}
		<-g.gate
		if g.panicOnRelease {
			panic("slow build failed")
		}
	}
	return ticket.NewBuilder().Build(d)
}

func (g *gatedBuilder) open() {
	g.once.Do(func() { close(g.gate) })
}

func panickyBuilder() ticket.Builder {
	return ticket.BuilderFunc(func(d ticket.TicketDraft) (*ticket.Ticket, error) {
		if d.Title == "boom" {
			panic("builder exploded")
		}
		return ticket.NewBuilder().Build(d)
	})
}

func draft(title, desc string) ticket.TicketDraft {
	return ticket.TicketDraft{Title: title, Description: desc}
}

func launch(t *testing.T, cfg config.StoreConfig, opts ...Option) *Client {
	t.Helper()
	return launchCtx(t, context.Background(), cfg, opts...)
}

func launchCtx(t *testing.T, ctx context.Context, cfg config.StoreConfig, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewNopLogger())}, opts...)
	c, err := Launch(ctx, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitDone(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("ticket store did not stop")
	}
}

func blocking(capacity int) config.StoreConfig {
	return config.StoreConfig{TransportCapacity: capacity, BackpressurePolicy: "blocking"}
}

func failFast(capacity int) config.StoreConfig {
	return config.StoreConfig{TransportCapacity: capacity, BackpressurePolicy: "fail-fast"}
}

func TestClient_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	c := launch(t, blocking(4))

	id1, err := c.Insert(ctx, draft("T1", "D1"))
	require.NoError(t, err)
	id2, err := c.Insert(ctx, draft("T2", "D2"))
	require.NoError(t, err)
	assert.Equal(t, ticket.TicketID(1), id1)
	assert.Equal(t, ticket.TicketID(2), id2)

	got, err := c.Get(ctx, id1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id1, got.ID())
	assert.Equal(t, "T1", got.Title())
	assert.Equal(t, "D1", got.Description())
	assert.Equal(t, vo.ToDo(), got.Status())

	missing, err := c.Get(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestClient_GetReturnsOwnedCopy(t *testing.T) {
	ctx := context.Background()
	c := launch(t, blocking(4))

	id, err := c.Insert(ctx, draft("T1", "D1"))
	require.NoError(t, err)

	snap, err := c.Get(ctx, id)
	require.NoError(t, err)
	require.NoError(t, snap.SetTitle("local edit"))

	again, err := c.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "T1", again.Title())
}

func TestClient_ConcurrentInsertsGetDistinctIDs(t *testing.T) {
	const producers, perProducer = 8, 50

	for _, cfg := range []config.StoreConfig{blocking(2), blocking(0)} {
		t.Run(fmt.Sprintf("capacity=%d", cfg.TransportCapacity), func(t *testing.T) {
			ctx := context.Background()
			c := launch(t, cfg)

			var (
				mu  sync.Mutex
				ids = make(map[ticket.TicketID]struct{})
				wg  sync.WaitGroup
			)
			for p := 0; p < producers; p++ {
				wg.Add(1)
				go func(client *Client, p int) {
					defer wg.Done()
					defer client.Close()
					for i := 0; i < perProducer; i++ {
						id, err := client.Insert(ctx, draft(fmt.Sprintf("p%d-%d", p, i), "load"))
						if !assert.NoError(t, err) {
							return
						}
						mu.Lock()
						ids[id] = struct{}{}
						mu.Unlock()
					}
				}(c.Clone(), p)
			}
			wg.Wait()

			require.Len(t, ids, producers*perProducer)
			for i := 1; i <= producers*perProducer; i++ {
				assert.Contains(t, ids, ticket.TicketID(i))
			}

			n, err := c.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, producers*perProducer, n)
		})
	}
}

func TestClient_BlockingPolicyNeverOverloads(t *testing.T) {
	ctx := context.Background()
	c := launch(t, blocking(1))

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(client *Client) {
			defer wg.Done()
			defer client.Close()
			for i := 0; i < 50; i++ {
				_, err := client.Insert(ctx, draft("T", "D"))
				assert.NoError(t, err)
			}
		}(c.Clone())
	}
	wg.Wait()
}

func TestClient_FailFastOverload(t *testing.T) {
	ctx := context.Background()
	b := newGatedBuilder()
	c := launch(t, failFast(1), WithBuilder(b))
	t.Cleanup(b.open)

	slow := make(chan ticket.TicketID, 1)
	go func() {
		id, err := c.Insert(ctx, draft("slow", "D"))
		assert.NoError(t, err)
		slow <- id
	}()
	<-b.entered

	queued := make(chan ticket.TicketID, 1)
	go func() {
		id, err := c.Insert(ctx, draft("queued", "D"))
		assert.NoError(t, err)
		queued <- id
	}()
	require.Eventually(t, func() bool { return c.conn.queue.Len() == 1 }, 2*time.Second, time.Millisecond)

	_, err := c.Insert(ctx, draft("rejected", "D"))
	require.Error(t, err)
	assert.True(t, errors.IsOverloadedError(err))

	b.open()
	assert.Equal(t, ticket.TicketID(1), <-slow)
	assert.Equal(t, ticket.TicketID(2), <-queued)

	id, err := c.Insert(ctx, draft("after", "D"))
	require.NoError(t, err)
	assert.Equal(t, ticket.TicketID(3), id, "a rejected insert must not consume an id")
}

func TestClient_ValidationErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("default builder", func(t *testing.T) {
		c := launch(t, blocking(4))

		_, err := c.Insert(ctx, draft("", "D"))
		assert.True(t, errors.IsValidationError(err))

		long := make([]byte, ticket.TitleMaxLength+1)
		for i := range long {
			long[i] = 'x'
		}
		_, err = c.Insert(ctx, draft(string(long), "D"))
		assert.True(t, errors.IsValidationError(err))

		id, err := c.Insert(ctx, draft("T", "D"))
		require.NoError(t, err)
		assert.Equal(t, ticket.TicketID(1), id)
	})

	t.Run("custom builder error is passed through", func(t *testing.T) {
		b := new(mockBuilder)
		rejected := errors.NewValidationError("Validation failed", "title is banned")
		b.On("Build", draft("banned", "D")).Return(nil, rejected).Once()
		c := launch(t, blocking(4), WithBuilder(b))

		_, err := c.Insert(ctx, draft("banned", "D"))
		assert.Same(t, rejected, err)
		b.AssertExpectations(t)
	})
}

func TestClient_Update(t *testing.T) {
	ctx := context.Background()
	c := launch(t, blocking(4))

	id, err := c.Insert(ctx, draft("T1", "D1"))
	require.NoError(t, err)

	title := "Renamed"
	status := vo.InProgress("alice")
	require.NoError(t, c.Update(ctx, id, ticket.TicketPatch{Title: &title, Status: &status}))

	got, err := c.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title())
	assignee, ok := got.Status().AssignedTo()
	assert.True(t, ok)
	assert.Equal(t, "alice", assignee)

	err = c.Update(ctx, 99, ticket.TicketPatch{Title: &title})
	assert.True(t, errors.IsNotFoundError(err))

	empty := ""
	err = c.Update(ctx, id, ticket.TicketPatch{Title: &title, Description: &empty})
	assert.True(t, errors.IsValidationError(err))

	got, err = c.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "D1", got.Description(), "a rejected patch must leave the ticket unchanged")
}

func TestClient_GetHandle(t *testing.T) {
	ctx := context.Background()
	c := launch(t, blocking(4))
	other := c.Clone()
	defer other.Close()

	id, err := c.Insert(ctx, draft("T1", "D1"))
	require.NoError(t, err)

	h1, err := c.GetHandle(ctx, id)
	require.NoError(t, err)
	h2, err := other.GetHandle(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, h1)
	assert.Same(t, h1, h2)

	require.NoError(t, h1.Update(func(tk *ticket.Ticket) error {
		return tk.SetDescription("written through the handle")
	}))
	got, err := other.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "written through the handle", got.Description())

	missing, err := c.GetHandle(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// Readers holding the handle never see a half-applied write.
func TestClient_HandleNoTornReads(t *testing.T) {
	ctx := context.Background()
	c := launch(t, blocking(4))

	id, err := c.Insert(ctx, draft("v0", "v0"))
	require.NoError(t, err)
	h, err := c.GetHandle(ctx, id)
	require.NoError(t, err)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				h.View(func(tk *ticket.Ticket) {
					assert.Equal(t, tk.Title(), tk.Description())
				})
			}
		}()
	}

	for i := 1; i <= 200; i++ {
		v := fmt.Sprintf("v%d", i)
		require.NoError(t, c.Update(ctx, id, ticket.TicketPatch{Title: &v, Description: &v}))
	}
	close(stop)
	wg.Wait()

	got := h.Snapshot()
	assert.Equal(t, "v200", got.Title())
	assert.Equal(t, "v200", got.Description())
}

func TestClient_ShutdownAfterLastClose(t *testing.T) {
	ctx := context.Background()
	c := launch(t, blocking(4))
	clone := c.Clone()

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.Insert(ctx, draft("T", "D"))
	assert.True(t, errors.IsDisconnectedError(err), "a closed handle must not be usable")

	id, err := clone.Insert(ctx, draft("T", "D"))
	require.NoError(t, err, "the store must outlive any single handle")
	assert.Equal(t, ticket.TicketID(1), id)

	select {
	case <-c.Done():
		t.Fatal("store stopped while a handle was still open")
	default:
	}

	require.NoError(t, clone.Close())
	waitDone(t, c)

	_, err = clone.Len(ctx)
	assert.True(t, errors.IsDisconnectedError(err))

	late := clone.Clone()
	_, err = late.Len(ctx)
	assert.True(t, errors.IsDisconnectedError(err))
}

func TestClient_ContextCancelStopsStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := launchCtx(t, ctx, blocking(4))

	_, err := c.Insert(context.Background(), draft("T", "D"))
	require.NoError(t, err)

	cancel()
	waitDone(t, c)

	_, err = c.Insert(context.Background(), draft("T", "D"))
	assert.True(t, errors.IsDisconnectedError(err))
}

func TestClient_BacklogDisconnectedWhenActorStops(t *testing.T) {
	tests := []struct {
		name string
		// stop ends the actor while it is parked in the slow build.
		stop        func(cancel context.CancelFunc, b *gatedBuilder)
		fatalPanics bool
		slowOK      bool
	}{
		{
			name: "launch context cancelled",
			stop: func(cancel context.CancelFunc, b *gatedBuilder) {
				cancel()
				b.open()
			},
			slowOK: true,
		},
		{
			name:        "fatal panic",
			stop:        func(_ context.CancelFunc, b *gatedBuilder) { b.open() },
			fatalPanics: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			b := newGatedBuilder()
			b.panicOnRelease = tt.fatalPanics
			cfg := blocking(4)
			cfg.FatalPanics = tt.fatalPanics
			c := launchCtx(t, ctx, cfg, WithBuilder(b))
			t.Cleanup(b.open)

			slow := make(chan error, 1)
			go func() {
				_, err := c.Insert(context.Background(), draft("slow", "D"))
				slow <- err
			}()
			<-b.entered

			queued := make(chan error, 1)
			go func() {
				_, err := c.Insert(context.Background(), draft("queued", "D"))
				queued <- err
			}()
			require.Eventually(t, func() bool { return c.conn.queue.Len() == 1 }, 2*time.Second, time.Millisecond)

			tt.stop(cancel, b)
			waitDone(t, c)

			select {
			case err := <-queued:
				assert.True(t, errors.IsDisconnectedError(err), "queued caller got %v", err)
			case <-time.After(2 * time.Second):
				t.Fatal("queued caller was left waiting after the store stopped")
			}

			err := <-slow
			if tt.slowOK {
				assert.NoError(t, err, "a command that completed keeps its reply")
			} else {
				assert.True(t, errors.IsDisconnectedError(err))
			}
		})
	}
}

func TestClient_RequestHonoursContext(t *testing.T) {
	b := newGatedBuilder()
	c := launch(t, blocking(4), WithBuilder(b))
	t.Cleanup(b.open)

	go func() { _, _ = c.Insert(context.Background(), draft("slow", "D")) }()
	<-b.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Len(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// A zero StoreConfig isolates panics; only FatalPanics lets one stop the store.
func TestClient_PanicIsolated(t *testing.T) {
	ctx := context.Background()
	c := launch(t, config.StoreConfig{TransportCapacity: 4}, WithBuilder(panickyBuilder()))

	_, err := c.Insert(ctx, draft("boom", "D"))
	require.Error(t, err)
	assert.True(t, errors.IsInternalError(err))

	id, err := c.Insert(ctx, draft("fine", "D"))
	require.NoError(t, err)
	assert.Equal(t, ticket.TicketID(1), id)

	select {
	case <-c.Done():
		t.Fatal("an isolated panic must not stop the store")
	default:
	}
}

func TestClient_FatalPanicDisconnects(t *testing.T) {
	ctx := context.Background()
	cfg := blocking(4)
	cfg.FatalPanics = true
	c := launch(t, cfg, WithBuilder(panickyBuilder()))

	_, err := c.Insert(ctx, draft("boom", "D"))
	assert.True(t, errors.IsDisconnectedError(err))
	waitDone(t, c)

	_, err = c.Insert(ctx, draft("fine", "D"))
	assert.True(t, errors.IsDisconnectedError(err))
}

func TestLaunch_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	_, err := Launch(ctx, config.StoreConfig{TransportCapacity: 4, BackpressurePolicy: "drop"})
	assert.True(t, errors.IsValidationError(err))

	_, err = Launch(ctx, config.StoreConfig{TransportCapacity: -1})
	assert.True(t, errors.IsValidationError(err))
}

func TestInsertWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds once capacity frees up", func(t *testing.T) {
		b := newGatedBuilder()
		c := launch(t, failFast(1), WithBuilder(b))
		t.Cleanup(b.open)

		go func() { _, _ = c.Insert(ctx, draft("slow", "D")) }()
		<-b.entered
		go func() { _, _ = c.Insert(ctx, draft("queued", "D")) }()
		require.Eventually(t, func() bool { return c.conn.queue.Len() == 1 }, 2*time.Second, time.Millisecond)

		var overloads atomic.Int32
		result := make(chan error, 1)
		go func() {
			_, err := InsertWithRetry(ctx, c, draft("retried", "D"),
				NewOverloadBackoff(time.Millisecond, 1000), func() { overloads.Add(1) })
			result <- err
		}()

		require.Eventually(t, func() bool { return overloads.Load() > 0 }, 2*time.Second, time.Millisecond)
		b.open()
		require.NoError(t, <-result)

		n, err := c.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		b := newGatedBuilder()
		c := launch(t, failFast(1), WithBuilder(b))
		t.Cleanup(b.open)

		go func() { _, _ = c.Insert(ctx, draft("slow", "D")) }()
		<-b.entered
		go func() { _, _ = c.Insert(ctx, draft("queued", "D")) }()
		require.Eventually(t, func() bool { return c.conn.queue.Len() == 1 }, 2*time.Second, time.Millisecond)

		var overloads atomic.Int32
		_, err := InsertWithRetry(ctx, c, draft("retried", "D"),
			NewOverloadBackoff(time.Millisecond, 2), func() { overloads.Add(1) })
		assert.True(t, errors.IsOverloadedError(err))
		assert.Equal(t, int32(3), overloads.Load())
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		c := launch(t, failFast(1))

		var overloads atomic.Int32
		_, err := InsertWithRetry(ctx, c, draft("", "D"),
			NewOverloadBackoff(time.Millisecond, 5), func() { overloads.Add(1) })
		assert.True(t, errors.IsValidationError(err))
		assert.Zero(t, overloads.Load())
	})
}
