package bridge

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
)

const stopGrace = 100 * time.Millisecond

// connection - Connection, которую получает партия; действия складываются в буфер адаптера
type connection struct {
	actions chan geniusweb.Action
	closed  atomic.Bool
}

func newConnection() *connection {
	return &connection{actions: make(chan geniusweb.Action, actionBufferSize)}
}

func (c *connection) Send(action geniusweb.Action) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	select {
	case c.actions <- action:
		return nil
	default:
		return ErrConnectionFull
	}
}

func (c *connection) drain() {
	for {
		select {
		case <-c.actions:
		default:
			return
		}
	}
}

// eventLoop доставляет события партии в отдельной горутине, по одному, в порядке отправки
type eventLoop struct {
	party geniusweb.Party
	name  string
	log   *zap.Logger

	inbox    chan geniusweb.Inform
	errs     chan error
	turnDone chan struct{}
	cancel   context.CancelFunc
	g        *errgroup.Group

	// YourTurn, которые ещё не обработаны партией
	turns atomic.Int32

	mu     sync.Mutex
	closed bool
}

func startLoop(ctx context.Context, party geniusweb.Party, name string, log *zap.Logger) *eventLoop {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	l := &eventLoop{
		party:  party,
		name:   name,
		log:    log,
		inbox:    make(chan geniusweb.Inform, inboxSize),
		errs:     make(chan error, inboxSize),
		turnDone: make(chan struct{}, 1),
		cancel:   cancel,
		g:        g,
	}
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case info, ok := <-l.inbox:
				if !ok {
					return nil
				}
				err := l.notify(gctx, info)
				if _, ok := info.(*geniusweb.YourTurn); ok {
					l.turns.Add(-1)
					select {
					case l.turnDone <- struct{}{}:
					default:
					}
				}
				if err != nil {
					select {
					case l.errs <- err:
					default:
						l.log.Warn("dropping party error", zap.Error(err))
					}
				}
			}
		}
	})
	return l
}

func (l *eventLoop) notify(ctx context.Context, info geniusweb.Inform) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("party panicked", zap.String("inform", geniusweb.InformName(info)), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = &PartyError{Kind: FailurePanic, Party: l.name, Err: fmt.Errorf("%v", r)}
		}
	}()
	if err := l.party.NotifyChange(ctx, info); err != nil {
		return &PartyError{Kind: FailureNotify, Party: l.name, Err: fmt.Errorf("%s: %w", geniusweb.InformName(info), err)}
	}
	return nil
}

// deliver ставит событие в очередь без ожидания. Полная очередь значит, что партия
// застряла на одном из прошлых событий: это FailureTimeout.
func (l *eventLoop) deliver(ctx context.Context, info geniusweb.Inform) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrConnectionClosed
	}

	_, isTurn := info.(*geniusweb.YourTurn)
	if isTurn {
		l.turns.Add(1)
	}
	select {
	case l.inbox <- info:
		return nil
	default:
		if isTurn {
			l.turns.Add(-1)
		}
		return &PartyError{Kind: FailureTimeout, Party: l.name, Err: fmt.Errorf("%w: %s", ErrInboxFull, geniusweb.InformName(info))}
	}
}

// awaitingTurn - партия ещё не вернулась из NotifyChange(YourTurn)
func (l *eventLoop) awaitingTurn() bool { return l.turns.Load() > 0 }

// close дожидается обработки очереди не дольше ctx, затем отменяет цикл
func (l *eventLoop) close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.inbox)
	}
	l.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- l.g.Wait() }()

	select {
	case err := <-done:
		l.cancel()
		return err
	case <-ctx.Done():
		l.cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(stopGrace):
			return fmt.Errorf("party %s event loop did not stop: %w", l.name, ctx.Err())
		}
	}
}
