package snapshot

import (
	"context"
	"log/slog"
	"sync"

	"sightline/internal/logging"
	"sightline/internal/session"
)

// Saver writes snapshots off the mutation path. Submissions coalesce:
// while a save is in flight at most one state is held pending, and a newer
// submission replaces it. Intermediate states are disposable because every
// snapshot is a complete document.
type Saver struct {
	store  *Store
	logger *slog.Logger

	pending chan *session.State
	wg      sync.WaitGroup
}

// NewSaver builds a saver bound to one store.
func NewSaver(store *Store, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Saver{
		store:   store,
		logger:  logger,
		pending: make(chan *session.State, 1),
	}
}

// Start launches the save loop. Stop it by cancelling ctx and calling
// Wait, which flushes the last pending state before returning.
func (s *Saver) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case state := <-s.pending:
				s.save(state)
			case <-ctx.Done():
				select {
				case state := <-s.pending:
					s.save(state)
				default:
				}
				return
			}
		}
	}()
}

// Wait blocks until the save loop has drained and exited.
func (s *Saver) Wait() {
	s.wg.Wait()
}

// Submit queues a state for saving without blocking the caller. A state
// already queued but not yet written is replaced.
func (s *Saver) Submit(state *session.State) {
	for {
		select {
		case s.pending <- state:
			return
		default:
		}
		select {
		case <-s.pending:
		default:
		}
	}
}

func (s *Saver) save(state *session.State) {
	if err := s.store.Save(state); err != nil {
		s.logger.Error("background save failed",
			logging.String(logging.FieldSessionID, state.ID),
			logging.Error(err))
	}
}
