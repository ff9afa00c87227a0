package board

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"donationBoard/internal/model"
	"donationBoard/internal/repo"
	"donationBoard/internal/stats"
)

var (
	ErrEventNotFound   = repo.ErrEventNotFound
	ErrInvalidEvent    = errors.New("event needs a name and a positive goal")
	ErrInvalidDonation = errors.New("donation amount must be positive")
	ErrInvalidPayment  = errors.New("unknown payment method")
	ErrPartialEdit     = errors.New("edit needs both a name and a positive goal")
	ErrInvalidImport   = errors.New("import file is not an event collection")
)

const CorruptDataNotice = "Dados salvos inválidos; lista reiniciada."

// Board is the in-memory event collection every view is rendered from. All state
// changes go through apply, which mutates a copy under the lock and then writes
// the change to the store.
type Board struct {
	mu     sync.RWMutex
	events []model.Event
	notice string
	store  repo.Store
	log    *zerolog.Logger
}

type write func(ctx context.Context, s repo.Store) error

func New(store repo.Store, log *zerolog.Logger) *Board {
	return &Board{
		events: []model.Event{},
		store:  store,
		log:    log,
	}
}

// Reload replaces the collection with the store's. Corrupt stored data yields an
// empty collection and a notice for the user instead of an error. The lock is held
// across the read so a mutation cannot land between the read and the swap.
func (b *Board) Reload(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	events, err := b.store.Load(ctx)
	notice := ""
	if err != nil {
		if !errors.Is(err, repo.ErrCorruptData) {
			return fmt.Errorf("failed to load events: %w", err)
		}
		b.log.Warn().Err(err).Msg("stored events are corrupt, starting empty")
		events = []model.Event{}
		notice = CorruptDataNotice
	}

	b.events = repo.Normalize(events)
	b.notice = notice

	b.log.Debug().Int("events", len(events)).Msg("events reloaded")
	return nil
}

func (b *Board) Replace(events []model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = repo.Normalize(model.CloneEvents(events))
}

func (b *Board) Events() []model.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return model.CloneEvents(b.events)
}

func (b *Board) Get(id string) (model.Event, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := indexOf(b.events, id)
	if i < 0 {
		return model.Event{}, ErrEventNotFound
	}
	return b.events[i].Clone(), nil
}

func (b *Board) Search(query string) []model.Event {
	return Filter(b.Events(), query)
}

func (b *Board) Stats() stats.Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return stats.Calculate(b.events)
}

func (b *Board) Notice() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.notice
}

func (b *Board) CreateEvent(ctx context.Context, name string, goal float64, admin bool) (model.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" || !positive(goal) {
		return model.Event{}, ErrInvalidEvent
	}

	e := model.Event{
		ID:        uuid.NewString(),
		Name:      name,
		Goal:      goal,
		Raised:    0,
		Donations: []model.Donation{},
		Admin:     admin,
	}

	err := b.apply(ctx, func(events []model.Event) ([]model.Event, write, error) {
		created := e.Clone()
		return append(events, e), func(ctx context.Context, s repo.Store) error {
			return s.Create(ctx, created)
		}, nil
	})
	if err != nil {
		return model.Event{}, err
	}
	b.log.Info().Str("event_id", e.ID).Str("name", e.Name).Msg("event created")
	return e.Clone(), nil
}

func (b *Board) Donate(ctx context.Context, id string, amount float64, method model.PaymentMethod) (model.Event, error) {
	if !positive(amount) {
		return model.Event{}, ErrInvalidDonation
	}
	if !method.Valid() {
		return model.Event{}, ErrInvalidPayment
	}

	var updated model.Event
	err := b.apply(ctx, func(events []model.Event) ([]model.Event, write, error) {
		i := indexOf(events, id)
		if i < 0 {
			return nil, nil, ErrEventNotFound
		}
		raised := events[i].Raised + amount
		if math.IsInf(raised, 0) {
			return nil, nil, ErrInvalidDonation
		}
		events[i].Raised = raised
		events[i].Donations = append(events[i].Donations, model.Donation{Amount: amount, Method: method})
		updated = events[i].Clone()
		return events, updateWrite(updated), nil
	})
	if err != nil {
		return model.Event{}, err
	}
	b.log.Info().Str("event_id", id).Float64("amount", amount).Str("method", string(method)).Msg("donation received")
	return updated, nil
}

// EditEvent overwrites name and goal. Both must be given, otherwise nothing changes.
func (b *Board) EditEvent(ctx context.Context, id, name string, goal float64) (model.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" || !positive(goal) {
		return model.Event{}, ErrPartialEdit
	}

	var updated model.Event
	err := b.apply(ctx, func(events []model.Event) ([]model.Event, write, error) {
		i := indexOf(events, id)
		if i < 0 {
			return nil, nil, ErrEventNotFound
		}
		events[i].Name = name
		events[i].Goal = goal
		updated = events[i].Clone()
		return events, updateWrite(updated), nil
	})
	if err != nil {
		return model.Event{}, err
	}
	b.log.Info().Str("event_id", id).Msg("event edited")
	return updated, nil
}

func (b *Board) DeleteEvent(ctx context.Context, id string) error {
	err := b.apply(ctx, func(events []model.Event) ([]model.Event, write, error) {
		i := indexOf(events, id)
		if i < 0 {
			return nil, nil, ErrEventNotFound
		}
		return append(events[:i], events[i+1:]...), func(ctx context.Context, s repo.Store) error {
			return s.Delete(ctx, id)
		}, nil
	})
	if err != nil {
		return err
	}
	b.log.Info().Str("event_id", id).Msg("event deleted")
	return nil
}

// apply runs fn on a copy of the collection and swaps it in on success. The store
// write happens after the in-memory change; a failed write is only logged and the
// in-memory state is kept.
func (b *Board) apply(ctx context.Context, fn func(events []model.Event) ([]model.Event, write, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next, w, err := fn(model.CloneEvents(b.events))
	if err != nil {
		return err
	}
	b.events = next

	if w != nil {
		if err := w(ctx, b.store); err != nil {
			b.log.Error().Err(err).Msg("failed to write events to store")
		}
	}
	return nil
}

func updateWrite(e model.Event) write {
	return func(ctx context.Context, s repo.Store) error {
		return s.Update(ctx, e)
	}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func indexOf(events []model.Event, id string) int {
	for i := range events {
		if events[i].ID == id {
			return i
		}
	}
	return -1
}
