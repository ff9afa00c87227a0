package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"donationBoard/internal/model"
)

const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpReplace = "replace"
)

// Change is broadcast after every successful write. Receivers never patch from it,
// they reload the whole collection.
type Change struct {
	Op      string    `json:"op"`
	EventID string    `json:"event_id,omitempty"`
	At      time.Time `json:"at"`
}

func NewChange(op, eventID string) Change {
	return Change{Op: op, EventID: eventID, At: time.Now().UTC()}
}

func (c Change) Marshal() []byte {
	b, _ := json.Marshal(c)
	return b
}

type Publisher interface {
	Publish(message []byte) error
}

// notifyingStore publishes a Change after each write of the wrapped store.
type notifyingStore struct {
	Store
	pub Publisher
	log *zerolog.Logger
}

func WithNotifications(s Store, pub Publisher, log *zerolog.Logger) Store {
	return &notifyingStore{Store: s, pub: pub, log: log}
}

func (n *notifyingStore) notify(c Change) {
	if err := n.pub.Publish(c.Marshal()); err != nil {
		n.log.Error().Err(err).Str("op", c.Op).Msg("failed to publish change notification")
	}
}

func (n *notifyingStore) Persist(ctx context.Context, events []model.Event) error {
	if err := n.Store.Persist(ctx, events); err != nil {
		return err
	}
	n.notify(NewChange(OpReplace, ""))
	return nil
}

func (n *notifyingStore) Create(ctx context.Context, e model.Event) error {
	if err := n.Store.Create(ctx, e); err != nil {
		return err
	}
	n.notify(NewChange(OpCreate, e.ID))
	return nil
}

func (n *notifyingStore) Update(ctx context.Context, e model.Event) error {
	if err := n.Store.Update(ctx, e); err != nil {
		return err
	}
	n.notify(NewChange(OpUpdate, e.ID))
	return nil
}

func (n *notifyingStore) Delete(ctx context.Context, id string) error {
	if err := n.Store.Delete(ctx, id); err != nil {
		return err
	}
	n.notify(NewChange(OpDelete, id))
	return nil
}
