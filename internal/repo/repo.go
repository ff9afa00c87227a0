package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"donationBoard/internal/model"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrCorruptData   = errors.New("stored data is corrupt")
)

type Store interface {
	Load(ctx context.Context) ([]model.Event, error)
	Persist(ctx context.Context, events []model.Event) error
	Create(ctx context.Context, e model.Event) error
	Update(ctx context.Context, e model.Event) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Watcher calls onChange after any write to the collection, from any instance,
// until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// DecodeCollection parses either a JSON array of events or a JSON object of events
// keyed by id. Object entries are ordered by key. Events without an id get a new one.
func DecodeCollection(data []byte) ([]model.Event, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrCorruptData)
	}

	var events []model.Event
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
		}
	case '{':
		var keyed map[string]model.Event
		if err := json.Unmarshal(trimmed, &keyed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
		}
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			e := keyed[k]
			if e.ID == "" {
				e.ID = k
			}
			events = append(events, e)
		}
	default:
		return nil, fmt.Errorf("%w: expected array or object", ErrCorruptData)
	}

	return Normalize(events), nil
}

// Normalize assigns missing ids, gives repeated ids a fresh one and replaces nil
// donation slices.
func Normalize(events []model.Event) []model.Event {
	out := make([]model.Event, 0, len(events))
	seen := make(map[string]bool, len(events))
	for _, e := range events {
		if e.ID == "" || seen[e.ID] {
			e.ID = uuid.NewString()
		}
		seen[e.ID] = true
		if e.Donations == nil {
			e.Donations = []model.Donation{}
		}
		out = append(out, e)
	}
	return out
}

func indexOf(events []model.Event, id string) int {
	for i := range events {
		if events[i].ID == id {
			return i
		}
	}
	return -1
}
