package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"donationBoard/internal/model"
)

const (
	tmpSuffix       = ".tmp"
	filePermissions = 0644
)

// fileStore keeps the whole collection as one JSON array on disk, the server-side
// counterpart of a browser local storage key.
type fileStore struct {
	mu   sync.Mutex
	path string
	log  *zerolog.Logger
}

func NewFileStore(path string, log *zerolog.Logger) (Store, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &fileStore{path: path, log: log}, nil
}

func (s *fileStore) Load(ctx context.Context) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *fileStore) read() ([]model.Event, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []model.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	events, err := DecodeCollection(data)
	if err != nil {
		return []model.Event{}, err
	}
	return events, nil
}

func (s *fileStore) Persist(ctx context.Context, events []model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(events)
}

func (s *fileStore) write(events []model.Event) error {
	if events == nil {
		events = []model.Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}

	tmp := s.path + tmpSuffix
	if err := os.WriteFile(tmp, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

func (s *fileStore) Create(ctx context.Context, e model.Event) error {
	return s.splice(func(events []model.Event) ([]model.Event, error) {
		return append(events, e), nil
	})
}

func (s *fileStore) Update(ctx context.Context, e model.Event) error {
	return s.splice(func(events []model.Event) ([]model.Event, error) {
		i := indexOf(events, e.ID)
		if i < 0 {
			return nil, ErrEventNotFound
		}
		events[i] = e
		return events, nil
	})
}

func (s *fileStore) Delete(ctx context.Context, id string) error {
	return s.splice(func(events []model.Event) ([]model.Event, error) {
		i := indexOf(events, id)
		if i < 0 {
			return nil, ErrEventNotFound
		}
		return append(events[:i], events[i+1:]...), nil
	})
}

// splice loads, mutates and persists the whole array.
func (s *fileStore) splice(fn func([]model.Event) ([]model.Event, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.read()
	if err != nil && !errors.Is(err, ErrCorruptData) {
		return err
	}
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("overwriting corrupt event file")
	}

	events, err = fn(events)
	if err != nil {
		return err
	}
	return s.write(events)
}

func (s *fileStore) Close() error { return nil }
