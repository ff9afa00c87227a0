package board

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"donationBoard/internal/model"
	"donationBoard/internal/repo"
)

const (
	ExportFileName    = "eventos.json"
	ExportCSVFileName = "eventos.csv"
)

// Export serialises the whole collection as a pretty printed JSON array.
func (b *Board) Export() ([]byte, error) {
	data, err := json.MarshalIndent(b.Events(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode events: %w", err)
	}
	return data, nil
}

func (b *Board) ExportCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "nome", "meta", "arrecadado", "doacoes", "admin"}); err != nil {
		return err
	}
	for _, e := range b.Events() {
		if err := cw.Write([]string{
			e.ID,
			e.Name,
			strconv.FormatFloat(e.Goal, 'f', 2, 64),
			strconv.FormatFloat(e.Raised, 'f', 2, 64),
			strconv.Itoa(len(e.Donations)),
			strconv.FormatBool(e.Admin),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Import replaces the collection with the events in data, a JSON array or an object
// keyed by id. Malformed data leaves the current collection untouched.
func (b *Board) Import(ctx context.Context, data []byte) (int, error) {
	events, err := repo.DecodeCollection(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	err = b.apply(ctx, func([]model.Event) ([]model.Event, write, error) {
		snapshot := model.CloneEvents(events)
		b.notice = ""
		return events, func(ctx context.Context, s repo.Store) error {
			return s.Persist(ctx, snapshot)
		}, nil
	})
	if err != nil {
		return 0, err
	}

	b.log.Info().Int("events", len(events)).Msg("events imported")
	return len(events), nil
}
