package consumerWorker

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"donationBoard/internal/repo"
)

type Consumer interface {
	Consume(handler func([]byte) error) error
}

// Reader turns change messages from RabbitMQ into full reloads of the board.
type Reader struct {
	RMQ      Consumer
	onChange func(ctx context.Context) error
	done     chan struct{}
	cancel   context.CancelFunc
}

func NewReader(rmq Consumer, onChange func(ctx context.Context) error) *Reader {
	return &Reader{
		RMQ:      rmq,
		onChange: onChange,
		done:     make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("🐇 RabbitMQ Reader started")

	go func() {
		defer close(r.done)

		if err := r.RMQ.Consume(func(body []byte) error { return r.handle(cctx, body) }); err != nil {
			zlog.Logger.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("🛑 RabbitMQ Reader stopped by context")
	}()
}

func (r *Reader) handle(ctx context.Context, body []byte) error {
	var msg repo.Change
	if err := json.Unmarshal(body, &msg); err != nil {
		zlog.Logger.Error().
			Err(err).
			Msgf("Failed to unmarshal message: %s", string(body))
		return err
	}

	zlog.Logger.Info().
		Str("op", msg.Op).
		Str("event_id", msg.EventID).
		Msg("📩 Received change from RabbitMQ")

	if err := r.onChange(ctx); err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("op", msg.Op).
			Msg("Failed to reload events after change")
		return err
	}
	return nil
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
