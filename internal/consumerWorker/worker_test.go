package consumerWorker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donationBoard/internal/repo"
)

type fakeConsumer struct {
	mu      sync.Mutex
	handler func([]byte) error
	err     error
}

func (f *fakeConsumer) Consume(handler func([]byte) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	return f.err
}

func (f *fakeConsumer) deliver(body []byte) error {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	return h(body)
}

func (f *fakeConsumer) ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handler != nil
}

func TestReader_ReloadsOnChange(t *testing.T) {
	consumer := &fakeConsumer{}
	var reloads int
	var mu sync.Mutex
	r := NewReader(consumer, func(context.Context) error {
		mu.Lock()
		reloads++
		mu.Unlock()
		return nil
	})

	r.Start(context.Background())
	require.Eventually(t, consumer.ready, time.Second, 5*time.Millisecond)

	require.NoError(t, consumer.deliver(repo.NewChange(repo.OpCreate, "a").Marshal()))
	require.NoError(t, consumer.deliver(repo.NewChange(repo.OpReplace, "").Marshal()))
	assert.Error(t, consumer.deliver([]byte("not json")))

	r.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, reloads)
}

func TestReader_ReloadErrorNacks(t *testing.T) {
	consumer := &fakeConsumer{}
	r := NewReader(consumer, func(context.Context) error { return errors.New("db down") })

	r.Start(context.Background())
	require.Eventually(t, consumer.ready, time.Second, 5*time.Millisecond)

	assert.Error(t, consumer.deliver(repo.NewChange(repo.OpUpdate, "a").Marshal()))
	r.Stop()
}

func TestReader_ConsumeFailureStops(t *testing.T) {
	consumer := &fakeConsumer{err: errors.New("channel closed")}
	r := NewReader(consumer, func(context.Context) error { return nil })

	r.Start(context.Background())
	r.Stop()
}
