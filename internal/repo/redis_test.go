package repo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donationBoard/internal/model"
)

func newRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	log := zerolog.Nop()
	store, err := NewRedisStore(client, "", &log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_CreateKeepsOrder(t *testing.T) {
	store, mr := newRedis(t)
	ctx := context.Background()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, store.Create(ctx, model.Event{ID: id, Name: id, Goal: 1, Donations: []model.Donation{}}))
	}

	events, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "zeta", events[0].ID)
	assert.Equal(t, "alpha", events[1].ID)
	assert.Equal(t, "mid", events[2].ID)

	raw := mr.HGet("eventos", "alpha")
	var stored map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, "alpha", stored["nome"])
}

func TestRedisStore_UpdateAndDelete(t *testing.T) {
	store, _ := newRedis(t)
	ctx := context.Background()

	park := model.Event{ID: "park", Name: "City Park Fund", Goal: 1000, Donations: []model.Donation{}}
	require.NoError(t, store.Create(ctx, park))

	park.Raised = 10
	park.Donations = []model.Donation{{Amount: 10, Method: model.PaymentPix}}
	require.NoError(t, store.Update(ctx, park))

	events, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Event{park}, events)

	assert.ErrorIs(t, store.Update(ctx, model.Event{ID: "missing"}), ErrEventNotFound)

	require.NoError(t, store.Delete(ctx, "park"))
	assert.ErrorIs(t, store.Delete(ctx, "park"), ErrEventNotFound)

	events, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRedisStore_Persist(t *testing.T) {
	store, _ := newRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, model.Event{ID: "old", Name: "Old", Goal: 1}))

	replacement := []model.Event{
		{ID: "b", Name: "B", Goal: 2, Donations: []model.Donation{}},
		{ID: "a", Name: "A", Goal: 1, Donations: []model.Donation{}},
	}
	require.NoError(t, store.Persist(ctx, replacement))

	events, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, replacement, events)

	require.NoError(t, store.Create(ctx, model.Event{ID: "c", Name: "C", Goal: 3}))
	events, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "c", events[2].ID)
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	store, mr := newRedis(t)
	mr.HSet("eventos", "broken", "{not json")

	events, err := store.Load(context.Background())
	assert.ErrorIs(t, err, ErrCorruptData)
	assert.Empty(t, events)
}

func TestRedisStore_OrphansAppended(t *testing.T) {
	store, mr := newRedis(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, model.Event{ID: "first", Name: "First", Goal: 1}))
	mr.HSet("eventos", "orphan", `{"nome":"Orphan","meta":1}`)

	events, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].ID)
	assert.Equal(t, "orphan", events[1].ID)
	assert.Equal(t, "Orphan", events[1].Name)
}

func TestRedisStore_Watch(t *testing.T) {
	store, mr := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())

	changed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func() { changed <- struct{}{} })
	}()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("eventos:changed")["eventos:changed"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, store.Create(context.Background(), model.Event{ID: "a", Name: "A", Goal: 1}))
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification received")
	}

	mr.Publish("eventos:changed", "garbage")
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("malformed message did not trigger a reload")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
