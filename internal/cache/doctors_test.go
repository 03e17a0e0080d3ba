package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medivault-api/internal/model"
)

type fakeKV struct {
	mu   sync.Mutex
	vals map[string]string
	err  error
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.vals[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	if f.vals == nil {
		f.vals = map[string]string{}
	}
	f.vals[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.vals, k)
	}
	return redis.NewIntResult(int64(len(keys)), f.err)
}

type countingDir struct {
	calls int
	docs  []model.DoctorSummary
}

func (c *countingDir) UserByID(context.Context, string) (*model.User, error) {
	return nil, model.ErrNotFound
}

func (c *countingDir) ListDoctors(context.Context) ([]model.DoctorSummary, error) {
	c.calls++
	return c.docs, nil
}

type results map[string]int

func (r results) CacheLookup(result string) { r[result]++ }

func TestDoctors_CachesList(t *testing.T) {
	dir := &countingDir{docs: []model.DoctorSummary{{ID: "d1", Name: "Amy"}}}
	rec := results{}
	c := newDoctors(dir, &fakeKV{}, time.Minute, zerolog.Nop()).WithRecorder(rec)
	ctx := context.Background()

	first, err := c.ListDoctors(ctx)
	require.NoError(t, err)
	second, err := c.ListDoctors(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, dir.calls)
	assert.Equal(t, results{"miss": 1, "hit": 1}, rec)

	c.Invalidate(ctx)
	_, err = c.ListDoctors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, dir.calls)
}

func TestDoctors_FailsOpen(t *testing.T) {
	dir := &countingDir{docs: []model.DoctorSummary{{ID: "d1"}}}
	c := newDoctors(dir, &fakeKV{err: errors.New("connection refused")}, time.Minute, zerolog.Nop())

	docs, err := c.ListDoctors(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = c.ListDoctors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, dir.calls)
}

func TestDoctors_CorruptEntryReloads(t *testing.T) {
	dir := &countingDir{docs: []model.DoctorSummary{{ID: "d1"}}}
	kv := &fakeKV{vals: map[string]string{doctorsKey: "{not json"}}
	c := newDoctors(dir, kv, time.Minute, zerolog.Nop())

	docs, err := c.ListDoctors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "d1", docs[0].ID)
	assert.Equal(t, 1, dir.calls)
}

func TestDoctors_UserCreatedDropsListForDoctorsOnly(t *testing.T) {
	kv := &fakeKV{vals: map[string]string{doctorsKey: `[{"id":"d1","name":"Ada","email":"ada@x.io"}]`}}
	d := newDoctors(&countingDir{}, kv, time.Minute, zerolog.Nop())

	d.UserCreated(context.Background(), &model.User{ID: "p9", Role: model.RolePatient})
	assert.Contains(t, kv.vals, doctorsKey)

	d.UserCreated(context.Background(), &model.User{ID: "d9", Role: model.RoleDoctor})
	assert.NotContains(t, kv.vals, doctorsKey)
}
