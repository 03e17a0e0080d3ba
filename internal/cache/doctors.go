// Package cache keeps the doctor directory in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"medivault-api/internal/model"
)

const doctorsKey = "medivault:doctors:v1"

// Directory is the read side of the user store.
type Directory interface {
	UserByID(ctx context.Context, id string) (*model.User, error)
	ListDoctors(ctx context.Context) ([]model.DoctorSummary, error)
}

type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type lookupRecorder interface {
	CacheLookup(result string)
}

// Doctors serves ListDoctors from Redis and falls through to the wrapped
// directory on a miss or any Redis error.
type Doctors struct {
	next Directory
	rdb  kv
	ttl  time.Duration
	log  zerolog.Logger
	rec  lookupRecorder
}

func NewDoctors(next Directory, rdb redis.Cmdable, ttl time.Duration, log zerolog.Logger) *Doctors {
	return newDoctors(next, rdb, ttl, log)
}

func newDoctors(next Directory, rdb kv, ttl time.Duration, log zerolog.Logger) *Doctors {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Doctors{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (d *Doctors) WithRecorder(r lookupRecorder) *Doctors {
	d.rec = r
	return d
}

func (d *Doctors) UserByID(ctx context.Context, id string) (*model.User, error) {
	return d.next.UserByID(ctx, id)
}

func (d *Doctors) ListDoctors(ctx context.Context) ([]model.DoctorSummary, error) {
	raw, err := d.rdb.Get(ctx, doctorsKey).Bytes()
	switch {
	case err == nil:
		var docs []model.DoctorSummary
		if jerr := json.Unmarshal(raw, &docs); jerr == nil {
			d.record("hit")
			return docs, nil
		}
		d.log.Warn().Msg("corrupt doctor cache entry, reloading")
	case errors.Is(err, redis.Nil):
		d.record("miss")
	default:
		d.record("error")
		d.log.Warn().Err(err).Msg("doctor cache read failed")
	}

	docs, err := d.next.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(docs); err == nil {
		if err := d.rdb.Set(ctx, doctorsKey, b, d.ttl).Err(); err != nil {
			d.log.Warn().Err(err).Msg("doctor cache write failed")
		}
	}
	return docs, nil
}

// Invalidate drops the cached list, e.g. after a doctor registers.
func (d *Doctors) Invalidate(ctx context.Context) {
	if err := d.rdb.Del(ctx, doctorsKey).Err(); err != nil {
		d.log.Warn().Err(err).Msg("doctor cache invalidate failed")
	}
}

// UserCreated invalidates the list when u is a doctor. It has the signature
// of an auth.Accounts OnUserCreated hook.
func (d *Doctors) UserCreated(ctx context.Context, u *model.User) {
	if u != nil && u.Role == model.RoleDoctor {
		d.Invalidate(ctx)
	}
}

func (d *Doctors) record(result string) {
	if d.rec != nil {
		d.rec.CacheLookup(result)
	}
}
