package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/immxrtalbeast/medsignal/internal/domain"
	"github.com/immxrtalbeast/medsignal/lib/logger/sl"
	"github.com/redis/go-redis/v9"
)

const roleKeyPrefix = "medsignal:users:role:"

// Cache is the subset of the redis client the directory cache uses.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedUserDirectory keeps role lookups in redis for a short TTL so a
// burst of admin broadcasts does not fan out into database queries.
// Redis failures fall through to the source directory.
type CachedUserDirectory struct {
	source UserDirectory
	cache  Cache
	ttl    time.Duration
	log    *slog.Logger
}

func NewCachedUserDirectory(source UserDirectory, cache Cache, ttl time.Duration, log *slog.Logger) *CachedUserDirectory {
	if log == nil {
		log = slog.Default()
	}
	return &CachedUserDirectory{
		source: source,
		cache:  cache,
		ttl:    ttl,
		log:    log,
	}
}

func (d *CachedUserDirectory) GetUsersByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	const op = "repository.cache.usersByRole"
	log := d.log.With(slog.String("op", op), slog.String("role", string(role)))

	key := roleKey(role)
	raw, err := d.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var users []*domain.User
		if err := json.Unmarshal(raw, &users); err == nil {
			return users, nil
		}
		log.Warn("discarding undecodable cache entry")
	case errors.Is(err, redis.Nil):
	default:
		log.Warn("cache read failed", sl.Err(err))
	}

	users, err := d.source.GetUsersByRole(ctx, role)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(users)
	if err != nil {
		return users, nil
	}
	if err := d.cache.Set(ctx, key, payload, d.ttl).Err(); err != nil {
		log.Warn("cache write failed", sl.Err(err))
	}
	return users, nil
}

func roleKey(role domain.Role) string {
	return roleKeyPrefix + string(role)
}
