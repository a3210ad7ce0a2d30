package redis

import (
	"context"
	"errors"
	"time"

	"quiz-pipeline-service/internal/domain"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setIfNewer writes the snapshot unless the cached one carries a higher version.
// KEYS[1] profile hash, ARGV[1] version, ARGV[2] JSON, ARGV[3] ttl in ms.
var setIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// ProfileCache shares profile snapshots between instances. Failures degrade to cache
// misses; the profile store stays authoritative.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewProfileCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *ProfileCache {
	return &ProfileCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "redis_profile_cache").Logger(),
	}
}

func (c *ProfileCache) Get(ctx context.Context, userID string) (domain.PreferenceProfile, bool) {
	data, err := c.client.HGet(ctx, c.key(userID), "data").Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("user_id", userID).Msg("profile cache read failed")
		}
		return domain.PreferenceProfile{}, false
	}
	var profile domain.PreferenceProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return domain.PreferenceProfile{}, false
	}
	return profile, true
}

// Set stores profile unless a newer version is already cached, so a reader that loaded
// before a save cannot overwrite the saved snapshot.
func (c *ProfileCache) Set(ctx context.Context, profile domain.PreferenceProfile) {
	if c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	err = setIfNewer.Run(ctx, c.client, []string{c.key(profile.UserID)}, profile.Version, data, c.ttl.Milliseconds()).Err()
	if err != nil {
		c.logger.Warn().Err(err).Str("user_id", profile.UserID).Msg("profile cache write failed")
	}
}

func (c *ProfileCache) key(userID string) string {
	return "profile:" + userID
}
