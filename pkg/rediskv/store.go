package rediskv

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/prepstream/pkg/streamstate"
)

// BuildStore returns the redis-backed store when enabled, and the in-memory
// store otherwise. The memory fallback only works for a single relay process;
// multi-instance deployments must enable redis.
func BuildStore(s Settings) (streamstate.Store, error) {
	if !s.Enabled {
		log.Debug().Str("component", "rediskv").Msg("redis disabled, using in-memory stream store")
		return streamstate.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: s.Addr})
	log.Info().Str("component", "rediskv").Str("addr", s.Addr).Msg("using redis stream store")
	return streamstate.NewRedisStore(client)
}
