package rfid

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GeorgiDimov1228/warehouse-management/pkg/logger"
)

// redisDeduper deduplicación compartida entre procesos con SETNX + TTL. Si
// Redis no responde, la lectura pasa: preferimos un duplicado ocasional a
// perder lecturas.
type redisDeduper struct {
	rdb    *redis.Client
	window time.Duration
	log    *logger.Logger
}

// NewRedisDeduper crea el deduper respaldado en Redis.
func NewRedisDeduper(rdb *redis.Client, window time.Duration, log *logger.Logger) Deduper {
	return &redisDeduper{rdb: rdb, window: window, log: log.Component("rfid-dedupe")}
}

func (d *redisDeduper) FirstSeen(ctx context.Context, tag, readerID string) bool {
	key := fmt.Sprintf("rfid:seen:%s:%s", readerID, tag)
	ok, err := d.rdb.SetNX(ctx, key, 1, d.window).Result()
	if err != nil {
		d.log.Warn().Err(err).Str("rfid_tag", tag).Msg("redis no disponible; la lectura pasa sin deduplicar")
		return true
	}
	return ok
}
