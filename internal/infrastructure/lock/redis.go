package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

const (
	lockKeyPrefix = "lock:inventory:"
	retryDelay    = 25 * time.Millisecond
)

// Solo borra el bloqueo si el token sigue siendo el nuestro.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

var _ inventory.KeyLocker = (*RedisLocker)(nil)

// RedisLocker exclusión mutua por llave entre instancias del servicio (SET NX PX con token).
type RedisLocker struct {
	client  redis.UniversalClient
	timeout time.Duration
	ttl     time.Duration
	log     *logger.Logger
}

// NewRedisLocker crea el locker. El TTL del bloqueo cubre la espera más la transacción.
func NewRedisLocker(client redis.UniversalClient, timeout time.Duration, log *logger.Logger) *RedisLocker {
	return &RedisLocker{
		client:  client,
		timeout: timeout,
		ttl:     timeout*4 + 5*time.Second,
		log:     log,
	}
}

// Lock toma las llaves en orden canónico reintentando hasta el timeout.
func (l *RedisLocker) Lock(ctx context.Context, keys ...entity.StockKey) (func(), error) {
	ordered := entity.SortKeys(keys)
	token := uuid.NewString()
	deadline := time.Now().Add(l.timeout)

	held := make([]string, 0, len(ordered))
	unlock := func() {
		// El ctx de la operación puede estar cancelado; la liberación usa uno propio.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := releaseScript.Run(rctx, l.client, []string{held[i]}, token).Err(); err != nil {
				l.log.Warn().Err(err).Str("lock", held[i]).Msg("no se pudo liberar el bloqueo redis")
			}
		}
	}

	for _, key := range ordered {
		name := lockKeyPrefix + key.String()
		for {
			ok, err := l.client.SetNX(ctx, name, token, l.ttl).Result()
			if err != nil {
				unlock()
				return nil, fmt.Errorf("redis lock %s: %w", key, err)
			}
			if ok {
				held = append(held, name)
				break
			}
			if time.Now().After(deadline) {
				unlock()
				return nil, fmt.Errorf("llave %s: %w", key, domain.ErrContention)
			}
			select {
			case <-ctx.Done():
				unlock()
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return unlock, nil
}
