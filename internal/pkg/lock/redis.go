package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// KeyBrandLock é a chave do lease por marca: lock:brand:{brand}
const KeyBrandLock = "lock:brand:%s"

// ErrLockTimeout é devolvido quando o lease não foi obtido antes do prazo.
var ErrLockTimeout = errors.New("tempo esgotado aguardando lock da marca")

// releaseScript só remove a chave se o token ainda for o nosso:
// um lease expirado e readquirido por outra instância não é apagado.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisLocker implementa BrandLocker com um lease SET NX PX compartilhado entre instâncias.
type RedisLocker struct {
	rdb           *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	maxWait       time.Duration
}

// NewRedisLocker cria o locker. ttl limita quanto tempo um processo morto segura a marca.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		rdb:           rdb,
		ttl:           ttl,
		retryInterval: 50 * time.Millisecond,
		maxWait:       ttl,
	}
}

// Lock tenta obter o lease até o prazo do contexto (ou ttl, se o contexto não tiver prazo).
func (l *RedisLocker) Lock(ctx context.Context, brand string) (Unlock, error) {
	key := fmt.Sprintf(KeyBrandLock, brand)
	token := uuid.NewString()

	waitCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.maxWait)
		defer cancel()
	}

	backoff := l.retryInterval
	for {
		ok, err := l.rdb.SetNX(waitCtx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("falha ao adquirir lock da marca %s: %w", brand, err)
		}
		if ok {
			break
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrLockTimeout
		case <-time.After(backoff):
		}
		if backoff < 500*time.Millisecond {
			backoff *= 2
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// O contexto do chamador pode já ter expirado; a liberação usa um prazo próprio.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err()
		})
	}, nil
}
