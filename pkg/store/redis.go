package store

import (
	"sync"

	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
)

const redisNS = "feedr:"

// RedisStore is the Redis-backed Store for headless deployments where the
// client state outlives a single host. The redigo reply doubles as the
// durability acknowledgment.
type RedisStore struct {
	mu   sync.Mutex
	conn redis.Conn
}

func NewRedisStore(conn redis.Conn) *RedisStore {
	return &RedisStore{conn: conn}
}

func (rs *RedisStore) Get(key string) (string, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	value, err := redis.String(rs.conn.Do("GET", redisNS+key))
	if err == redis.ErrNil {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "store: redis GET failed")
	}
	return value, nil
}

func (rs *RedisStore) Set(key, value string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, err := rs.conn.Do("SET", redisNS+key, value); err != nil {
		return errors.Wrap(err, "store: redis SET failed")
	}
	return nil
}

func (rs *RedisStore) Delete(key string) error {
	return rs.MultiRemove(key)
}

func (rs *RedisStore) MultiSet(pairs map[string]string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	args := make([]interface{}, 0, len(pairs)*2)
	for k, v := range pairs {
		args = append(args, redisNS+k, v)
	}
	if _, err := rs.conn.Do("MSET", args...); err != nil {
		return errors.Wrap(err, "store: redis MSET failed")
	}
	return nil
}

func (rs *RedisStore) MultiRemove(keys ...string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	args := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		args = append(args, redisNS+k)
	}
	if _, err := rs.conn.Do("DEL", args...); err != nil {
		return errors.Wrap(err, "store: redis DEL failed")
	}
	return nil
}
