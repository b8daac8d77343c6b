package cache

import "time"

// Store - кеш с TTL, ключ строка
type Store[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration)
	Delete(key string)
}
