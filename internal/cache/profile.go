package cache

import (
	"fmt"
	"time"

	"github.com/kitbuilder587/negotiation-bridge/internal/convert"
	"github.com/kitbuilder587/negotiation-bridge/internal/domain"
)

// Recorder - счетчики попаданий, реализуется метриками
type Recorder interface {
	RecordCacheHit()
	RecordCacheMiss()
}

type nopRecorder struct{}

func (nopRecorder) RecordCacheHit()  {}
func (nopRecorder) RecordCacheMiss() {}

// ProfileCache хранит JSON профилей GeniusWeb, чтобы не конвертировать
// одну и ту же функцию полезности на каждую сессию
type ProfileCache struct {
	store    Store[[]byte]
	ttl      time.Duration
	recorder Recorder
}

func NewProfileCache(store Store[[]byte], ttl time.Duration, recorder Recorder) *ProfileCache {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &ProfileCache{store: store, ttl: ttl, recorder: recorder}
}

// Profile возвращает JSON профиля по ключу, при промахе конвертирует u.
// Ключ должен однозначно определять u, например сценарий + сторона.
func (c *ProfileCache) Profile(key, name string, u domain.UtilityFunction) ([]byte, error) {
	if data, ok := c.store.Get(key); ok {
		c.recorder.RecordCacheHit()
		return data, nil
	}
	c.recorder.RecordCacheMiss()

	if u == nil {
		return nil, domain.ErrNilUtilityFunction
	}
	conv, err := convert.NewConverter(u.OutcomeSpace())
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", key, err)
	}
	profile, err := conv.ProfileFromUtility(name, u)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", key, err)
	}
	data, err := convert.EncodeProfile(profile)
	if err != nil {
		return nil, err
	}

	c.store.Set(key, data, c.ttl)
	return data, nil
}

func (c *ProfileCache) Invalidate(key string) {
	c.store.Delete(key)
}
