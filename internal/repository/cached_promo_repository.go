package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	promoDomain "github.com/venuedesk/service-billing/internal/domain/promo"
)

const promoCodeKeyPrefix = "billing:promo:code:"

// RedisClient is the subset of the Redis client the promo cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedPromoRepository fronts a PromoRepository with a Redis read-through
// cache on code lookups. Writes go to the backing store and evict the key.
// Cache failures degrade to the backing store.
type CachedPromoRepository struct {
	next   promoDomain.PromoRepository
	redis  RedisClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedPromoRepository wraps next with a Redis cache.
func NewCachedPromoRepository(next promoDomain.PromoRepository, client RedisClient, ttl time.Duration, logger *zap.Logger) *CachedPromoRepository {
	return &CachedPromoRepository{next: next, redis: client, ttl: ttl, logger: logger}
}

func promoCodeKey(code string) string {
	return promoCodeKeyPrefix + promoDomain.NormalizeCode(code)
}

func (r *CachedPromoRepository) Save(ctx context.Context, p *promoDomain.PromoCode) error {
	if err := r.next.Save(ctx, p); err != nil {
		return err
	}
	r.evict(ctx, p.Code())
	return nil
}

func (r *CachedPromoRepository) Update(ctx context.Context, p *promoDomain.PromoCode) error {
	if err := r.next.Update(ctx, p); err != nil {
		return err
	}
	r.evict(ctx, p.Code())
	return nil
}

// FindByCode serves from Redis when possible, else loads and populates the cache.
func (r *CachedPromoRepository) FindByCode(ctx context.Context, code string) (*promoDomain.PromoCode, error) {
	key := promoCodeKey(code)

	raw, err := r.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var model PromoModel
		if jsonErr := json.Unmarshal(raw, &model); jsonErr == nil {
			if p, mapErr := toPromoDomain(&model); mapErr == nil {
				return p, nil
			}
		}
		r.logger.Warn("discarding corrupt promo cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("promo cache read failed", zap.String("key", key), zap.Error(err))
	}

	p, err := r.next.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, p)
	return p, nil
}

func (r *CachedPromoRepository) FindByID(ctx context.Context, id uuid.UUID) (*promoDomain.PromoCode, error) {
	return r.next.FindByID(ctx, id)
}

func (r *CachedPromoRepository) FindActive(ctx context.Context, now time.Time) ([]*promoDomain.PromoCode, error) {
	return r.next.FindActive(ctx, now)
}

func (r *CachedPromoRepository) SaveUsage(ctx context.Context, usage *promoDomain.PromoUsage) error {
	return r.next.SaveUsage(ctx, usage)
}

func (r *CachedPromoRepository) DeleteUsage(ctx context.Context, id uuid.UUID) error {
	return r.next.DeleteUsage(ctx, id)
}

func (r *CachedPromoRepository) store(ctx context.Context, key string, p *promoDomain.PromoCode) {
	model, err := toPromoModel(p)
	if err != nil {
		return
	}
	data, err := json.Marshal(model)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("promo cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *CachedPromoRepository) evict(ctx context.Context, code string) {
	if err := r.redis.Del(ctx, promoCodeKey(code)).Err(); err != nil {
		r.logger.Warn("promo cache eviction failed", zap.String("code", code), zap.Error(err))
	}
}
