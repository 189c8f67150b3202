package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/ignatzorin/wastemarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/wastemarket-backend/internal/logger"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
)

const rateLimitPrefix = "wastemarket:ratelimit"

// NewRateLimitStore выбирает хранилище счётчиков: Redis, если он подключён,
// чтобы лимит был общим для всех экземпляров, иначе память процесса.
func NewRateLimitStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix}), nil
	}
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   rateLimitPrefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit: не удалось создать redis store: %w", err)
	}
	return store, nil
}

// RateLimitMiddleware ограничивает число запросов. Ключ - пользователь,
// если запрос уже аутентифицирован, иначе IP.
// По умолчанию: 10 запросов в минуту.
func RateLimitMiddleware(store limiter.Store, limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}

	instance := limiter.New(store, limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if userID, ok := UserID(c); ok {
			key = "user:" + userID.String()
		}

		state, err := instance.Get(c.Request.Context(), key)
		if err != nil {
			// Недоступное хранилище счётчиков не должно останавливать торги.
			logger.Get().WithError(err).Warn("rate limit: счётчик недоступен, запрос пропущен")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", state.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", state.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", state.Reset))

		if state.Reached {
			response.Error(c, apperror.New(apperror.ErrCodeTooManyRequests, "too many requests, try again later"))
			c.Abort()
			return
		}

		c.Next()
	}
}
