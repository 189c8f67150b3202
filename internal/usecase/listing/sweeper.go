package listing

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wastemarket-backend/internal/logger"
)

// Sweeper периодически закрывает просроченные лоты.
type Sweeper struct {
	expire   *ExpireOverdueUseCase
	interval time.Duration
}

func NewSweeper(expire *ExpireOverdueUseCase, interval time.Duration) *Sweeper {
	return &Sweeper{expire: expire, interval: interval}
}

// Run блокируется до отмены ctx.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := s.expire.Execute(ctx)
			if err != nil {
				logger.Get().WithError(err).Error("sweeper: ошибка обработки просроченных лотов")
				continue
			}
			if count > 0 {
				logger.Get().WithFields(logrus.Fields{"expired": count}).Info("sweeper: лоты переведены в expired")
			}
		}
	}
}
