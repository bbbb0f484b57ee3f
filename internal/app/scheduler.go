package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper чистит просроченные записи кэша
type Sweeper interface {
	Sweep() int
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler создаёт новый планировщик
func NewScheduler(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("sweep_interval", s.interval))

	s.wg.Add(1)
	go s.runCacheSweepTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

// runCacheSweepTask периодически удаляет просроченные записи кэша
func (s *Scheduler) runCacheSweepTask(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.sweeper.Sweep(); removed > 0 {
				s.logger.Debug("Cache sweep completed", zap.Int("removed", removed))
			}
		case <-s.stopChan:
			s.logger.Info("Cache sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Cache sweep task cancelled")
			return
		}
	}
}
