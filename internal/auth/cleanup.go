package auth

import (
	"context"
	"time"

	"github.com/ripplefeed/backend/internal/database"
	"github.com/ripplefeed/backend/internal/logger"
	"github.com/ripplefeed/backend/internal/metrics"
	"github.com/ripplefeed/backend/internal/models"
	"go.uber.org/zap"
)

// SweepInterval is the cadence of the background expired-session sweep.
// Rotation already deletes expired rows it trips over; the sweep bounds
// storage growth from sessions nobody ever presents again.
const SweepInterval = time.Minute

// CleanupService periodically deletes expired session rows
type CleanupService struct {
	ctx      context.Context
	cancel   context.CancelFunc
	interval time.Duration
}

// NewCleanupService creates the sweep with the given interval
func NewCleanupService(interval time.Duration) *CleanupService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupService{
		ctx:      ctx,
		cancel:   cancel,
		interval: interval,
	}
}

// Start begins the periodic sweep
func (s *CleanupService) Start() {
	logger.Log.Info("starting session cleanup service",
		zap.Duration("interval", s.interval))
	go s.run()
}

// Stop stops the sweep
func (s *CleanupService) Stop() {
	s.cancel()
}

func (s *CleanupService) run() {
	// Run immediately on startup
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.ctx.Done():
			return
		}
	}
}

// sweep deletes all rows whose expiry has passed. Safe to run concurrently
// with live rotations: a rotation always pushes expires_at into the future
// before the row could match here.
func (s *CleanupService) sweep() {
	count, err := SweepExpired(s.ctx)
	if err != nil {
		logger.Log.Error("session sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		metrics.Get().SessionsSweptTotal.Add(float64(count))
		logger.Log.Info("cleaned expired sessions", zap.Int64("count", count))
	}
}

// SweepExpired deletes expired session rows and reports how many went
func SweepExpired(ctx context.Context) (int64, error) {
	res := database.DB.WithContext(ctx).
		Delete(&models.Session{}, "expires_at < ?", time.Now().UTC())
	return res.RowsAffected, res.Error
}
