package service

import (
	"context"
	"log"
	"time"

	"github.com/arisehq/levelup/internal/repository"
)

// ResetService runs the day-boundary maintenance pass. It is safe to
// invoke as often as the caller wants; the repository only performs
// the reset once per calendar day.
type ResetService interface {
	RunDailyReset(ctx context.Context) error
	StartScheduler(ctx context.Context, interval time.Duration)
}

type resetService struct {
	resetRepo repository.ResetRepository
}

func NewResetService(resetRepo repository.ResetRepository) ResetService {
	return &resetService{resetRepo: resetRepo}
}

func (s *resetService) RunDailyReset(ctx context.Context) error {
	ran, err := s.resetRepo.ResetDay(ctx, time.Now())
	if err != nil {
		return err
	}
	if ran {
		log.Println("daily reset completed")
	}
	return nil
}

// StartScheduler fires the reset check on a fixed interval until the
// context is cancelled. An immediate pass runs before the first tick so
// a restart near midnight does not leave stale flags until the next
// interval.
func (s *resetService) StartScheduler(ctx context.Context, interval time.Duration) {
	go func() {
		if err := s.RunDailyReset(ctx); err != nil {
			log.Printf("daily reset failed: %v", err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.RunDailyReset(ctx); err != nil {
					log.Printf("daily reset failed: %v", err)
				}
			}
		}
	}()
}
