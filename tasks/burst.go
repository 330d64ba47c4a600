package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

var ErrMustBePositive = errors.New("must be greater than zero")

// Burst emits count synthetic clicks, one every `every`, until done or ctx
// is cancelled. emit and updateProgress are called from the task goroutine.
func Burst(
	ctx context.Context,
	count int,
	every time.Duration,
	emit func(i int),
	updateProgress func(float64),
) error {
	if count <= 0 || every <= 0 {
		return fmt.Errorf("burst count[%d] and pacing[%s] %w", count, every, ErrMustBePositive)
	}

	limiter := rate.NewLimiter(rate.Every(every), 1)
	for i := 0; i < count; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("burst stopped after %d of %d clicks: %w", i, count, err)
		}
		emit(i)
		updateProgress(float64(i+1) / float64(count))
	}
	return nil
}
