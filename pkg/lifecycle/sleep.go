package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/maestroship/maestro/pkg/entities"
)

type sleepCheck struct {
	duration time.Duration
}

func newSleepCheck(cfg Config) (entities.LifecycleCheck, error) {
	if cfg.Seconds <= 0 {
		return nil, errors.New("sleep check requires a positive seconds value")
	}
	return &sleepCheck{duration: time.Duration(cfg.Seconds) * time.Second}, nil
}

func (c *sleepCheck) String() string { return fmt.Sprintf("sleep:%s", c.duration) }

// Test always succeeds after waiting, but is cancellable per spec.md
// §4.1's "sleep: wait N seconds; always succeeds (but is cancellable)".
func (c *sleepCheck) Test(ctx context.Context, container *entities.Container) bool {
	return sleepWithContext(ctx, c.duration)
}
