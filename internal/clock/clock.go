package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock is injected wherever a timestamp becomes part of persisted state
// (paid_at, last_notified_at, overdue penalties) so tests can pin it.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return SystemClock{} }),
)
