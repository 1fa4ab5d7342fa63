package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

type RetryConfig struct {
	Attempts uint          `env:"ATTEMPTS" envDefault:"3"`
	Delay    time.Duration `env:"DELAY" envDefault:"200ms"`
	MaxDelay time.Duration `env:"MAX_DELAY" envDefault:"2s"`
}

func (rc *RetryConfig) ToRetryOptions() []retry.Option {
	return []retry.Option{
		retry.Attempts(rc.Attempts),
		retry.MaxDelay(rc.MaxDelay),
		retry.Delay(rc.Delay),
	}
}

// Options returns retry options bound to ctx that retry only errors accepted by retryIf.
// The last error is returned as is, not wrapped into a retry.Error list.
func (rc *RetryConfig) Options(ctx context.Context, retryIf func(error) bool) []retry.Option {
	return append(rc.ToRetryOptions(),
		retry.Context(ctx),
		retry.RetryIf(retryIf),
		retry.LastErrorOnly(true),
	)
}
