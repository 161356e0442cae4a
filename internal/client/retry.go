package client

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/danmuck/pxcanvas/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Backoff defines the delay between dial attempts.
type Backoff struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// RetryPolicy bounds SendRetry. Attempts < 1 means a single attempt.
type RetryPolicy struct {
	Attempts int
	Backoff  Backoff
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 1,
		Backoff: Backoff{
			InitialDelay: 100 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     2 * time.Second,
			Jitter:       true,
		},
	}
}

// NextDelay returns the wait before attempt N (1-based).
func NextDelay(b Backoff, attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 {
		return b.InitialDelay
	}
	if b.InitialDelay <= 0 {
		return 0
	}
	if b.Multiplier < 1.0 {
		b.Multiplier = 1.0
	}
	delay := float64(b.InitialDelay) * math.Pow(b.Multiplier, float64(attempt-1))
	if b.MaxDelay > 0 && delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}
	if b.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay *= f
	}
	return time.Duration(delay)
}

// SendRetry is Send that redials on connection failures only. Once a command
// line has been written it is never resent.
func SendRetry(ctx context.Context, addr string, cmd protocol.Command, policy RetryPolicy) (string, error) {
	attempts := max(policy.Attempts, 1)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var resp string
		resp, err = Send(ctx, addr, cmd)
		if err == nil || !errors.Is(err, ErrDial) || attempt == attempts {
			return resp, err
		}

		delay := NextDelay(policy.Backoff, attempt, rng)
		log.Debug().
			Err(err).
			Str("addr", addr).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("client.SendRetry backoff")
		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
