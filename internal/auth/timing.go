package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for response-time equalization
type TimingConfig struct {
	BaseDelayMs    int  // Base delay in milliseconds
	RandomDelayMs  int  // Random delay range in milliseconds
	DelayOnSuccess bool // If true, pad successful outcomes too
}

// TimingDelay pads request handling to a floor so that "no such account"
// and "wrong password" paths take about the same time.
type TimingDelay struct {
	config TimingConfig
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
	}
}

// cryptoRandIntn returns a secure random number between 0 and max (exclusive)
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return int(randomValue % uint64(max)), nil
}

// target is base delay plus a random jitter.
func (td *TimingDelay) target() time.Duration {
	base := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs <= 0 {
		return base
	}
	jitter, err := cryptoRandIntn(td.config.RandomDelayMs)
	if err != nil {
		return base
	}
	return base + time.Duration(jitter)*time.Millisecond
}

// WaitFrom sleeps until at least the target delay has elapsed since startTime.
// It returns early if ctx is cancelled.
func (td *TimingDelay) WaitFrom(ctx context.Context, startTime time.Time, success bool) {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return
	}

	remaining := td.target() - time.Since(startTime)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
