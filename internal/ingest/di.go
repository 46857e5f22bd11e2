package ingest

import (
	"time"

	"github.com/samber/do/v2"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/showheysas/tech0notta/internal/livebus"
	"github.com/showheysas/tech0notta/internal/retry"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Store, error) {
		return NewStore(), nil
	})
	do.Provide(injector, func(i do.Injector) (*Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		policy := retry.Policy{
			MaxAttempts: cfg.StreamMaxAttempts,
			BaseDelay:   time.Duration(cfg.StreamBaseDelayMs) * time.Millisecond,
			Multiplier:  cfg.StreamBackoffMultiplier,
			MaxDelay:    time.Duration(cfg.StreamMaxDelayMs) * time.Millisecond,
		}
		return NewClient(
			do.MustInvoke[*Store](i),
			do.MustInvoke[*livebus.Bus](i),
			do.MustInvoke[Dialer](i),
			policy,
			retry.RealSleeper(),
		), nil
	})
}
