package livebus

import (
	"github.com/samber/do/v2"
	"github.com/showheysas/tech0notta/internal/config"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Store, error) {
		return NewStore(), nil
	})
	do.Provide(injector, func(i do.Injector) (*Bus, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewBus(do.MustInvoke[*Store](i), cfg.TranscriptLocation()), nil
	})
}
