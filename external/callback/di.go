package callback

import (
	"github.com/samber/do/v2"
	"github.com/showheysas/tech0notta/internal/callback"
	"github.com/showheysas/tech0notta/internal/config"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (callback.Pusher, error) {
		c := do.MustInvoke[*config.WorkerConfig](i)
		return NewHTTPPusher(c.CallbackURL, nil), nil
	})
}
