package ingest

import (
	"github.com/samber/do/v2"
	"github.com/showheysas/tech0notta/internal/ingest"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (ingest.Dialer, error) {
		return NewWebsocketDialer(), nil
	})
}
