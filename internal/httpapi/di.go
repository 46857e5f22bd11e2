package httpapi

import (
	"net/http"

	"github.com/samber/do/v2"
	"github.com/showheysas/tech0notta/internal/botsession"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/showheysas/tech0notta/internal/credential"
	"github.com/showheysas/tech0notta/internal/ingest"
	"github.com/showheysas/tech0notta/internal/lifecycle"
	"github.com/showheysas/tech0notta/internal/livebus"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (http.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		bots := do.MustInvoke[*botsession.Orchestrator](i)
		bus := do.MustInvoke[*livebus.Bus](i)
		return NewRouter(
			NewHealthHandler(),
			NewBotHandler(bots, do.MustInvoke[credential.Issuer](i)),
			NewLiveHandler(bus, bots),
			NewWebhookHandler(
				do.MustInvoke[*lifecycle.Coordinator](i),
				do.MustInvoke[*ingest.Client](i),
				cfg.ZoomWebhookSecretToken,
				cfg.IsDevelopment(),
			),
		), nil
	})
}
