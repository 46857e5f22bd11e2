package lifecycle

import (
	"github.com/samber/do/v2"
	"github.com/showheysas/tech0notta/internal/archive"
	"github.com/showheysas/tech0notta/internal/botsession"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/showheysas/tech0notta/internal/ingest"
	"github.com/showheysas/tech0notta/internal/livebus"
	"github.com/showheysas/tech0notta/internal/webhook"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Coordinator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewCoordinator(
			do.MustInvoke[*botsession.Orchestrator](i),
			do.MustInvoke[*ingest.Client](i),
			do.MustInvoke[*livebus.Bus](i),
			do.MustInvoke[archive.Archiver](i),
			do.MustInvoke[webhook.Sender](i),
			cfg.TranscriptTimezone,
			cfg.TranscriptLocation(),
		), nil
	})
}
