package botsession

import (
	"github.com/samber/do/v2"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/showheysas/tech0notta/internal/credential"
	"github.com/showheysas/tech0notta/internal/launcher"
	"github.com/showheysas/tech0notta/internal/livebus"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Store, error) {
		return NewStore(), nil
	})
	do.Provide(injector, func(i do.Injector) (*Orchestrator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		store := do.MustInvoke[*Store](i)
		bus := do.MustInvoke[*livebus.Bus](i)
		issuer := do.MustInvoke[credential.Issuer](i)
		l := do.MustInvoke[launcher.Launcher](i)
		return NewOrchestrator(store, bus, issuer, l, Options{
			BotName:         cfg.BotDisplayName,
			CallbackBaseURL: cfg.CallbackBaseURL,
			StopTimeout:     cfg.WorkerStopTimeout(),
			LaunchTimeout:   cfg.WorkerLaunchTimeout(),
			Speech: Speech{
				Language: cfg.DefaultTranscribeLanguage,
				Project:  cfg.GoogleCloudProjectID,
				Creds:    cfg.GoogleCloudCredentialsJSON,
				Region:   cfg.GoogleCloudSpeechLocation,
				Model:    cfg.GoogleCloudSpeechModel,
			},
		}), nil
	})
}
