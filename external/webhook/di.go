package webhook

import (
	"github.com/samber/do/v2"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/showheysas/tech0notta/internal/retry"
	"github.com/showheysas/tech0notta/internal/webhook"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (webhook.Sender, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPSender(c.TranscriptWebhookURL, retry.DefaultPolicy(), retry.RealSleeper()), nil
	})
}
