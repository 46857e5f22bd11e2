package credential

import (
	"time"

	"github.com/samber/do/v2"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/showheysas/tech0notta/internal/credential"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (credential.Issuer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewSDKJWTIssuer(cfg.ZoomSDKKey, cfg.ZoomSDKSecret, time.Duration(cfg.ZoomSDKTokenTTLSec)*time.Second), nil
	})
}
