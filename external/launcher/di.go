package launcher

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/showheysas/tech0notta/internal/launcher"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (launcher.Launcher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.LauncherMode {
		case config.LauncherModeDocker:
			return NewDockerLauncher(cfg.WorkerImage), nil
		case config.LauncherModeExec:
			return NewExecLauncher(cfg.WorkerBinary), nil
		default:
			return nil, fmt.Errorf("unknown launcher mode %q", cfg.LauncherMode)
		}
	})
}
