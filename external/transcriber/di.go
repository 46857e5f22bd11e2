package transcriber

import (
	"github.com/samber/do/v2"
	"github.com/showheysas/tech0notta/internal/config"
	"github.com/showheysas/tech0notta/internal/transcriber"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Transcriber, error) {
		c := do.MustInvoke[*config.WorkerConfig](i)
		return NewCloudSpeechTranscriber(CloudSpeechConfig{
			ProjectID:       c.GoogleCloudProjectID,
			CredentialsJSON: c.GoogleCloudCredentialsJSON,
			Language:        c.DefaultTranscribeLanguage,
			Location:        c.GoogleCloudSpeechLocation,
			Model:           c.GoogleCloudSpeechModel,
		}), nil
	})
}
