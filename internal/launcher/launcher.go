// Package launcher describes how isolated meeting workers are started and
// stopped.
package launcher

import "context"

// Handle identifies a running worker, such as a container id or pid.
type Handle string

// Spec is everything a worker needs to join one meeting and report back.
type Spec struct {
	SessionID     string
	MeetingID     string
	Password      string
	Token         string
	BotName       string
	CallbackURL   string
	Language      string
	SpeechProject string
	SpeechCreds   string
	SpeechRegion  string
	SpeechModel   string
}

// Env renders the spec as the worker's environment.
func (s Spec) Env() []string {
	env := []string{
		"MEETING_NUMBER=" + s.MeetingID,
		"JWT_TOKEN=" + s.Token,
		"BOT_NAME=" + s.BotName,
		"SESSION_ID=" + s.SessionID,
		"CALLBACK_URL=" + s.CallbackURL,
	}
	optional := []struct{ key, val string }{
		{"PASSWORD", s.Password},
		{"DEFAULT_TRANSCRIBE_LANGUAGE", s.Language},
		{"GOOGLE_CLOUD_PROJECT_ID", s.SpeechProject},
		{"GOOGLE_CLOUD_CREDENTIALS_JSON", s.SpeechCreds},
		{"GOOGLE_CLOUD_SPEECH_LOCATION", s.SpeechRegion},
		{"GOOGLE_CLOUD_SPEECH_MODEL", s.SpeechModel},
	}
	for _, kv := range optional {
		if kv.val != "" {
			env = append(env, kv.key+"="+kv.val)
		}
	}
	return env
}

type Launcher interface {
	// Launch starts a worker. Failures should be *errs.LaunchError carrying
	// the launcher's diagnostic output.
	Launch(ctx context.Context, spec Spec) (Handle, error)
	// Stop asks the worker to exit. Stopping a worker that is already gone
	// is not an error.
	Stop(ctx context.Context, h Handle) error
}
