package config

import "fmt"

// WorkerConfig is the environment handed to a launched meeting worker.
type WorkerConfig struct {
	Env                        string
	MeetingNumber              string
	JWTToken                   string
	Password                   string
	BotName                    string
	SessionID                  string
	CallbackURL                string
	AudioInput                 string
	AudioInputSampleRate       int
	AudioInputChannels         int
	DefaultTranscribeLanguage  string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
}

func (c *WorkerConfig) Validate() error {
	required := []requiredEnvField{
		{name: "MEETING_NUMBER", value: c.MeetingNumber},
		{name: "JWT_TOKEN", value: c.JWTToken},
		{name: "SESSION_ID", value: c.SessionID},
		{name: "CALLBACK_URL", value: c.CallbackURL},
		{name: "DEFAULT_TRANSCRIBE_LANGUAGE", value: c.DefaultTranscribeLanguage},
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
	}
	for _, req := range required {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.AudioInputSampleRate <= 0 {
		return fmt.Errorf("AUDIO_INPUT_SAMPLE_RATE must be positive, got %d", c.AudioInputSampleRate)
	}
	if c.AudioInputChannels <= 0 {
		return fmt.Errorf("AUDIO_INPUT_CHANNELS must be positive, got %d", c.AudioInputChannels)
	}
	return nil
}

func (c *WorkerConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// ReadsStdin reports whether audio is piped in instead of read from a file or FIFO.
func (c *WorkerConfig) ReadsStdin() bool {
	return c.AudioInput == "" || c.AudioInput == "-"
}
