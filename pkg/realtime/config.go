package realtime

import "time"

const (
	// RealtimeURL is the xAI realtime WebSocket endpoint
	// (OpenAI Realtime API compatible).
	RealtimeURL = "wss://api.x.ai/v1/realtime"

	// DefaultVoice is used when no voice override is given.
	DefaultVoice = "ara"

	// DefaultModel is the frontier realtime model.
	DefaultModel = "grok-4"

	// DefaultInstructions is the behavioral prompt used when none is given.
	DefaultInstructions = "You are a helpful voice assistant for VocalIA."

	// DefaultCostPerMinute is the estimated connection price in USD/min.
	// Product default, not an invariant; override via Config.CostPerMinute.
	DefaultCostPerMinute = 0.05
)

// Audio framing requirements for the realtime channel:
// 16-bit PCM, 24kHz, mono, base64 over the wire, ~40ms chunks.
const (
	AudioFormat     = "pcm16"
	AudioSampleRate = 24000
	AudioChannels   = 1
	AudioChunkMs    = 40
)

// Voices maps the available voice names to human-readable descriptors.
var Voices = map[string]string{
	"ara":      "Ara - Default voice",
	"eve":      "Eve - Female voice",
	"leo":      "Leo - Male voice",
	"sal":      "Sal - Male voice",
	"rex":      "Rex - Male voice",
	"mika":     "Mika - Female voice",
	"valentin": "Valentin - Male voice",
}

// VoiceNames returns the voice names in a stable order.
func VoiceNames() []string {
	return []string{"ara", "eve", "leo", "sal", "rex", "mika", "valentin"}
}

// IsVoice reports whether name is one of the available voices.
func IsVoice(name string) bool {
	_, ok := Voices[name]
	return ok
}

// TurnDetection holds server-side VAD parameters.
type TurnDetection struct {
	Type            string
	Threshold       float64
	PrefixPadding   time.Duration
	SilenceDuration time.Duration
}

// DefaultTurnDetection returns the default server VAD settings.
// 400ms trailing silence; shorter windows cut speakers off mid-sentence.
func DefaultTurnDetection() TurnDetection {
	return TurnDetection{
		Type:            "server_vad",
		Threshold:       0.5,
		PrefixPadding:   300 * time.Millisecond,
		SilenceDuration: 400 * time.Millisecond,
	}
}

// Config holds the tunable parameters for a Session.
type Config struct {
	// APIKey is the xAI bearer credential. Required.
	APIKey string

	// Voice overrides DefaultVoice.
	Voice string

	// Model overrides DefaultModel.
	Model string

	// Instructions overrides DefaultInstructions.
	Instructions string

	// URL overrides RealtimeURL; used by tests to point at a local server.
	URL string

	// TurnDetection overrides DefaultTurnDetection when Type is non-empty.
	TurnDetection TurnDetection

	// CostPerMinute overrides DefaultCostPerMinute when > 0.
	CostPerMinute float64

	// HandshakeTimeout bounds the WebSocket dial. Defaults to 10s.
	HandshakeTimeout time.Duration
}

// withDefaults returns a copy of the config with zero values filled in.
func (c Config) withDefaults() Config {
	if c.Voice == "" {
		c.Voice = DefaultVoice
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Instructions == "" {
		c.Instructions = DefaultInstructions
	}
	if c.URL == "" {
		c.URL = RealtimeURL
	}
	if c.TurnDetection.Type == "" {
		c.TurnDetection = DefaultTurnDetection()
	}
	if c.CostPerMinute <= 0 {
		c.CostPerMinute = DefaultCostPerMinute
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	return c
}
