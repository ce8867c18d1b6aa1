// Package tts provides the text-to-speech fallback for the voice relay.
//
// The fallback provider is Gemini TTS: a stateless request/response call
// used per utterance when the realtime conversational channel cannot be
// established. All providers implement the Provider interface so callers
// can swap in the Mock for tests.
//
// Example usage:
//
//	provider, _ := tts.NewGemini(
//	    tts.WithAPIKey(os.Getenv("GEMINI_API_KEY")),
//	    tts.WithVoice(tts.MapVoice("ara")),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Bonjour")
//	// result.Audio contains PCM16 24kHz audio bytes
package tts

import "context"

// Provider is the TTS fallback interface.
type Provider interface {
	// Synthesize converts one utterance to audio.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// HealthCheck performs a minimal synthesis call and reports success.
	// Provider errors are logged, never propagated.
	HealthCheck(ctx context.Context) bool

	// Stats returns the cumulative usage counters.
	Stats() Stats

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is one complete synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data (PCM16 24kHz mono for Gemini).
	Audio []byte

	// MimeType describes the audio encoding, e.g. "audio/L16;codec=pcm;rate=24000".
	MimeType string

	// CharCount is the number of characters synthesized.
	CharCount int
}

// Stats holds cumulative provider counters. Counters reset only when the
// provider is recreated.
type Stats struct {
	RequestCount    uint64 `json:"request_count"`
	TotalChars      uint64 `json:"total_chars"`
	TotalAudioBytes uint64 `json:"total_audio_bytes"`
	TotalAudioKB    string `json:"total_audio_kb"`
}
