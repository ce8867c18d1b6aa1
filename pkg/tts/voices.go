package tts

// GeminiVoices maps the fallback provider's prebuilt voice names to
// human-readable descriptors (the subset most natural for French/English).
var GeminiVoices = map[string]string{
	"Kore":      "Kore - Firm female",
	"Puck":      "Puck - Upbeat neutral",
	"Zephyr":    "Zephyr - Bright neutral",
	"Enceladus": "Enceladus - Breathy female",
	"Algieba":   "Algieba - Smooth neutral",
	"Sulafat":   "Sulafat - Warm female",
	"Aoede":     "Aoede - Clear female",
	"Charon":    "Charon - Deep male",
}

// DefaultGeminiVoice is the safe voice used for any unmapped input.
const DefaultGeminiVoice = "Kore"

// voiceMapping pairs each realtime voice with its closest Gemini match.
var voiceMapping = map[string]string{
	"ara":      "Kore",
	"eve":      "Sulafat",
	"mika":     "Aoede",
	"leo":      "Puck",
	"sal":      "Charon",
	"rex":      "Zephyr",
	"valentin": "Algieba",
}

// MapVoice returns the Gemini voice for a realtime voice name.
// The mapping is pure and total: any miss, including the empty string,
// resolves to DefaultGeminiVoice.
func MapVoice(name string) string {
	if mapped, ok := voiceMapping[name]; ok {
		return mapped
	}
	return DefaultGeminiVoice
}

// IsGeminiVoice reports whether name is a known fallback voice.
func IsGeminiVoice(name string) bool {
	_, ok := GeminiVoices[name]
	return ok
}
