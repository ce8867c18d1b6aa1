package tts_test

import (
	"testing"

	"github.com/Jouiet/vocalia-relay/pkg/realtime"
	"github.com/Jouiet/vocalia-relay/pkg/tts"
)

func TestMapVoiceCoversAllRealtimeVoices(t *testing.T) {
	for _, name := range realtime.VoiceNames() {
		mapped := tts.MapVoice(name)
		if !tts.IsGeminiVoice(mapped) {
			t.Errorf("MapVoice(%q) = %q, not in the fallback catalogue", name, mapped)
		}
	}
}

func TestMapVoiceUnknownFallsBackToDefault(t *testing.T) {
	for _, name := range []string{"", "unknown", "ARA", "kore"} {
		if got := tts.MapVoice(name); got != tts.DefaultGeminiVoice {
			t.Errorf("MapVoice(%q) = %q, expected %q", name, got, tts.DefaultGeminiVoice)
		}
	}
}

func TestMapVoiceIsDeterministic(t *testing.T) {
	if tts.MapVoice("ara") != "Kore" {
		t.Errorf("ara should map to Kore, got %s", tts.MapVoice("ara"))
	}
	if tts.MapVoice("sal") != "Charon" {
		t.Errorf("sal should map to Charon, got %s", tts.MapVoice("sal"))
	}
	for i := 0; i < 3; i++ {
		if tts.MapVoice("eve") != "Sulafat" {
			t.Fatal("mapping must be deterministic")
		}
	}
}

func TestGeminiVoiceCatalogue(t *testing.T) {
	if len(tts.GeminiVoices) != 8 {
		t.Errorf("expected 8 fallback voices, got %d", len(tts.GeminiVoices))
	}
	if !tts.IsGeminiVoice(tts.DefaultGeminiVoice) {
		t.Error("default voice must be in the catalogue")
	}
}
