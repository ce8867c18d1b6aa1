package protocol

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    interface{}
		wantErr bool
	}{
		{
			name:    "audio message",
			msgType: TypeAudio,
			data:    AudioData{Audio: base64.StdEncoding.EncodeToString([]byte("pcm"))},
			wantErr: false,
		},
		{
			name:    "text message",
			msgType: TypeText,
			data:    TextData{Text: "Bonjour"},
			wantErr: false,
		},
		{
			name:    "nil data",
			msgType: TypeCommit,
			data:    nil,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if msg == nil && !tt.wantErr {
				t.Error("NewMessage() returned nil message")
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestMessageRoundTrip(t *testing.T) {
	pcmData := []byte("test audio chunk")

	msg, err := NewAudioMessage(pcmData)
	if err != nil {
		t.Fatalf("NewAudioMessage() error = %v", err)
	}

	// Serialize to bytes
	bytes, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	// Parse back
	parsed, err := ParseMessage(bytes)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	if parsed.Type != TypeAudio {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeAudio)
	}

	audioData, err := parsed.GetAudioData()
	if err != nil {
		t.Fatalf("GetAudioData() error = %v", err)
	}

	decoded, err := audioData.DecodeAudio()
	if err != nil {
		t.Fatalf("DecodeAudio() error = %v", err)
	}
	if string(decoded) != string(pcmData) {
		t.Errorf("Decoded = %q, want %q", decoded, pcmData)
	}
}

func TestTextMessage(t *testing.T) {
	msg, err := NewTextMessage("Quelle heure est-il ?")
	if err != nil {
		t.Fatalf("NewTextMessage() error = %v", err)
	}

	if msg.Type != TypeText {
		t.Errorf("Type = %v, want %v", msg.Type, TypeText)
	}

	textData, err := msg.GetTextData()
	if err != nil {
		t.Fatalf("GetTextData() error = %v", err)
	}

	if textData.Text != "Quelle heure est-il ?" {
		t.Errorf("Text = %v, want question", textData.Text)
	}
}

func TestVoiceMessage(t *testing.T) {
	msg, err := NewVoiceMessage("eve")
	if err != nil {
		t.Fatalf("NewVoiceMessage() error = %v", err)
	}

	if msg.Type != TypeVoice {
		t.Errorf("Type = %v, want %v", msg.Type, TypeVoice)
	}

	voiceData, err := msg.GetVoiceData()
	if err != nil {
		t.Fatalf("GetVoiceData() error = %v", err)
	}

	if voiceData.Voice != "eve" {
		t.Errorf("Voice = %v, want eve", voiceData.Voice)
	}
}

func TestConnectedMessage(t *testing.T) {
	t.Run("primary session", func(t *testing.T) {
		msg, err := NewConnectedMessage("sess_abc123", "ara", false)
		if err != nil {
			t.Fatalf("NewConnectedMessage() error = %v", err)
		}

		data, err := msg.GetConnectedData()
		if err != nil {
			t.Fatalf("GetConnectedData() error = %v", err)
		}

		if data.SessionID != "sess_abc123" {
			t.Errorf("SessionID = %v, want sess_abc123", data.SessionID)
		}
		if data.Voice != "ara" {
			t.Errorf("Voice = %v, want ara", data.Voice)
		}
		if data.Fallback {
			t.Error("Fallback should be false")
		}
	})

	t.Run("fallback flag omitted when false", func(t *testing.T) {
		msg, _ := NewConnectedMessage("sess_x", "ara", false)
		bytes, _ := msg.Bytes()
		var parsed map[string]json.RawMessage
		if err := json.Unmarshal(bytes, &parsed); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		var data map[string]interface{}
		if err := json.Unmarshal(parsed["data"], &data); err != nil {
			t.Fatalf("unmarshal data: %v", err)
		}
		if _, ok := data["fallback"]; ok {
			t.Error("fallback field should be omitted when false")
		}
	})

	t.Run("degraded session", func(t *testing.T) {
		msg, _ := NewConnectedMessage("fallback_1", "ara", true)
		data, err := msg.GetConnectedData()
		if err != nil {
			t.Fatalf("GetConnectedData() error = %v", err)
		}
		if !data.Fallback {
			t.Error("Fallback should be true")
		}
	})
}

func TestEventMessage(t *testing.T) {
	payload := json.RawMessage(`{"id":"resp_1","status":"completed"}`)

	msg, err := NewEventMessage("response.done", "", "", "", payload)
	if err != nil {
		t.Fatalf("NewEventMessage() error = %v", err)
	}

	if msg.Type != TypeEvent {
		t.Errorf("Type = %v, want %v", msg.Type, TypeEvent)
	}

	eventData, err := msg.GetEventData()
	if err != nil {
		t.Fatalf("GetEventData() error = %v", err)
	}

	if eventData.Event != "response.done" {
		t.Errorf("Event = %v, want response.done", eventData.Event)
	}
	if string(eventData.Payload) != string(payload) {
		t.Errorf("Payload = %s, want %s", eventData.Payload, payload)
	}
}

func TestSpeakMessage(t *testing.T) {
	audioData := []byte{0x00, 0x01, 0x02, 0x03}

	msg, err := NewSpeakMessage(audioData, "audio/L16;codec=pcm;rate=24000", 24000)
	if err != nil {
		t.Fatalf("NewSpeakMessage() error = %v", err)
	}

	if msg.Type != TypeSpeak {
		t.Errorf("Type = %v, want %v", msg.Type, TypeSpeak)
	}

	speakData, err := msg.GetSpeakData()
	if err != nil {
		t.Fatalf("GetSpeakData() error = %v", err)
	}

	if speakData.MimeType != "audio/L16;codec=pcm;rate=24000" {
		t.Errorf("MimeType = %v", speakData.MimeType)
	}
	if speakData.SampleRate != 24000 {
		t.Errorf("SampleRate = %v, want 24000", speakData.SampleRate)
	}

	decoded, err := speakData.DecodeSpeakAudio()
	if err != nil {
		t.Fatalf("DecodeSpeakAudio() error = %v", err)
	}

	if len(decoded) != len(audioData) {
		t.Errorf("Decoded length = %v, want %v", len(decoded), len(audioData))
	}
}

func TestErrorMessage(t *testing.T) {
	msg, err := NewErrorMessage("upstream unavailable")
	if err != nil {
		t.Fatalf("NewErrorMessage() error = %v", err)
	}

	errData, err := msg.GetErrorData()
	if err != nil {
		t.Fatalf("GetErrorData() error = %v", err)
	}

	if errData.Error != "upstream unavailable" {
		t.Errorf("Error = %v", errData.Error)
	}
}

func TestSessionUpdateMessage(t *testing.T) {
	raw := json.RawMessage(`{"instructions":"Sois bref."}`)
	msg, err := NewMessage(TypeSessionUpdate, SessionUpdateData{Session: raw})
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	update, err := msg.GetSessionUpdateData()
	if err != nil {
		t.Fatalf("GetSessionUpdateData() error = %v", err)
	}

	if string(update.Session) != string(raw) {
		t.Errorf("Session = %s, want %s", update.Session, raw)
	}
}

func TestParseInvalidMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "invalid json",
			input:   "not json",
			wantErr: true,
		},
		{
			name:    "empty json",
			input:   "{}",
			wantErr: false, // Empty is valid, just no type
		},
		{
			name:    "valid message",
			input:   `{"type":"commit","ts":1234567890}`,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMessage([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMessageJSON(t *testing.T) {
	// Verify JSON structure matches expected wire format
	msg, _ := NewVoiceMessage("leo")

	bytes, _ := msg.Bytes()

	var parsed map[string]interface{}
	if err := json.Unmarshal(bytes, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal as map: %v", err)
	}

	if parsed["type"] != "voice" {
		t.Errorf("type = %v, want voice", parsed["type"])
	}

	if _, ok := parsed["ts"]; !ok {
		t.Error("ts field should be present")
	}

	if _, ok := parsed["data"]; !ok {
		t.Error("data field should be present")
	}
}

func BenchmarkNewAudioMessage(b *testing.B) {
	pcmData := make([]byte, 1920) // one 40ms chunk at 24kHz mono PCM16

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewAudioMessage(pcmData)
	}
}

func BenchmarkParseMessage(b *testing.B) {
	msg, _ := NewAudioMessage(make([]byte, 1920))
	bytes, _ := msg.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseMessage(bytes)
	}
}
