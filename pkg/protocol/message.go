// Package protocol defines the WebSocket message types exchanged between
// relay clients and the voice relay server.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Relay messages
	TypeAudio         MessageType = "audio"          // Microphone audio chunk
	TypeText          MessageType = "text"           // Text utterance
	TypeCommit        MessageType = "commit"         // Commit buffered audio
	TypeClear         MessageType = "clear"          // Clear buffered audio
	TypeCancel        MessageType = "cancel"         // Cancel in-flight response
	TypeVoice         MessageType = "voice"          // Switch voice
	TypeSessionUpdate MessageType = "session.update" // Session configuration update

	// Relay → Client messages
	TypeConnected MessageType = "connected" // Session established
	TypeEvent     MessageType = "event"     // Upstream realtime event
	TypeError     MessageType = "error"     // Session-level error
	TypeSpeak     MessageType = "speak"     // Synthesized audio playback
)

// MaxFrameBytes is the largest client frame the relay will process.
// Oversized frames are dropped without closing the session.
const MaxFrameBytes = 1 << 20

// MaxTextChars is the longest text utterance accepted from a client.
const MaxTextChars = 10000

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Client → Relay Message Types
// =============================================================================

// AudioData contains a chunk of microphone audio
type AudioData struct {
	Audio string `json:"audio"` // base64-encoded PCM16, 24kHz mono
}

// TextData contains a text utterance
type TextData struct {
	Text string `json:"text"`
}

// VoiceData switches the session voice
type VoiceData struct {
	Voice string `json:"voice"`
}

// SessionUpdateData carries a session configuration update. The payload is
// forwarded upstream verbatim.
type SessionUpdateData struct {
	Session json.RawMessage `json:"session"`
}

// =============================================================================
// Relay → Client Message Types
// =============================================================================

// ConnectedData acknowledges session establishment. Fallback is true when
// the realtime upstream was unreachable and the session runs in degraded
// text-to-speech mode.
type ConnectedData struct {
	SessionID string `json:"session_id"`
	Voice     string `json:"voice"`
	Fallback  bool   `json:"fallback,omitempty"`
}

// EventData wraps an upstream realtime event forwarded to the client
type EventData struct {
	Event   string          `json:"event"`             // upstream event type
	Delta   string          `json:"delta,omitempty"`   // audio or text delta
	Text    string          `json:"text,omitempty"`    // completed transcript
	ItemID  string          `json:"item_id,omitempty"` // conversation item
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrorData reports a session-level error
type ErrorData struct {
	Error string `json:"error"`
}

// SpeakData contains synthesized audio to play
type SpeakData struct {
	Audio      string `json:"audio"`     // base64 encoded
	MimeType   string `json:"mime_type"` // e.g. "audio/L16;codec=pcm;rate=24000"
	SampleRate int    `json:"sample_rate"`
}
