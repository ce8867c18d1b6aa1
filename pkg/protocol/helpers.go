package protocol

import (
	"encoding/base64"
	"encoding/json"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewAudioMessage creates an audio message from raw PCM data
func NewAudioMessage(pcmData []byte) (*Message, error) {
	return NewMessage(TypeAudio, AudioData{
		Audio: base64.StdEncoding.EncodeToString(pcmData),
	})
}

// NewTextMessage creates a text utterance message
func NewTextMessage(text string) (*Message, error) {
	return NewMessage(TypeText, TextData{Text: text})
}

// NewVoiceMessage creates a voice switch message
func NewVoiceMessage(voice string) (*Message, error) {
	return NewMessage(TypeVoice, VoiceData{Voice: voice})
}

// NewConnectedMessage creates a session acknowledgement message
func NewConnectedMessage(sessionID, voice string, fallback bool) (*Message, error) {
	return NewMessage(TypeConnected, ConnectedData{
		SessionID: sessionID,
		Voice:     voice,
		Fallback:  fallback,
	})
}

// NewEventMessage wraps an upstream realtime event for the client
func NewEventMessage(event, delta, text, itemID string, payload json.RawMessage) (*Message, error) {
	return NewMessage(TypeEvent, EventData{
		Event:   event,
		Delta:   delta,
		Text:    text,
		ItemID:  itemID,
		Payload: payload,
	})
}

// NewErrorMessage creates an error message
func NewErrorMessage(errText string) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Error: errText})
}

// NewSpeakMessage creates a speak message with synthesized audio
func NewSpeakMessage(audioData []byte, mimeType string, sampleRate int) (*Message, error) {
	return NewMessage(TypeSpeak, SpeakData{
		Audio:      base64.StdEncoding.EncodeToString(audioData),
		MimeType:   mimeType,
		SampleRate: sampleRate,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetAudioData extracts audio data from a message
func (m *Message) GetAudioData() (*AudioData, error) {
	var data AudioData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeAudio decodes the base64 audio payload
func (a *AudioData) DecodeAudio() ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.Audio)
}

// GetTextData extracts text data from a message
func (m *Message) GetTextData() (*TextData, error) {
	var data TextData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetVoiceData extracts voice switch data from a message
func (m *Message) GetVoiceData() (*VoiceData, error) {
	var data VoiceData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSessionUpdateData extracts a session update from a message
func (m *Message) GetSessionUpdateData() (*SessionUpdateData, error) {
	var data SessionUpdateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetConnectedData extracts connection acknowledgement data from a message
func (m *Message) GetConnectedData() (*ConnectedData, error) {
	var data ConnectedData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetEventData extracts upstream event data from a message
func (m *Message) GetEventData() (*EventData, error) {
	var data EventData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSpeakData extracts speak data from a message
func (m *Message) GetSpeakData() (*SpeakData, error) {
	var data SpeakData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeSpeakAudio decodes the base64 audio payload
func (s *SpeakData) DecodeSpeakAudio() ([]byte, error) {
	return base64.StdEncoding.DecodeString(s.Audio)
}
