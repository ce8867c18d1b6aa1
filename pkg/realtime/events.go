package realtime

import "encoding/json"

// EventType identifies an internal session event.
// These are the stable vocabulary exposed to consumers; upstream wire
// type names never leak past the dispatcher.
type EventType string

const (
	EventSessionCreated  EventType = "session.created"
	EventSessionUpdated  EventType = "session.updated"
	EventSpeechStarted   EventType = "speech.started"
	EventSpeechStopped   EventType = "speech.stopped"
	EventAudioCommitted  EventType = "audio.committed"
	EventItemCreated     EventType = "item.created"
	EventResponseStarted EventType = "response.started"
	EventAudioDelta      EventType = "audio.delta"
	EventAudioDone       EventType = "audio.done"
	EventTranscriptDelta EventType = "transcript.delta"
	EventTranscriptDone  EventType = "transcript.done"
	EventTextDelta       EventType = "text.delta"
	EventTextDone        EventType = "text.done"
	EventResponseDone    EventType = "response.done"
	EventUserTranscript  EventType = "user.transcript"
	EventError           EventType = "error"
)

// Event is the tagged union delivered to the session's event callback.
// Type is always set; the other fields are populated per type:
//
//	session.created, session.updated   Session
//	item.created                       Item
//	response.started, response.done    Response
//	audio.delta                        Delta (base64 PCM16), ItemID
//	transcript.delta, text.delta       Delta, ItemID
//	transcript.done, text.done         Text
//	user.transcript                    Text
//	error                              Err
//
// The remaining types carry no payload.
type Event struct {
	Type EventType `json:"type"`

	Session  json.RawMessage `json:"session,omitempty"`
	Item     json.RawMessage `json:"item,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`

	Delta  string `json:"delta,omitempty"`
	ItemID string `json:"item_id,omitempty"`
	Text   string `json:"text,omitempty"`

	Err error `json:"-"`
}

// serverEvent is the superset of fields the upstream provider sends.
// Unknown fields are ignored by encoding/json.
type serverEvent struct {
	Type       string          `json:"type"`
	Session    json.RawMessage `json:"session"`
	Item       json.RawMessage `json:"item"`
	Response   json.RawMessage `json:"response"`
	Delta      string          `json:"delta"`
	ItemID     string          `json:"item_id"`
	Transcript string          `json:"transcript"`
	Text       string          `json:"text"`
	Error      *serverError    `json:"error"`
}

// serverError is the error object attached to upstream "error" events.
type serverError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *serverError) message() string {
	if e == nil || e.Message == "" {
		return "unknown error"
	}
	return e.Message
}
