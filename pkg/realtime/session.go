// Package realtime provides a client session for the xAI Grok Realtime API
// for low-latency speech-to-speech conversations.
//
// A Session owns one upstream WebSocket. Inbound provider messages are
// translated into the stable Event vocabulary defined in events.go and
// delivered, in arrival order, to the callback set with OnEvent.
package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Jouiet/vocalia-relay/internal/log"
)

// Errors returned by Session operations.
var (
	// ErrMissingAPIKey is returned by NewSession when no credential is given.
	ErrMissingAPIKey = errors.New("realtime: XAI API key required")

	// ErrNotConnected is returned by send operations before Connect succeeds
	// or after the session disconnects.
	ErrNotConnected = errors.New("realtime: not connected")

	// ErrAlreadyStarted is returned by Connect on a session that is already
	// connecting or connected.
	ErrAlreadyStarted = errors.New("realtime: session already connected")

	// ErrInvalidVoice is returned by SetVoice for names outside the voice set.
	ErrInvalidVoice = errors.New("realtime: invalid voice")
)

// connState models the session lifecycle. Control-plane operations are
// deliberate no-ops in every state except stateConnected.
type connState int

const (
	stateIdle connState = iota
	stateConnecting
	stateConnected
	stateDisconnected
)

const (
	readTimeout       = 120 * time.Second
	keepAliveInterval = 30 * time.Second
	writeTimeout      = 10 * time.Second
)

// Session manages one WebSocket connection to the Grok Realtime API.
type Session struct {
	cfg    Config
	logger *slog.Logger

	ws   *websocket.Conn
	wsMu sync.Mutex

	mu        sync.RWMutex
	state     connState
	sessionID string
	voice     string

	connectTime         time.Time
	disconnectTime      time.Time
	messagesReceived    uint64
	audioChunksSent     uint64
	audioChunksReceived uint64

	onEvent func(Event)
}

// NewSession creates a session with the given configuration.
// The API key is required; its absence is a fatal configuration error.
func NewSession(cfg Config) (*Session, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg = cfg.withDefaults()
	if !IsVoice(cfg.Voice) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidVoice, cfg.Voice)
	}

	return &Session{
		cfg:    cfg,
		voice:  cfg.Voice,
		state:  stateIdle,
		logger: log.With("component", "realtime", "model", cfg.Model),
	}, nil
}

// OnEvent sets the callback invoked for every translated inbound event.
// Set it before Connect; events for a session are delivered in arrival order
// from a single goroutine.
func (s *Session) OnEvent(fn func(Event)) {
	s.mu.Lock()
	s.onEvent = fn
	s.mu.Unlock()
}

// Connect establishes the upstream WebSocket and configures the session.
// It returns once the transport is open; the provider's session.created
// acknowledgment arrives asynchronously as an event. Calling Connect on a
// session that is already connecting or connected returns ErrAlreadyStarted.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == stateConnecting || s.state == stateConnected {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = stateConnecting
	s.mu.Unlock()

	url := fmt.Sprintf("%s?model=%s", s.cfg.URL, s.cfg.Model)

	header := make(http.Header)
	header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		s.mu.Lock()
		s.state = stateIdle
		s.mu.Unlock()
		return fmt.Errorf("realtime: connect: %w", err)
	}

	// Respond to upstream pings and refresh the read deadline on traffic
	ws.SetPingHandler(func(appData string) error {
		s.wsMu.Lock()
		defer s.wsMu.Unlock()
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeTimeout))
	})
	ws.SetReadDeadline(time.Now().Add(readTimeout))

	s.wsMu.Lock()
	s.ws = ws
	s.wsMu.Unlock()

	s.mu.Lock()
	s.state = stateConnected
	s.connectTime = time.Now()
	s.disconnectTime = time.Time{}
	s.mu.Unlock()

	if err := s.configureSession(); err != nil {
		s.Disconnect()
		return fmt.Errorf("realtime: configure session: %w", err)
	}

	go s.readLoop(ws)
	go s.keepAlive(ws)

	s.logger.Info("session connected", "voice", s.Voice())
	return nil
}

// configureSession pushes the session.update payload with voice,
// instructions, audio format and turn detection settings.
func (s *Session) configureSession() error {
	td := s.cfg.TurnDetection

	return s.writeJSON(map[string]any{
		"type": "session.update",
		"session": map[string]any{
			"modalities":          []string{"text", "audio"},
			"instructions":        s.cfg.Instructions,
			"voice":               s.Voice(),
			"input_audio_format":  AudioFormat,
			"output_audio_format": AudioFormat,
			"input_audio_transcription": map[string]any{
				"model": "whisper-1",
			},
			"turn_detection": map[string]any{
				"type":                td.Type,
				"threshold":           td.Threshold,
				"prefix_padding_ms":   int(td.PrefixPadding.Milliseconds()),
				"silence_duration_ms": int(td.SilenceDuration.Milliseconds()),
			},
			"tools":       []any{},
			"tool_choice": "auto",
		},
	})
}

// SendAudio sends one base64-encoded PCM16 audio frame upstream.
func (s *Session) SendAudio(audioBase64 string) error {
	if !s.Connected() {
		return ErrNotConnected
	}

	if err := s.writeJSON(map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": audioBase64,
	}); err != nil {
		return err
	}

	s.mu.Lock()
	s.audioChunksSent++
	s.mu.Unlock()
	return nil
}

// SendAudioBuffer encodes a raw PCM16 buffer (24kHz mono little-endian)
// to the wire format and delegates to SendAudio.
func (s *Session) SendAudioBuffer(pcm []byte) error {
	return s.SendAudio(base64.StdEncoding.EncodeToString(pcm))
}

// SendText injects a text turn into the conversation and requests a response.
func (s *Session) SendText(text string) error {
	if !s.Connected() {
		return ErrNotConnected
	}

	if err := s.writeJSON(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	}); err != nil {
		return err
	}

	return s.writeJSON(map[string]any{"type": "response.create"})
}

// CommitAudio commits the input audio buffer, triggering a response.
// No-op when the session is not connected.
func (s *Session) CommitAudio() error {
	return s.sendIfConnected(map[string]any{"type": "input_audio_buffer.commit"})
}

// ClearAudio clears the input audio buffer.
// No-op when the session is not connected.
func (s *Session) ClearAudio() error {
	return s.sendIfConnected(map[string]any{"type": "input_audio_buffer.clear"})
}

// CancelResponse interrupts the current response (barge-in).
// No-op when the session is not connected.
func (s *Session) CancelResponse() error {
	return s.sendIfConnected(map[string]any{"type": "response.cancel"})
}

// UpdateSession pushes a partial session settings update.
// No-op when the session is not connected.
func (s *Session) UpdateSession(settings map[string]any) error {
	return s.sendIfConnected(map[string]any{
		"type":    "session.update",
		"session": settings,
	})
}

// SetVoice validates the voice name, updates local state and issues a
// control-plane session update. Unknown names are rejected before any
// network effect.
func (s *Session) SetVoice(name string) error {
	if !IsVoice(name) {
		return fmt.Errorf("%w: %s", ErrInvalidVoice, name)
	}

	s.mu.Lock()
	s.voice = name
	s.mu.Unlock()

	return s.UpdateSession(map[string]any{"voice": name})
}

// Disconnect closes the upstream connection. It is idempotent and safe to
// call on a session that never connected; the disconnect timestamp is
// recorded once for later statistics.
func (s *Session) Disconnect() {
	s.mu.Lock()
	wasConnected := s.state == stateConnected
	s.state = stateDisconnected
	if wasConnected && s.disconnectTime.IsZero() {
		s.disconnectTime = time.Now()
	}
	s.mu.Unlock()

	s.wsMu.Lock()
	ws := s.ws
	s.ws = nil
	s.wsMu.Unlock()

	if ws != nil {
		ws.Close()
	}
	if wasConnected {
		s.logger.Info("session disconnected", "session_id", s.ID())
	}
}

// Connected reports whether the transport is open.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == stateConnected
}

// ID returns the provider-assigned session identifier, or "" before the
// session.created acknowledgment arrives.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Voice returns the currently selected voice.
func (s *Session) Voice() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voice
}

// Stats returns a snapshot of the session's usage counters. Duration uses
// the disconnect timestamp when present, otherwise the current time.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	snap := Stats{
		ConnectTime:         s.connectTime,
		DisconnectTime:      s.disconnectTime,
		MessagesReceived:    s.messagesReceived,
		AudioChunksSent:     s.audioChunksSent,
		AudioChunksReceived: s.audioChunksReceived,
	}
	s.mu.RUnlock()

	snap.finalize(time.Now(), s.cfg.CostPerMinute)
	return snap
}

// readLoop processes inbound provider messages until the connection closes.
func (s *Session) readLoop(ws *websocket.Conn) {
	for {
		ws.SetReadDeadline(time.Now().Add(readTimeout))

		_, data, err := ws.ReadMessage()
		if err != nil {
			s.handleClose(err)
			return
		}

		s.handleRaw(data)
	}
}

// handleClose marks the session disconnected after an upstream drop and
// surfaces the failure as an error event on this session only.
func (s *Session) handleClose(err error) {
	s.mu.Lock()
	wasConnected := s.state == stateConnected
	if wasConnected {
		s.state = stateDisconnected
		if s.disconnectTime.IsZero() {
			s.disconnectTime = time.Now()
		}
	}
	s.mu.Unlock()

	if wasConnected {
		s.logger.Warn("upstream connection closed", "error", err)
		s.emit(Event{Type: EventError, Err: fmt.Errorf("realtime: connection closed: %w", err)})
	}
}

// handleRaw parses one provider message and dispatches it. Malformed
// payloads are logged and swallowed; they do not increment the message
// counter. Unrecognized types are ignored without error.
func (s *Session) handleRaw(data []byte) {
	var ev serverEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Warn("failed to parse upstream message", "error", err)
		return
	}

	s.mu.Lock()
	s.messagesReceived++
	s.mu.Unlock()

	switch ev.Type {
	case "session.created":
		var sess struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(ev.Session, &sess); err == nil && sess.ID != "" {
			s.mu.Lock()
			s.sessionID = sess.ID
			s.mu.Unlock()
		}
		s.logger.Info("session created", "session_id", sess.ID)
		s.emit(Event{Type: EventSessionCreated, Session: ev.Session})

	case "session.updated":
		s.emit(Event{Type: EventSessionUpdated})

	case "input_audio_buffer.speech_started":
		s.emit(Event{Type: EventSpeechStarted})

	case "input_audio_buffer.speech_stopped":
		s.emit(Event{Type: EventSpeechStopped})

	case "input_audio_buffer.committed":
		s.emit(Event{Type: EventAudioCommitted})

	case "conversation.item.created":
		s.emit(Event{Type: EventItemCreated, Item: ev.Item})

	case "response.created":
		s.emit(Event{Type: EventResponseStarted, Response: ev.Response})

	case "response.audio.delta":
		s.mu.Lock()
		s.audioChunksReceived++
		s.mu.Unlock()
		s.emit(Event{Type: EventAudioDelta, Delta: ev.Delta, ItemID: ev.ItemID})

	case "response.audio.done":
		s.emit(Event{Type: EventAudioDone})

	case "response.audio_transcript.delta":
		s.emit(Event{Type: EventTranscriptDelta, Delta: ev.Delta, ItemID: ev.ItemID})

	case "response.audio_transcript.done":
		s.emit(Event{Type: EventTranscriptDone, Text: ev.Transcript})

	case "response.text.delta":
		s.emit(Event{Type: EventTextDelta, Delta: ev.Delta, ItemID: ev.ItemID})

	case "response.text.done":
		s.emit(Event{Type: EventTextDone, Text: ev.Text})

	case "response.done":
		s.emit(Event{Type: EventResponseDone, Response: ev.Response})

	case "conversation.item.input_audio_transcription.completed":
		s.emit(Event{Type: EventUserTranscript, Text: ev.Transcript})

	case "error":
		s.logger.Warn("upstream error event", "message", ev.Error.message())
		s.emit(Event{Type: EventError, Err: fmt.Errorf("realtime: %s", ev.Error.message())})

	default:
		if ev.Type != "" {
			s.logger.Debug("ignoring upstream event", "type", ev.Type)
		}
	}
}

func (s *Session) emit(ev Event) {
	s.mu.RLock()
	fn := s.onEvent
	s.mu.RUnlock()

	if fn != nil {
		fn(ev)
	}
}

// keepAlive sends periodic pings while the session stays connected.
func (s *Session) keepAlive(ws *websocket.Conn) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for range ticker.C {
		if !s.Connected() {
			return
		}
		s.wsMu.Lock()
		err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
		s.wsMu.Unlock()
		if err != nil {
			return
		}
	}
}

// sendIfConnected writes a control-plane message when the transport is
// present; in any other state it is a deliberate no-op so callers never
// need to guard these with a connectivity check.
func (s *Session) sendIfConnected(v any) error {
	if !s.Connected() {
		return nil
	}
	return s.writeJSON(v)
}

func (s *Session) writeJSON(v any) error {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	if s.ws == nil {
		return ErrNotConnected
	}
	return s.ws.WriteJSON(v)
}
