package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/Jouiet/vocalia-relay/pkg/protocol"
	"github.com/Jouiet/vocalia-relay/pkg/realtime"
	"github.com/Jouiet/vocalia-relay/pkg/tts"
)

// synthTimeout bounds a single fallback synthesis call
const synthTimeout = 30 * time.Second

// VoiceSession is the upstream surface the relay drives. Satisfied by
// *realtime.Session; stubbed in tests.
type VoiceSession interface {
	OnEvent(fn func(realtime.Event))
	Connect(ctx context.Context) error
	SendAudio(audioBase64 string) error
	SendText(text string) error
	CommitAudio() error
	ClearAudio() error
	CancelResponse() error
	UpdateSession(settings map[string]any) error
	SetVoice(name string) error
	Disconnect()
	ID() string
	Voice() string
	Stats() realtime.Stats
}

// client bridges one relay WebSocket to an upstream voice session, or
// to a synthesis provider when running degraded.
type client struct {
	id     string
	ws     *websocket.Conn
	wsMu   sync.Mutex
	server *Server
	logger *slog.Logger

	upstream VoiceSession // nil in fallback mode
	synth    tts.Provider // nil in primary mode
	voice    string

	closeOnce sync.Once
}

// handleVoice runs one relay session for the lifetime of the connection
func (s *Server) handleVoice(c *websocket.Conn) {
	voice := c.Query("voice", realtime.DefaultVoice)
	if !realtime.IsVoice(voice) {
		s.logger.Warn("unknown voice requested, using default",
			"voice", voice)
		voice = realtime.DefaultVoice
	}
	instructions := c.Query("instructions")

	cl := &client{
		id:     uuid.NewString(),
		ws:     c,
		server: s,
		voice:  voice,
	}
	cl.logger = s.logger.With("conn", cl.id)

	if err := s.registry.Add(cl.id, cl); err != nil {
		cl.logger.Warn("session rejected", "err", err)
		c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server at capacity"))
		c.Close()
		return
	}
	defer func() {
		s.registry.Remove(cl.id)
		cl.Close()
	}()

	if err := cl.connectUpstream(instructions); err != nil {
		cl.logger.Warn("upstream unavailable, degrading to synthesis",
			"err", err)
		if err := cl.enterFallback(); err != nil {
			cl.logger.Error("fallback unavailable", "err", err)
			cl.sendError("voice service unavailable")
			return
		}
	}

	cl.readLoop()
}

// connectUpstream dials the realtime upstream and wires event forwarding
func (cl *client) connectUpstream(instructions string) error {
	sess, err := cl.server.Dial(realtime.Config{
		APIKey:       cl.server.cfg.XAIKey,
		Voice:        cl.voice,
		Instructions: firstNonEmpty(instructions, cl.server.cfg.Instructions),
	})
	if err != nil {
		return err
	}
	sess.OnEvent(cl.forwardEvent)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := sess.Connect(ctx); err != nil {
		return err
	}

	cl.upstream = sess
	cl.logger.Info("session connected",
		"session_id", sess.ID(), "voice", cl.voice)
	return cl.sendConnected(sess.ID(), false)
}

// enterFallback switches the connection to degraded synthesis mode
func (cl *client) enterFallback() error {
	provider, err := cl.server.NewSynth(cl.voice)
	if err != nil {
		return err
	}
	cl.synth = provider
	cl.logger.Info("session degraded",
		"voice", cl.voice, "synth_voice", tts.MapVoice(cl.voice))
	return cl.sendConnected("fallback_"+cl.id, true)
}

// readLoop consumes client frames until the connection drops
func (cl *client) readLoop() {
	for {
		_, data, err := cl.ws.ReadMessage()
		if err != nil {
			return
		}
		cl.server.registry.Touch(cl.id)

		if len(data) > protocol.MaxFrameBytes {
			cl.logger.Warn("oversized frame dropped", "bytes", len(data))
			continue
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			cl.sendError("invalid message")
			continue
		}
		cl.handleMessage(msg)
	}
}

// handleMessage dispatches one client message
func (cl *client) handleMessage(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeAudio:
		if cl.synth != nil {
			cl.sendError("audio input unavailable in fallback mode")
			return
		}
		audio, err := msg.GetAudioData()
		if err != nil {
			cl.sendError("invalid audio payload")
			return
		}
		if err := cl.upstream.SendAudio(audio.Audio); err != nil {
			cl.sendError(err.Error())
		}

	case protocol.TypeText:
		text, err := msg.GetTextData()
		if err != nil || text.Text == "" {
			cl.sendError("invalid text payload")
			return
		}
		if len(text.Text) > protocol.MaxTextChars {
			cl.sendError("text too long")
			return
		}
		if cl.synth != nil {
			cl.speak(text.Text)
			return
		}
		if err := cl.upstream.SendText(text.Text); err != nil {
			cl.sendError(err.Error())
		}

	case protocol.TypeCommit:
		if cl.upstream != nil {
			cl.upstream.CommitAudio()
		}

	case protocol.TypeClear:
		if cl.upstream != nil {
			cl.upstream.ClearAudio()
		}

	case protocol.TypeCancel:
		if cl.upstream != nil {
			cl.upstream.CancelResponse()
		}

	case protocol.TypeVoice:
		voice, err := msg.GetVoiceData()
		if err != nil {
			cl.sendError("invalid voice payload")
			return
		}
		cl.switchVoice(voice.Voice)

	case protocol.TypeSessionUpdate:
		if cl.upstream == nil {
			return
		}
		update, err := msg.GetSessionUpdateData()
		if err != nil {
			cl.sendError("invalid session update")
			return
		}
		var settings map[string]any
		if err := json.Unmarshal(update.Session, &settings); err != nil {
			cl.sendError("invalid session update")
			return
		}
		cl.upstream.UpdateSession(settings)

	default:
		cl.sendError(fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

// switchVoice changes the active voice on either path
func (cl *client) switchVoice(voice string) {
	if !realtime.IsVoice(voice) {
		cl.sendError(fmt.Sprintf("unknown voice: %s", voice))
		return
	}

	if cl.upstream != nil {
		if err := cl.upstream.SetVoice(voice); err != nil {
			cl.sendError(err.Error())
			return
		}
		cl.voice = voice
		return
	}

	// Fallback providers bind their voice at construction
	provider, err := cl.server.NewSynth(voice)
	if err != nil {
		cl.sendError("voice switch failed")
		return
	}
	cl.synth.Close()
	cl.synth = provider
	cl.voice = voice
	cl.logger.Info("fallback voice switched",
		"voice", voice, "synth_voice", tts.MapVoice(voice))
}

// speak synthesizes one utterance and ships it to the client
func (cl *client) speak(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), synthTimeout)
	defer cancel()

	result, err := cl.synth.Synthesize(ctx, text)
	if err != nil {
		cl.logger.Error("synthesis failed", "err", err)
		cl.sendError("synthesis failed")
		return
	}

	msg, err := protocol.NewSpeakMessage(result.Audio, result.MimeType, realtime.AudioSampleRate)
	if err != nil {
		return
	}
	cl.send(msg)
}

// forwardEvent translates an upstream event into a client message.
// Runs on the upstream session's read goroutine.
func (cl *client) forwardEvent(ev realtime.Event) {
	if ev.Type == realtime.EventError {
		errText := "upstream error"
		if ev.Err != nil {
			errText = ev.Err.Error()
		}
		cl.sendError(errText)
		return
	}

	var payload json.RawMessage
	switch ev.Type {
	case realtime.EventSessionCreated, realtime.EventSessionUpdated:
		payload = ev.Session
	case realtime.EventItemCreated:
		payload = ev.Item
	case realtime.EventResponseStarted, realtime.EventResponseDone:
		payload = ev.Response
	}

	msg, err := protocol.NewEventMessage(string(ev.Type), ev.Delta, ev.Text, ev.ItemID, payload)
	if err != nil {
		return
	}
	cl.send(msg)
}

// sendConnected acknowledges session establishment
func (cl *client) sendConnected(sessionID string, fallback bool) error {
	msg, err := protocol.NewConnectedMessage(sessionID, cl.voice, fallback)
	if err != nil {
		return err
	}
	return cl.send(msg)
}

// sendError ships an error message to the client
func (cl *client) sendError(text string) {
	if msg, err := protocol.NewErrorMessage(text); err == nil {
		cl.send(msg)
	}
}

// send writes one message. Serialized: called from the read loop and
// the upstream event goroutine.
func (cl *client) send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	cl.wsMu.Lock()
	defer cl.wsMu.Unlock()
	return cl.ws.WriteMessage(websocket.TextMessage, data)
}

// Close tears the session down. Idempotent; also invoked by the
// registry sweep.
func (cl *client) Close() {
	cl.closeOnce.Do(func() {
		if cl.upstream != nil {
			cl.upstream.Disconnect()
			stats := cl.upstream.Stats()
			cl.logger.Info("session closed",
				"duration_min", stats.DurationMin,
				"cost", stats.EstimatedCost,
				"audio_chunks_received", stats.AudioChunksReceived)
		}
		if cl.synth != nil {
			cl.synth.Close()
		}
		cl.ws.Close()
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
