// Package relay implements the voice relay front door: a Fiber server
// that upgrades client WebSocket connections, bridges each one to an
// upstream realtime voice session, and degrades to text-to-speech
// fallback when the upstream is unreachable.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Jouiet/vocalia-relay/internal/config"
	ilog "github.com/Jouiet/vocalia-relay/internal/log"
	"github.com/Jouiet/vocalia-relay/pkg/realtime"
	"github.com/Jouiet/vocalia-relay/pkg/tts"
)

// ServiceName appears in health responses and logs
const ServiceName = "vocalia-relay"

// connectTimeout bounds the upstream dial before falling back to TTS
const connectTimeout = 10 * time.Second

// Config holds the relay server settings
type Config struct {
	Port            int
	MaxSessions     int
	SessionTimeout  time.Duration
	SweepInterval   time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
	AllowedOrigins  []string

	XAIKey    string
	GeminiKey string

	// Instructions overrides the upstream default prompt for every session
	Instructions string

	// Debug enables request logging
	Debug bool
}

// withDefaults fills zero values from the environment-level defaults
func (c Config) withDefaults() Config {
	if c.Port <= 0 {
		c.Port = config.DefaultPort
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = config.DefaultMaxSessions
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = config.DefaultSessionTimeout
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = config.DefaultSweepInterval
	}
	if c.RateLimitMax <= 0 {
		c.RateLimitMax = config.DefaultRateLimitMax
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = config.DefaultRateLimitWindow
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = config.DefaultAllowedOrigins
	}
	return c
}

// SessionDialer opens an upstream voice session. Stubbed in tests.
type SessionDialer func(cfg realtime.Config) (VoiceSession, error)

// SynthFactory builds a fallback synthesis provider for the given
// upstream voice name. Stubbed in tests.
type SynthFactory func(voice string) (tts.Provider, error)

// Server is the relay front door
type Server struct {
	app      *fiber.App
	cfg      Config
	registry *Registry
	limiter  *RateLimiter
	logger   *slog.Logger

	// Dial opens upstream sessions. Replaceable before Start.
	Dial SessionDialer

	// NewSynth builds fallback providers. Replaceable before Start.
	NewSynth SynthFactory

	sweepCancel context.CancelFunc
}

// NewServer creates a relay server. Zero config fields get defaults.
func NewServer(cfg Config) *Server {
	cfg = cfg.withDefaults()

	s := &Server{
		cfg:      cfg,
		registry: NewRegistry(cfg.MaxSessions),
		limiter:  NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
		logger:   ilog.With("component", "relay"),
	}

	s.Dial = func(rc realtime.Config) (VoiceSession, error) {
		return realtime.NewSession(rc)
	}
	s.NewSynth = func(voice string) (tts.Provider, error) {
		return tts.NewGemini(
			tts.WithAPIKey(cfg.GeminiKey),
			tts.WithVoice(tts.MapVoice(voice)),
		)
	}

	app := fiber.New(fiber.Config{
		AppName:               ServiceName,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if cfg.Debug {
		app.Use(logger.New())
	}
	app.Use(securityHeaders())
	app.Use(corsHeaders(cfg.AllowedOrigins))
	app.Use(s.rateLimit())

	app.Get("/health", s.handleHealth)
	app.Get("/voices", s.handleVoices)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/voice", websocket.New(s.handleVoice))

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
		})
	})

	s.app = app
	return s
}

// handleHealth reports service status and live session count
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "ok",
		"service":     ServiceName,
		"sessions":    s.registry.Count(),
		"maxSessions": s.cfg.MaxSessions,
		"voices":      realtime.VoiceNames(),
	})
}

// handleVoices returns the voice catalogue: name → descriptor, plus the
// default and the synthesis voice used for each in degraded mode
func (s *Server) handleVoices(c *fiber.Ctx) error {
	fallbacks := make(map[string]string, len(realtime.Voices))
	for _, name := range realtime.VoiceNames() {
		fallbacks[name] = tts.MapVoice(name)
	}
	return c.JSON(fiber.Map{
		"voices":    realtime.Voices,
		"default":   realtime.DefaultVoice,
		"fallbacks": fallbacks,
	})
}

// Start runs the sweep loop and blocks serving HTTP
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.sweepCancel = cancel
	go s.sweepLoop(ctx)

	s.logger.Info("relay listening",
		"port", s.cfg.Port,
		"max_sessions", s.cfg.MaxSessions)
	return s.app.Listen(fmt.Sprintf(":%d", s.cfg.Port))
}

// Stop disconnects all sessions and shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	if s.sweepCancel != nil {
		s.sweepCancel()
	}
	s.registry.CloseAll()
	return s.app.ShutdownWithContext(ctx)
}

// sweepLoop evicts idle sessions and prunes rate limiter state
func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.registry.Sweep(s.cfg.SessionTimeout); n > 0 {
				s.logger.Info("swept idle sessions", "count", n)
			}
			s.limiter.Cleanup()
		}
	}
}
