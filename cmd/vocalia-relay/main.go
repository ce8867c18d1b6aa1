// vocalia-relay: realtime voice relay for VocalIA clients.
// Bridges client WebSocket sessions to the xAI realtime API, with
// Gemini text-to-speech fallback when the upstream is unreachable.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jouiet/vocalia-relay/internal/config"
	ilog "github.com/Jouiet/vocalia-relay/internal/log"
	"github.com/Jouiet/vocalia-relay/pkg/realtime"
	"github.com/Jouiet/vocalia-relay/pkg/relay"
	"github.com/Jouiet/vocalia-relay/pkg/tts"
)

var (
	version  = "1.0.0"
	port     = flag.Int("port", 0, "HTTP server port (overrides PORT)")
	debug    = flag.Bool("debug", false, "Enable debug logging")
	health   = flag.Bool("health", false, "Probe both voice providers and exit")
	testText = flag.String("test", "", "Synthesize the given text and exit")
)

func main() {
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	ilog.Init(level)

	if *health {
		os.Exit(runHealth())
	}
	if *testText != "" {
		os.Exit(runTest(*testText))
	}

	cfg := relay.Config{
		Port:            config.Port(),
		MaxSessions:     config.MaxSessions(),
		SessionTimeout:  config.SessionTimeout(),
		SweepInterval:   config.SweepInterval(),
		RateLimitMax:    config.RateLimitMax(),
		RateLimitWindow: config.RateLimitWindow(),
		AllowedOrigins:  config.AllowedOrigins(),
		XAIKey:          config.XAIKey(),
		GeminiKey:       config.GeminiKey(),
		Debug:           *debug,
	}
	if *port > 0 {
		cfg.Port = *port
	}

	if cfg.XAIKey == "" {
		ilog.Warn("XAI_API_KEY not set, all sessions will run in fallback mode")
	}
	if cfg.GeminiKey == "" {
		ilog.Warn("GEMINI_API_KEY not set, fallback synthesis unavailable")
	}

	ilog.Info("starting vocalia-relay", "version", version, "port", cfg.Port)

	srv := relay.NewServer(cfg)

	go func() {
		if err := srv.Start(); err != nil {
			ilog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ilog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		ilog.Error("shutdown error", "err", err)
	}
}

// runHealth probes both providers. Exit 0 only when both respond.
func runHealth() int {
	ok := true

	if key := config.XAIKey(); key == "" {
		fmt.Println("realtime: XAI_API_KEY not set")
		ok = false
	} else {
		sess, err := realtime.NewSession(realtime.Config{
			APIKey:           key,
			HandshakeTimeout: 5 * time.Second,
		})
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = sess.Connect(ctx)
			cancel()
		}
		if err != nil {
			fmt.Printf("realtime: %v\n", err)
			ok = false
		} else {
			sess.Disconnect()
			fmt.Println("realtime: ok")
		}
	}

	if key := config.GeminiKey(); key == "" {
		fmt.Println("synthesis: GEMINI_API_KEY not set")
		ok = false
	} else {
		g, err := tts.NewGemini(tts.WithAPIKey(key))
		if err != nil {
			fmt.Printf("synthesis: %v\n", err)
			ok = false
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			healthy := g.HealthCheck(ctx)
			cancel()
			g.Close()
			if healthy {
				fmt.Println("synthesis: ok")
			} else {
				fmt.Println("synthesis: unhealthy")
				ok = false
			}
		}
	}

	if !ok {
		return 1
	}
	return 0
}

// runTest sends one utterance through the realtime upstream, falling
// back to synthesis when the upstream is unreachable.
func runTest(text string) int {
	if out := tryRealtime(text); out == 0 {
		return 0
	}

	fmt.Println("realtime unavailable, trying synthesis fallback")

	g, err := tts.NewGemini(tts.WithAPIKey(config.GeminiKey()))
	if err != nil {
		fmt.Printf("synthesis: %v\n", err)
		return 1
	}
	defer g.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := g.Synthesize(ctx, text)
	if err != nil {
		fmt.Printf("synthesis: %v\n", err)
		return 1
	}

	fmt.Printf("synthesis: %d bytes of %s\n", len(result.Audio), result.MimeType)
	return 0
}

// tryRealtime runs one text turn against the upstream and reports how
// much audio came back. Returns non-zero when the upstream failed.
func tryRealtime(text string) int {
	key := config.XAIKey()
	if key == "" {
		return 1
	}

	sess, err := realtime.NewSession(realtime.Config{APIKey: key})
	if err != nil {
		fmt.Printf("realtime: %v\n", err)
		return 1
	}

	done := make(chan struct{})
	sess.OnEvent(func(ev realtime.Event) {
		switch ev.Type {
		case realtime.EventResponseDone:
			close(done)
		case realtime.EventError:
			fmt.Printf("realtime: %v\n", ev.Err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = sess.Connect(ctx)
	cancel()
	if err != nil {
		fmt.Printf("realtime: %v\n", err)
		return 1
	}
	defer sess.Disconnect()

	if err := sess.SendText(text); err != nil {
		fmt.Printf("realtime: %v\n", err)
		return 1
	}

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		fmt.Println("realtime: response timed out")
		return 1
	}

	stats := sess.Stats()
	fmt.Printf("realtime: %d audio chunks, est. cost %s\n",
		stats.AudioChunksReceived, stats.EstimatedCost)
	return 0
}
