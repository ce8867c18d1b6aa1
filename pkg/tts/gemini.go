package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Jouiet/vocalia-relay/internal/httpc"
)

const (
	geminiBaseURL  = "https://generativelanguage.googleapis.com/v1beta"
	providerGemini = "gemini"

	// GeminiTTSModel is the Gemini text-to-speech model.
	GeminiTTSModel = "gemini-2.5-flash-preview-tts"

	// GeminiMimeType is the output format: PCM16 24kHz, matching the
	// realtime channel so clients play both through the same path.
	GeminiMimeType = "audio/L16;codec=pcm;rate=24000"
)

// Gemini implements Provider for the Gemini TTS API.
type Gemini struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string

	mu              sync.Mutex
	requestCount    uint64
	totalChars      uint64
	totalAudioBytes uint64
}

// NewGemini creates a new Gemini TTS fallback provider.
// The API key is required; the voice defaults to DefaultGeminiVoice and
// unknown names fall back to it rather than failing.
func NewGemini(opts ...Option) (*Gemini, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !IsGeminiVoice(cfg.Voice) {
		cfg.Voice = DefaultGeminiVoice
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = geminiBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &Gemini{
		config:  cfg,
		client:  client,
		logger:  cfg.Logger.With("component", "tts.gemini"),
		baseURL: baseURL,
	}, nil
}

// geminiRequest is the generateContent payload for audio output.
type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities"`
	SpeechConfig       geminiSpeechConfig `json:"speechConfig"`
}

type geminiSpeechConfig struct {
	VoiceConfig geminiVoiceConfig `json:"voiceConfig"`
}

type geminiVoiceConfig struct {
	PrebuiltVoiceConfig geminiPrebuiltVoice `json:"prebuiltVoiceConfig"`
}

type geminiPrebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Synthesize converts one utterance to audio with the configured voice.
// On success the cumulative request, character and byte counters advance.
func (g *Gemini) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	start := time.Now()

	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: text}}}},
		GenerationConfig: geminiGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: geminiSpeechConfig{
				VoiceConfig: geminiVoiceConfig{
					PrebuiltVoiceConfig: geminiPrebuiltVoice{VoiceName: g.config.Voice},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(providerGemini, fmt.Errorf("marshal payload: %w", err))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.config.Model)

	resp, err := g.doWithRetry(ctx, url, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerGemini, fmt.Errorf("read response: %w", err))
	}

	var decoded geminiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, WrapError(providerGemini, fmt.Errorf("decode response: %w", err))
	}
	if decoded.Error != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    decoded.Error.Message,
			Provider:   providerGemini,
		}
	}

	inline := inlineData(&decoded)
	if inline == nil || inline.Data == "" {
		return nil, WrapError(providerGemini, ErrNoAudio)
	}

	audio, err := base64.StdEncoding.DecodeString(inline.Data)
	if err != nil {
		return nil, WrapError(providerGemini, fmt.Errorf("decode audio: %w", err))
	}

	mimeType := inline.MimeType
	if mimeType == "" {
		mimeType = GeminiMimeType
	}

	g.mu.Lock()
	g.requestCount++
	g.totalChars += uint64(len(text))
	g.totalAudioBytes += uint64(len(audio))
	g.mu.Unlock()

	g.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", time.Since(start).Milliseconds(),
		"voice", g.config.Voice,
	)

	return &AudioResult{
		Audio:     audio,
		MimeType:  mimeType,
		CharCount: len(text),
	}, nil
}

// HealthCheck performs a minimal synthesis call and reports success.
func (g *Gemini) HealthCheck(ctx context.Context) bool {
	result, err := g.Synthesize(ctx, "Test.")
	if err != nil {
		g.logger.Warn("health check failed", "error", err)
		return false
	}
	return len(result.Audio) > 0
}

// Stats returns the cumulative usage counters.
func (g *Gemini) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	return Stats{
		RequestCount:    g.requestCount,
		TotalChars:      g.totalChars,
		TotalAudioBytes: g.totalAudioBytes,
		TotalAudioKB:    fmt.Sprintf("%.2f", float64(g.totalAudioBytes)/1024),
	}
}

// Voice returns the configured fallback voice.
func (g *Gemini) Voice() string {
	return g.config.Voice
}

// Close releases resources held by the provider.
func (g *Gemini) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

// doWithRetry issues the request, retrying rate-limit and server errors.
func (g *Gemini) doWithRetry(ctx context.Context, url string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, WrapError(providerGemini, ctx.Err())
			case <-time.After(g.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, WrapError(providerGemini, fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", g.config.APIKey)

		resp, err := g.client.Do(req)
		if err != nil {
			lastErr = WrapError(providerGemini, err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = &APIError{
				StatusCode: resp.StatusCode,
				Message:    string(msg),
				Provider:   providerGemini,
			}
			g.logger.Warn("retrying request", "attempt", attempt+1, "status", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

func inlineData(resp *geminiResponse) *struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
} {
	if len(resp.Candidates) == 0 {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil {
			return part.InlineData
		}
	}
	return nil
}

// Verify Gemini implements Provider at compile time.
var _ Provider = (*Gemini)(nil)
