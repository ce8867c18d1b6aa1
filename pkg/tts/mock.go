package tts

import (
	"context"
	"fmt"
	"sync"
)

// Mock implements Provider for testing.
// Behavior can be customized via function fields.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	// If nil, returns silent audio of length proportional to the text.
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)

	mu              sync.Mutex
	calls           []string
	requestCount    uint64
	totalChars      uint64
	totalAudioBytes uint64
}

// NewMock creates a mock provider that returns silent PCM16 audio.
func NewMock() *Mock {
	return &Mock{}
}

// WithError returns a mock whose calls all fail with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(context.Context, string) (*AudioResult, error) {
			return nil, err
		},
	}
}

// Synthesize records the call and delegates to SynthesizeFunc.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		result, err := m.SynthesizeFunc(ctx, text)
		if err != nil {
			return nil, err
		}
		m.record(text, result)
		return result, nil
	}

	// ~20ms of silence per character at 24kHz PCM16
	result := &AudioResult{
		Audio:     make([]byte, len(text)*960),
		MimeType:  GeminiMimeType,
		CharCount: len(text),
	}
	m.record(text, result)
	return result, nil
}

// HealthCheck reports whether a minimal synthesis call succeeds.
func (m *Mock) HealthCheck(ctx context.Context) bool {
	result, err := m.Synthesize(ctx, "Test.")
	return err == nil && len(result.Audio) > 0
}

// Stats returns the cumulative counters.
func (m *Mock) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		RequestCount:    m.requestCount,
		TotalChars:      m.totalChars,
		TotalAudioBytes: m.totalAudioBytes,
		TotalAudioKB:    fmt.Sprintf("%.2f", float64(m.totalAudioBytes)/1024),
	}
}

// Close implements Provider.
func (m *Mock) Close() error {
	return nil
}

// Calls returns the synthesized texts in order.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Reset clears recorded calls and counters.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.requestCount = 0
	m.totalChars = 0
	m.totalAudioBytes = 0
}

func (m *Mock) record(text string, result *AudioResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount++
	m.totalChars += uint64(len(text))
	m.totalAudioBytes += uint64(len(result.Audio))
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
