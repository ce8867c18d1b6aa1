package realtime

import (
	"fmt"
	"time"
)

// Stats is a snapshot of a session's usage counters.
// It remains readable after disconnection; duration is computed from the
// disconnect timestamp when present, never from "now" on a closed session.
type Stats struct {
	ConnectTime    time.Time `json:"connect_time"`
	DisconnectTime time.Time `json:"disconnect_time"`

	MessagesReceived    uint64 `json:"messages_received"`
	AudioChunksSent     uint64 `json:"audio_chunks_sent"`
	AudioChunksReceived uint64 `json:"audio_chunks_received"`

	DurationMs    int64  `json:"duration_ms"`
	DurationMin   string `json:"duration_min"`
	EstimatedCost string `json:"estimated_cost"`
}

// finalize fills the derived duration and cost fields.
func (s *Stats) finalize(now time.Time, costPerMinute float64) {
	if s.ConnectTime.IsZero() {
		return
	}
	end := s.DisconnectTime
	if end.IsZero() {
		end = now
	}
	duration := end.Sub(s.ConnectTime)
	minutes := duration.Minutes()

	s.DurationMs = duration.Milliseconds()
	s.DurationMin = fmt.Sprintf("%.2f", minutes)
	s.EstimatedCost = fmt.Sprintf("$%.4f", minutes*costPerMinute)
}
