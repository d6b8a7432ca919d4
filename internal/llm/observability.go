package llm

import (
	"context"
	"io"
	"log/slog"
)

// CallEvent records metadata about a single chat completion.
type CallEvent struct {
	Model            string
	LatencyMs        int64
	Success          bool
	ErrorCode        string
	Streamed         bool
	Attempts         int
	PromptTokens     int
	CompletionTokens int
}

// Observer receives events about LLM calls for logging and metrics.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// LogObserver writes call events through a slog text handler.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an Observer that logs events to w.
func NewLogObserver(w io.Writer) *LogObserver {
	return &LogObserver{logger: slog.New(slog.NewTextHandler(w, nil))}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	status := "ok"
	level := slog.LevelInfo
	if !event.Success {
		status = "err:" + event.ErrorCode
		level = slog.LevelWarn
	}
	o.logger.Log(context.Background(), level, "llm_call",
		"model", event.Model,
		"latency_ms", event.LatencyMs,
		"status", status,
		"streamed", event.Streamed,
		"attempts", event.Attempts,
		"prompt_tokens", event.PromptTokens,
		"completion_tokens", event.CompletionTokens,
	)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}
