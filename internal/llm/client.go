package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/vnote-labs/coach/internal/llm/sse"
)

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions controls a single StreamChat call.
type ChatOptions struct {
	Model       string   // empty uses Config.Model
	JSON        bool     // request a JSON response format
	Schema      map[string]any
	SchemaName  string
	Temperature *float64 // nil uses Config.Temperature
	MaxTokens   *int     // nil omits max_tokens
	Stream      *bool    // nil uses Config.Stream
	Stop        []string

	// OnToken receives incremental text. For a non-streamed plain body it is
	// called once with the whole trimmed text.
	OnToken func(string)
	// OnChunk receives each decoded stream chunk, or the decoded body of a
	// non-streamed JSON response.
	OnChunk func(any)
}

// ChatClient sends chat completions to the guidance model.
type ChatClient interface {
	// StreamChat returns the aggregated completion text. Tokens are forwarded
	// to opts.OnToken as they arrive.
	StreamChat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
}

type httpChatClient struct {
	cfg      Config
	http     *http.Client
	observer Observer
	logger   *slog.Logger
}

// NewChatClient creates a ChatClient that POSTs to {Endpoint}/chat.
func NewChatClient(cfg Config, observer Observer, logger *slog.Logger) ChatClient {
	if observer == nil {
		observer = NoopObserver{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &httpChatClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
		observer: observer,
		logger:   logger,
	}
}

// chatRequest is the JSON body sent to POST /chat.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Stream         bool            `json:"stream"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stop           []string        `json:"stop,omitempty"`
}

// StreamChunk is one decoded frame of an OpenAI-style completion stream.
type StreamChunk struct {
	ID      string         `json:"id,omitempty"`
	Model   string         `json:"model,omitempty"`
	Choices []StreamChoice `json:"choices"`
}

// StreamChoice is a choice inside a StreamChunk.
type StreamChoice struct {
	Index        int          `json:"index"`
	Delta        StreamDelta  `json:"delta"`
	FinishReason *string      `json:"finish_reason,omitempty"`
	Error        *streamError `json:"error,omitempty"`
}

// StreamDelta carries incremental content. Reasoning is forwarded to
// listeners but never aggregated into the result.
type StreamDelta struct {
	Role      string `json:"role,omitempty"`
	Content   string `json:"content,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

type streamError struct {
	Message string `json:"message"`
}

func (c *httpChatClient) StreamChat(ctx context.Context, messages []Message, opts ChatOptions) (string, error) {
	start := time.Now()

	body := chatRequest{
		Model:          c.cfg.Model,
		Messages:       messages,
		Stream:         c.cfg.Stream,
		Temperature:    c.cfg.Temperature,
		MaxTokens:      opts.MaxTokens,
		ResponseFormat: responseFormat(opts),
		Stop:           opts.Stop,
	}
	if opts.Model != "" {
		body.Model = opts.Model
	}
	if opts.Temperature != nil {
		body.Temperature = *opts.Temperature
	}
	if opts.Stream != nil {
		body.Stream = *opts.Stream
	}

	event := CallEvent{Model: body.Model, Streamed: body.Stream, PromptTokens: promptTokens(messages)}

	if c.cfg.Endpoint == "" {
		return "", c.finish(event, start, ErrNotConfigured)
	}

	callCtx := ctx
	if c.cfg.TimeoutMs > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	attempts := 1 + c.cfg.MaxRetries
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := sleepContext(callCtx, c.cfg.retryDelay(i-1)); err != nil {
				lastErr = err
				break
			}
		}
		event.Attempts = i + 1

		text, err := c.doRequest(callCtx, data, opts)
		if err == nil {
			event.CompletionTokens = approxTokens(text)
			c.finish(event, start, nil)
			return text, nil
		}
		lastErr = err

		// Don't retry on cancellation, timeout or once tokens have been emitted.
		if callCtx.Err() != nil || !retryable(err) {
			break
		}
		c.logger.Debug("retrying chat request", "attempt", i+1, "error", err)
	}

	return "", c.finish(event, start, c.classify(ctx, callCtx, lastErr))
}

func (c *httpChatClient) finish(event CallEvent, start time.Time, err error) error {
	event.LatencyMs = time.Since(start).Milliseconds()
	event.Success = err == nil
	event.ErrorCode = errorCode(err)
	c.observer.OnCallComplete(event)
	return err
}

// classify maps the last attempt error onto the package sentinels.
func (c *httpChatClient) classify(parent, callCtx context.Context, err error) error {
	switch {
	case parent.Err() != nil:
		return ErrCancelled
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	case isConnectionError(err):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}

func (c *httpChatClient) doRequest(ctx context.Context, data []byte, opts ChatOptions) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/chat", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream, application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newStatusError(resp)
	}

	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/event-stream") {
		return c.readStream(resp.Body, opts)
	}
	return c.readBody(resp.Body, opts)
}

func (c *httpChatClient) readBody(r io.Reader, opts ChatOptions) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", nil
	}

	if opts.JSON {
		var parsed any
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			c.logger.Debug("chat response is not JSON", "error", err)
		} else if opts.OnChunk != nil {
			opts.OnChunk(parsed)
		}
		return text, nil
	}
	if opts.OnToken != nil {
		opts.OnToken(text)
	}
	return text, nil
}

func (c *httpChatClient) readStream(r io.Reader, opts ChatOptions) (string, error) {
	var out strings.Builder
	reader := sse.NewReader(r)

	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return strings.TrimSpace(out.String()), nil
		}
		if err != nil {
			return "", &emittedError{err: fmt.Errorf("reading stream: %w", err)}
		}

		payload := strings.TrimSpace(ev.Data)
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			c.logger.Debug("skipping unparseable stream frame", "error", err)
			continue
		}
		if opts.OnChunk != nil {
			opts.OnChunk(chunk)
		}

		for _, choice := range chunk.Choices {
			if choice.Error != nil {
				return "", &emittedError{err: fmt.Errorf("%w: %s", ErrStream, choice.Error.Message)}
			}
			if d := choice.Delta.Content; d != "" {
				out.WriteString(d)
				if opts.OnToken != nil {
					opts.OnToken(d)
				}
			}
			if rs := choice.Delta.Reasoning; rs != "" && opts.OnToken != nil {
				opts.OnToken(rs)
			}
		}
	}
}

// emittedError marks failures after the response started; they are never retried.
type emittedError struct{ err error }

func (e *emittedError) Error() string { return e.err.Error() }
func (e *emittedError) Unwrap() error { return e.err }

func newStatusError(resp *http.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	body := strings.TrimSpace(string(raw))
	se := &StatusError{Status: resp.StatusCode, Body: body}

	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		switch e := payload.Error.(type) {
		case map[string]any:
			if msg, ok := e["message"].(string); ok {
				se.Message = msg
			}
		case string:
			se.Message = e
		}
		if se.Message == "" {
			se.Message = payload.Message
		}
	}
	return se
}

func retryable(err error) bool {
	var emitted *emittedError
	if errors.As(err, &emitted) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func promptTokens(messages []Message) int {
	n := 0
	for _, m := range messages {
		n += approxTokens(m.Content)
	}
	return n
}

func approxTokens(s string) int {
	return (len(s) + 3) / 4
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return "CANCELLED"
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrNotConfigured):
		return "UNAVAILABLE"
	case errors.Is(err, ErrStream):
		return "STREAM"
	case errors.Is(err, ErrTransport):
		return "STATUS"
	default:
		return "UNKNOWN"
	}
}
