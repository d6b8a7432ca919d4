package engine

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/vnote-labs/coach/internal/export"
)

// ErrNoSink is returned by ExportTranscript when no sink was configured.
var ErrNoSink = errors.New("no export sink configured")

// ExportTranscript writes the conversation as JSON and Markdown artifacts
// to the configured sink.
func (e *Engine) ExportTranscript(ctx context.Context) ([]string, error) {
	return e.ExportTranscriptTo(ctx, e.deps.Sink)
}

// ExportTranscriptTo writes both artifacts to sink. Each artifact is
// attempted independently; failures are logged and the names of the
// artifacts that were written are returned.
func (e *Engine) ExportTranscriptTo(ctx context.Context, sink export.Sink) ([]string, error) {
	if sink == nil {
		return nil, ErrNoSink
	}
	start := e.now()

	e.mu.Lock()
	snap := e.snapshotLocked()
	e.mu.Unlock()

	payload := export.BuildPayload(snap, e.opts.Plan, start)
	artifacts := []struct {
		name   string
		render func() ([]byte, error)
	}{
		{payload.JSONName(), func() ([]byte, error) { return export.RenderJSON(payload) }},
		{payload.MarkdownName(), func() ([]byte, error) { return []byte(export.RenderMarkdown(payload)), nil }},
	}

	written := make([]bool, len(artifacts))
	var g errgroup.Group
	for i, a := range artifacts {
		g.Go(func() error {
			data, err := a.render()
			if err == nil {
				err = sink.Write(ctx, a.name, data)
			}
			if err != nil {
				e.deps.Logger.Warn("export failed", "artifact", a.name, "error", err)
				return nil
			}
			written[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var names []string
	for i, ok := range written {
		if ok {
			names = append(names, artifacts[i].name)
		}
	}
	e.observe(ctx, "export_transcript", start, nil, map[string]any{"artifacts": len(names)})
	return names, nil
}
