package sse

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, r io.Reader) []*Event {
	t.Helper()
	reader := NewReader(r)
	var events []*Event
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
}

func TestReader_DataEvents(t *testing.T) {
	body := "data: {\"a\":1}\n\ndata: [DONE]\n\n"
	events := collect(t, strings.NewReader(body))

	require.Len(t, events, 2)
	assert.Equal(t, `{"a":1}`, events[0].Data)
	assert.Equal(t, "[DONE]", events[1].Data)
}

func TestReader_MultiLineDataAndFields(t *testing.T) {
	body := "event: delta\nid: 7\ndata: one\ndata: two\n\n"
	events := collect(t, strings.NewReader(body))

	require.Len(t, events, 1)
	assert.Equal(t, "delta", events[0].Type)
	assert.Equal(t, "7", events[0].ID)
	assert.Equal(t, "one\ntwo", events[0].Data)
}

func TestReader_SkipsCommentsAndBlankRuns(t *testing.T) {
	body := ": keep-alive\n\n\n\ndata: x\n\n"
	events := collect(t, strings.NewReader(body))

	require.Len(t, events, 1)
	assert.Equal(t, "x", events[0].Data)
}

func TestReader_CRLF(t *testing.T) {
	body := "data: hello\r\n\r\ndata: world\r\n\r\n"
	events := collect(t, strings.NewReader(body))

	require.Len(t, events, 2)
	assert.Equal(t, "hello", events[0].Data)
	assert.Equal(t, "world", events[1].Data)
}

func TestReader_TrailingEventWithoutBlankLine(t *testing.T) {
	events := collect(t, strings.NewReader("data: tail"))

	require.Len(t, events, 1)
	assert.Equal(t, "tail", events[0].Data)
}

// oneByteReader returns a single byte per Read to exercise boundary handling.
type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}

func TestReader_SplitAcrossReads(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"héllo\"}}]}\n\ndata: [DONE]\n\n"
	events := collect(t, oneByteReader{strings.NewReader(body)})

	require.Len(t, events, 2)
	assert.Equal(t, `{"choices":[{"delta":{"content":"héllo"}}]}`, events[0].Data)
}

func TestReader_EmptyBody(t *testing.T) {
	assert.Empty(t, collect(t, strings.NewReader("")))
}
