// Package sse decodes text/event-stream bodies into discrete events.
package sse

import (
	"bufio"
	"io"
	"strings"
)

// Event is one dispatched server-sent event.
type Event struct {
	Type string
	Data string
	ID   string
}

// Reader parses events from an io.Reader. Partial lines and events that
// straddle read boundaries are buffered until complete.
type Reader struct {
	scanner *bufio.Scanner
}

const maxLineSize = 1 << 20

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: s}
}

// Next returns the next event, or io.EOF once the stream is exhausted.
// A trailing event without a terminating blank line is still delivered.
func (r *Reader) Next() (*Event, error) {
	var (
		ev      Event
		data    []string
		pending bool
	)

	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if pending {
				ev.Data = strings.Join(data, "\n")
				return &ev, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			ev.Type = value
			pending = true
		case "data":
			data = append(data, value)
			pending = true
		case "id":
			ev.ID = value
			pending = true
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if pending {
		ev.Data = strings.Join(data, "\n")
		return &ev, nil
	}
	return nil, io.EOF
}

func splitField(line string) (string, string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
