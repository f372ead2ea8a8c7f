package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// sseEvent is one parsed Server-Sent Event frame.
type sseEvent struct {
	ID    string
	Event string
	Data  []byte
}

// maxSSEEventSize bounds how much a single event may buffer before the
// scanner gives up, protecting against a misbehaving server that never
// sends a terminating blank line.
const maxSSEEventSize = 1024 * 1024

// sseScanner parses the SSE wire format (id:/event:/data: fields
// separated by newlines, events terminated by a blank line) off any
// io.Reader, independent of the HTTP plumbing that produced it.
type sseScanner struct {
	reader   *bufio.Reader
	currSize int
}

func newSSEScanner(r io.Reader) *sseScanner {
	return &sseScanner{reader: bufio.NewReader(r)}
}

func (s *sseScanner) Next() (*sseEvent, error) {
	event := &sseEvent{}
	var dataLines [][]byte
	s.currSize = 0

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(dataLines) > 0 {
				event.Data = bytes.Join(dataLines, []byte("\n"))
				return event, nil
			}
			return nil, err
		}

		s.currSize += len(line)
		if s.currSize > maxSSEEventSize {
			return nil, fmt.Errorf("sse event exceeds maximum size of %d bytes", maxSSEEventSize)
		}

		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))

		if len(line) == 0 {
			if len(dataLines) > 0 || event.ID != "" || event.Event != "" {
				event.Data = bytes.Join(dataLines, []byte("\n"))
				return event, nil
			}
			continue
		}

		if line[0] == ':' {
			continue
		}

		var field, value []byte
		if idx := bytes.IndexByte(line, ':'); idx == -1 {
			field = line
		} else {
			field = line[:idx]
			value = line[idx+1:]
			if len(value) > 0 && value[0] == ' ' {
				value = value[1:]
			}
		}

		switch string(field) {
		case "id":
			event.ID = string(value)
		case "event":
			event.Event = string(value)
		case "data":
			dataLines = append(dataLines, value)
		}
	}
}
