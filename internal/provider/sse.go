// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sse.go - Minimal Server-Sent Events parser for streaming responses.
package provider

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// maxEventSize caps a single SSE event.
const maxEventSize = 64 * 1024

// sseReader parses data: payloads from an SSE stream. Event types, ids,
// retry hints and comments are ignored; chat completion streams only carry
// data lines.
type sseReader struct {
	reader *bufio.Reader
}

func newSSEReader(r io.Reader) *sseReader {
	return &sseReader{reader: bufio.NewReader(r)}
}

// readEvent returns the data payload of the next event. Multi-line data is
// joined with newlines per the SSE spec. Returns io.EOF at stream end.
func (s *sseReader) readEvent() ([]byte, error) {
	var dataLines [][]byte
	size := 0

	for {
		line, err := s.reader.ReadBytes('\n')
		line = bytes.TrimRight(line, "\r\n")
		if err != nil {
			// A final event may end at EOF without its blank line.
			if bytes.HasPrefix(line, []byte("data:")) {
				data := bytes.TrimPrefix(line, []byte("data:"))
				dataLines = append(dataLines, bytes.TrimPrefix(data, []byte(" ")))
			}
			if err == io.EOF && len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, err
		}

		// Blank line terminates the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			data := bytes.TrimPrefix(line, []byte("data:"))
			data = bytes.TrimPrefix(data, []byte(" "))
			size += len(data)
			if size > maxEventSize {
				return nil, fmt.Errorf("sse event too large: %d bytes", size)
			}
			dataLines = append(dataLines, data)
		}
	}
}
