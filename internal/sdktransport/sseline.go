package sdktransport

import (
	"bytes"
	"context"
	"io"

	"github.com/pynector/pynector-go/pkg/transport"
)

// LineChunks buffers an underlying transport.Chunks stream and serves it
// back one newline-delimited line at a time — the role a bufio.Scanner
// plays in front of an SSE response body, but built on top of the
// fixed-size Chunks reads internal/httptransport already does rather
// than a second full-body read.
type LineChunks struct {
	underlying transport.Chunks
	buf        []byte
	eof        bool
}

// NewLineChunks wraps underlying for line-oriented consumption.
func NewLineChunks(underlying transport.Chunks) *LineChunks {
	return &LineChunks{underlying: underlying}
}

// NextLine returns the next line (without its trailing newline/CR),
// pulling further chunks from the underlying stream as needed, and
// io.EOF once both the buffer and the underlying stream are exhausted.
func (l *LineChunks) NextLine(ctx context.Context) ([]byte, error) {
	for {
		if idx := bytes.IndexByte(l.buf, '\n'); idx >= 0 {
			line := l.buf[:idx]
			l.buf = l.buf[idx+1:]
			return bytes.TrimSuffix(line, []byte("\r")), nil
		}
		if l.eof {
			if len(l.buf) == 0 {
				return nil, io.EOF
			}
			line := l.buf
			l.buf = nil
			return bytes.TrimSuffix(line, []byte("\r")), nil
		}

		chunk, err := l.underlying.Next(ctx)
		if len(chunk) > 0 {
			l.buf = append(l.buf, chunk...)
		}
		if err == io.EOF {
			l.eof = true
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}
