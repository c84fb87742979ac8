// Package sse implements the newline-delimited event framing used on both
// sides of the relay: decoding the completion endpoint's token stream and
// encoding the outbound session-event stream.
package sse

import (
	"bufio"
	"io"
	"strings"
)

const (
	dataPrefix = "data: "

	// DoneSentinel is the literal the completion endpoint sends when it has
	// no more data records. It is not the end of the stream; the stream ends
	// when the upstream channel closes.
	DoneSentinel = "[DONE]"
)

// Line buffer limits for the decoder. A single data record is one line;
// completion deltas are small, but a generous ceiling avoids truncating
// providers that batch large fragments.
const (
	initialBufSize = 64 * 1024
	maxLineSize    = 1024 * 1024
)

// Decoder reads data-record payloads from a byte stream. Records split
// across reads are reassembled before parsing, so a frame spanning two
// chunks is never dropped.
type Decoder struct {
	scanner *bufio.Scanner
}

func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, initialBufSize), maxLineSize)
	return &Decoder{scanner: sc}
}

// Next returns the payload of the next data record. Blank lines and lines
// without the data prefix are skipped, and the done sentinel is treated as
// a no-op record. io.EOF reports upstream channel closure; any other error
// is a mid-stream read failure.
func (d *Decoder) Next() ([]byte, error) {
	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimPrefix(line, dataPrefix)
		if payload == DoneSentinel {
			continue
		}
		return []byte(payload), nil
	}
	if err := d.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
