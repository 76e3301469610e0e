package protocol

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrMalformedRequest is returned for a request line that is not
	// "METHOD PATH VERSION".
	ErrMalformedRequest = errors.New("malformed request")
	// ErrRequestTooLarge is returned when a buffered request exceeds the
	// configured limit.
	ErrRequestTooLarge = errors.New("request too large")
)

var (
	crlf      = []byte("\r\n")
	separator = []byte("\r\n\r\n")
)

const contentLengthPrefix = "Content-Length: "

// Framer accumulates the bytes of one connection until a whole request
// (headers plus the declared body length) has arrived.
type Framer struct {
	buf   []byte
	limit int
}

// NewFramer returns a Framer that rejects requests longer than limit
// bytes. A limit of zero or less disables the check.
func NewFramer(limit int) *Framer {
	return &Framer{limit: limit}
}

// Write appends incoming bytes to the buffer.
func (f *Framer) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)
	if f.limit > 0 && len(f.buf) > f.limit {
		return len(p), ErrRequestTooLarge
	}
	return len(p), nil
}

// Complete reports whether the buffer holds the header separator followed
// by at least Content-Length body bytes.
func (f *Framer) Complete() bool {
	idx := bytes.Index(f.buf, separator)
	if idx < 0 {
		return false
	}
	return len(f.buf)-idx-len(separator) >= contentLength(f.buf[:idx])
}

// Bytes returns the buffered bytes. The slice is only valid until the next
// Write or Reset.
func (f *Framer) Bytes() []byte {
	return f.buf
}

// Len returns the number of buffered bytes.
func (f *Framer) Len() int {
	return len(f.buf)
}

// Reset discards the buffer. Bytes of a pipelined second request that
// arrived with the first one are dropped as well.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}

// contentLength scans the header block for the first "Content-Length: "
// line. The header name is matched case-sensitively; a missing or
// unparsable value counts as zero.
func contentLength(head []byte) int {
	for _, line := range bytes.Split(head, crlf) {
		s := string(line)
		if !strings.HasPrefix(s, contentLengthPrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(s[len(contentLengthPrefix):]))
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return 0
}
